package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerStatus is the admin-driven lifecycle of commissions and payouts
type LedgerStatus string

const (
	LedgerPending  LedgerStatus = "pending"
	LedgerApproved LedgerStatus = "approved"
	LedgerPaid     LedgerStatus = "paid"
	LedgerRejected LedgerStatus = "rejected"
)

// CanTransition reports whether an admin may move a row from s to next.
// pending -> approved|rejected, approved -> paid|rejected.
func (s LedgerStatus) CanTransition(next LedgerStatus) bool {
	switch s {
	case LedgerPending:
		return next == LedgerApproved || next == LedgerRejected
	case LedgerApproved:
		return next == LedgerPaid || next == LedgerRejected
	default:
		return false
	}
}

// Affiliate is a user enrolled in the referral programme
type Affiliate struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	UserID         uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	Code           string          `gorm:"uniqueIndex;size:16;not null" json:"code"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(5,4);not null" json:"commission_rate"`
	PayoutMethod   string          `gorm:"size:30" json:"payout_method"`
	PayoutAddress  string          `gorm:"size:255" json:"payout_address"`
	Active         bool            `gorm:"default:true" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Affiliate model
func (Affiliate) TableName() string {
	return "affiliates"
}

// Referral links a referred user to the affiliate whose code they used
type Referral struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	AffiliateID    uint       `gorm:"index;not null" json:"affiliate_id"`
	ReferredUserID uint       `gorm:"uniqueIndex;not null" json:"referred_user_id"`
	Code           string     `gorm:"size:16;not null" json:"code"`
	ConvertedAt    *time.Time `json:"converted_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for Referral model
func (Referral) TableName() string {
	return "referrals"
}

// Commission is earned by an affiliate on a referred user's payment
type Commission struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	AffiliateID     uint            `gorm:"index;not null" json:"affiliate_id"`
	ReferralID      uint            `gorm:"index;not null" json:"referral_id"`
	PaymentID       uint            `gorm:"uniqueIndex;not null" json:"payment_id"`
	PaymentAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"payment_amount"`
	Rate            decimal.Decimal `gorm:"type:decimal(5,4);not null" json:"rate"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Currency        string          `gorm:"size:10;not null" json:"currency"`
	Status          LedgerStatus    `gorm:"size:20;not null;default:'pending';index" json:"status"`
	PayoutRequestID *uint           `gorm:"index" json:"payout_request_id,omitempty"`
	ReviewedAt      *time.Time      `json:"reviewed_at,omitempty"`
	Note            string          `gorm:"size:255" json:"note"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Commission model
func (Commission) TableName() string {
	return "commissions"
}

// PayoutRequest is an affiliate asking to be paid approved commissions
type PayoutRequest struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	AffiliateID   uint            `gorm:"index;not null" json:"affiliate_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Currency      string          `gorm:"size:10;not null" json:"currency"`
	Method        string          `gorm:"size:30" json:"method"`
	Address       string          `gorm:"size:255" json:"address"`
	Status        LedgerStatus    `gorm:"size:20;not null;default:'pending';index" json:"status"`
	ReviewedAt    *time.Time      `json:"reviewed_at,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	TransactionID string          `gorm:"size:100" json:"transaction_id"`
	Note          string          `gorm:"size:255" json:"note"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for PayoutRequest model
func (PayoutRequest) TableName() string {
	return "payout_requests"
}
