package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PaymentProvider identifies the processor that settled a payment
type PaymentProvider string

const (
	ProviderPaystack    PaymentProvider = "paystack"
	ProviderNOWPayments PaymentProvider = "nowpayments"
)

// PaymentStatus is the settlement state recorded for a payment
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

// PaymentTransaction records one provider payment. Reference is unique per
// provider, which makes webhook and verification replays idempotent.
type PaymentTransaction struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uint            `gorm:"index;not null" json:"user_id"`
	Provider  PaymentProvider `gorm:"uniqueIndex:idx_payment_provider_ref;size:20;not null" json:"provider"`
	Reference string          `gorm:"uniqueIndex:idx_payment_provider_ref;size:100;not null" json:"reference"`
	OrderID   string          `gorm:"size:100;index" json:"order_id"`
	Plan      Plan            `gorm:"size:20;not null" json:"plan"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Currency  string          `gorm:"size:10;not null" json:"currency"`
	Status    PaymentStatus   `gorm:"size:20;not null;index" json:"status"`
	RawStatus string          `gorm:"size:30" json:"raw_status"`
	Payload   datatypes.JSON  `json:"payload,omitempty"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for PaymentTransaction model
func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}
