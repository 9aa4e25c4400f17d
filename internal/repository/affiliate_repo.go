package repository

import (
	"errors"

	"github.com/edgelog/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAffiliateNotFound  = errors.New("affiliate not found")
	ErrReferralNotFound   = errors.New("referral not found")
	ErrCommissionNotFound = errors.New("commission not found")
	ErrPayoutNotFound     = errors.New("payout request not found")
	// ErrCommissionsClaimed means another payout claimed some of the
	// requested commissions first.
	ErrCommissionsClaimed = errors.New("commissions already claimed by another payout")
)

// AffiliateRepository handles the referral ledger: affiliates, referrals,
// commissions and payout requests.
type AffiliateRepository struct {
	db *gorm.DB
}

// NewAffiliateRepository creates a new AffiliateRepository
func NewAffiliateRepository(db *gorm.DB) *AffiliateRepository {
	return &AffiliateRepository{db: db}
}

func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

// CreateAffiliate creates a new affiliate
func (r *AffiliateRepository) CreateAffiliate(affiliate *models.Affiliate) error {
	return r.db.Create(affiliate).Error
}

// GetAffiliateByID retrieves an affiliate by ID
func (r *AffiliateRepository) GetAffiliateByID(id uint) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	if err := r.db.First(&affiliate, id).Error; err != nil {
		return nil, notFound(err, ErrAffiliateNotFound)
	}
	return &affiliate, nil
}

// GetAffiliateByUserID retrieves the affiliate record of a user
func (r *AffiliateRepository) GetAffiliateByUserID(userID uint) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	if err := r.db.Where("user_id = ?", userID).First(&affiliate).Error; err != nil {
		return nil, notFound(err, ErrAffiliateNotFound)
	}
	return &affiliate, nil
}

// GetAffiliateByCode retrieves an active affiliate by referral code
func (r *AffiliateRepository) GetAffiliateByCode(code string) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	if err := r.db.Where("code = ? AND active = ?", code, true).First(&affiliate).Error; err != nil {
		return nil, notFound(err, ErrAffiliateNotFound)
	}
	return &affiliate, nil
}

// CodeExists checks whether a referral code is already issued
func (r *AffiliateRepository) CodeExists(code string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Affiliate{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

// UpdateAffiliate saves an affiliate
func (r *AffiliateRepository) UpdateAffiliate(affiliate *models.Affiliate) error {
	return r.db.Save(affiliate).Error
}

// CreateReferral records a referred signup
func (r *AffiliateRepository) CreateReferral(referral *models.Referral) error {
	return r.db.Create(referral).Error
}

// GetReferralByUserID retrieves the referral that brought a user in
func (r *AffiliateRepository) GetReferralByUserID(userID uint) (*models.Referral, error) {
	var referral models.Referral
	if err := r.db.Where("referred_user_id = ?", userID).First(&referral).Error; err != nil {
		return nil, notFound(err, ErrReferralNotFound)
	}
	return &referral, nil
}

// ListReferrals lists an affiliate's referrals, newest first
func (r *AffiliateRepository) ListReferrals(affiliateID uint) ([]models.Referral, error) {
	var referrals []models.Referral
	result := r.db.Where("affiliate_id = ?", affiliateID).Order("created_at DESC").Find(&referrals)
	return referrals, result.Error
}

// RecordCommission stores a commission and marks its referral converted.
// The unique payment id makes a replayed payment a no-op; created reports
// whether a new row was written.
func (r *AffiliateRepository) RecordCommission(commission *models.Commission, referral *models.Referral) (bool, error) {
	created := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(commission)
		if result.Error != nil {
			return result.Error
		}
		created = result.RowsAffected > 0
		if !created || referral.ConvertedAt != nil {
			return nil
		}
		return tx.Model(&models.Referral{}).Where("id = ? AND converted_at IS NULL", referral.ID).
			Update("converted_at", commission.CreatedAt).Error
	})
	return created, err
}

// GetCommission retrieves a commission by ID
func (r *AffiliateRepository) GetCommission(id uint) (*models.Commission, error) {
	var commission models.Commission
	if err := r.db.First(&commission, id).Error; err != nil {
		return nil, notFound(err, ErrCommissionNotFound)
	}
	return &commission, nil
}

// ListCommissions lists commissions, optionally narrowed by affiliate (0 = all)
// and status (empty = all), newest first.
func (r *AffiliateRepository) ListCommissions(affiliateID uint, status models.LedgerStatus, page, pageSize int) ([]models.Commission, int64, error) {
	var commissions []models.Commission
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		if affiliateID != 0 {
			db = db.Where("affiliate_id = ?", affiliateID)
		}
		if status != "" {
			db = db.Where("status = ?", status)
		}
		return db
	}

	if err := r.db.Model(&models.Commission{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	result := r.db.Scopes(scope).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&commissions)
	return commissions, total, result.Error
}

// UpdateCommission saves a commission
func (r *AffiliateRepository) UpdateCommission(commission *models.Commission) error {
	return r.db.Save(commission).Error
}

// UnclaimedApproved lists approved commissions not yet attached to a payout,
// oldest first.
func (r *AffiliateRepository) UnclaimedApproved(affiliateID uint) ([]models.Commission, error) {
	var commissions []models.Commission
	result := r.db.Where("affiliate_id = ? AND status = ? AND payout_request_id IS NULL", affiliateID, models.LedgerApproved).
		Order("created_at ASC, id ASC").
		Find(&commissions)
	return commissions, result.Error
}

// SumCommissions totals an affiliate's commissions in one status
func (r *AffiliateRepository) SumCommissions(affiliateID uint, status models.LedgerStatus) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := r.db.Model(&models.Commission{}).
		Where("affiliate_id = ? AND status = ?", affiliateID, status).
		Pluck("amount", &amounts).Error
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}

// CreatePayout stores a payout request and claims the given commissions for
// it. The commissions are locked and re-checked inside the transaction, and
// the payout is rolled back unless every one of them is still approved and
// unclaimed.
func (r *AffiliateRepository) CreatePayout(payout *models.PayoutRequest, commissionIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if len(commissionIDs) > 0 {
			var free []uint
			err := tx.Model(&models.Commission{}).
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id IN ? AND affiliate_id = ? AND status = ? AND payout_request_id IS NULL",
					commissionIDs, payout.AffiliateID, models.LedgerApproved).
				Pluck("id", &free).Error
			if err != nil {
				return err
			}
			if len(free) != len(commissionIDs) {
				return ErrCommissionsClaimed
			}
		}

		if err := tx.Create(payout).Error; err != nil {
			return err
		}
		if len(commissionIDs) == 0 {
			return nil
		}

		result := tx.Model(&models.Commission{}).
			Where("id IN ? AND payout_request_id IS NULL", commissionIDs).
			Update("payout_request_id", payout.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != int64(len(commissionIDs)) {
			return ErrCommissionsClaimed
		}
		return nil
	})
}

// GetPayout retrieves a payout request by ID
func (r *AffiliateRepository) GetPayout(id uint) (*models.PayoutRequest, error) {
	var payout models.PayoutRequest
	if err := r.db.First(&payout, id).Error; err != nil {
		return nil, notFound(err, ErrPayoutNotFound)
	}
	return &payout, nil
}

// ListPayouts lists payout requests, optionally narrowed by affiliate (0 = all)
// and status (empty = all), newest first.
func (r *AffiliateRepository) ListPayouts(affiliateID uint, status models.LedgerStatus) ([]models.PayoutRequest, error) {
	var payouts []models.PayoutRequest
	db := r.db
	if affiliateID != 0 {
		db = db.Where("affiliate_id = ?", affiliateID)
	}
	if status != "" {
		db = db.Where("status = ?", status)
	}
	result := db.Order("created_at DESC, id DESC").Find(&payouts)
	return payouts, result.Error
}

// UpdatePayoutWithLock applies updateFn to a locked payout row and then
// settles its claimed commissions: a paid payout marks them paid, a rejected
// payout releases them back to the affiliate's balance.
func (r *AffiliateRepository) UpdatePayoutWithLock(id uint, updateFn func(*models.PayoutRequest) error) (*models.PayoutRequest, error) {
	var payout models.PayoutRequest
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payout, id).Error; err != nil {
			return notFound(err, ErrPayoutNotFound)
		}

		if err := updateFn(&payout); err != nil {
			return err
		}

		if err := tx.Save(&payout).Error; err != nil {
			return err
		}

		claimed := tx.Model(&models.Commission{}).Where("payout_request_id = ?", payout.ID)
		switch payout.Status {
		case models.LedgerPaid:
			return claimed.Updates(map[string]interface{}{
				"status":      models.LedgerPaid,
				"reviewed_at": payout.PaidAt,
			}).Error
		case models.LedgerRejected:
			return claimed.Update("payout_request_id", nil).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payout, nil
}
