package repository

import (
	"errors"
	"time"

	"github.com/edgelog/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
)

// PaymentRepository handles payment transaction data access
type PaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// CreateIfAbsent inserts the payment unless the provider reference is
// already recorded. created reports whether a new row was written.
func (r *PaymentRepository) CreateIfAbsent(payment *models.PaymentTransaction) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(payment)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SettleWith moves a payment to succeeded and runs apply in the same
// transaction. Only the first caller sees applied=true and only that caller's
// apply runs; an apply error rolls the status back so a retry can settle it.
func (r *PaymentRepository) SettleWith(id uint, rawStatus string, payload datatypes.JSON, paidAt time.Time, apply func(tx *gorm.DB) error) (bool, error) {
	applied := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.PaymentTransaction{}).
			Where("id = ? AND status <> ?", id, models.PaymentSucceeded).
			Updates(map[string]interface{}{
				"status":     models.PaymentSucceeded,
				"raw_status": rawStatus,
				"payload":    payload,
				"paid_at":    paidAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		if apply != nil {
			if err := apply(tx); err != nil {
				return err
			}
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// UpdateStatus records a non-terminal provider status without touching a
// payment that already succeeded.
func (r *PaymentRepository) UpdateStatus(id uint, status models.PaymentStatus, rawStatus string, payload datatypes.JSON) error {
	return r.db.Model(&models.PaymentTransaction{}).
		Where("id = ? AND status <> ?", id, models.PaymentSucceeded).
		Updates(map[string]interface{}{
			"status":     status,
			"raw_status": rawStatus,
			"payload":    payload,
		}).Error
}

// GetByReference retrieves a payment by provider reference
func (r *PaymentRepository) GetByReference(provider models.PaymentProvider, reference string) (*models.PaymentTransaction, error) {
	var payment models.PaymentTransaction
	err := r.db.Where("provider = ? AND reference = ?", provider, reference).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// GetByUserIDPaginated lists a user's payments, newest first
func (r *PaymentRepository) GetByUserIDPaginated(userID uint, page, pageSize int) ([]models.PaymentTransaction, int64, error) {
	var payments []models.PaymentTransaction
	var total int64

	if err := r.db.Model(&models.PaymentTransaction{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	result := r.db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&payments)
	return payments, total, result.Error
}
