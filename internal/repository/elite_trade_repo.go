package repository

import (
	"errors"
	"time"

	"github.com/edgelog/internal/models"
	"gorm.io/gorm"
)

var (
	ErrEliteTradeNotFound = errors.New("elite trade not found")
)

// EliteTradeQuery narrows a paginated Elite trade listing. Zero values are ignored.
type EliteTradeQuery struct {
	Symbol    string
	SetupName string
	Session   string
	Result    models.TradeResult
	Status    models.ClassificationStatus
	From      *time.Time
	To        *time.Time
}

// EliteTradeRepository handles Elite trade data access
type EliteTradeRepository struct {
	db *gorm.DB
}

// NewEliteTradeRepository creates a new EliteTradeRepository
func NewEliteTradeRepository(db *gorm.DB) *EliteTradeRepository {
	return &EliteTradeRepository{db: db}
}

// Create creates a new Elite trade
func (r *EliteTradeRepository) Create(trade *models.EliteTrade) error {
	return r.db.Create(trade).Error
}

// GetByIDAndUserID retrieves an Elite trade owned by the user
func (r *EliteTradeRepository) GetByIDAndUserID(id, userID uint) (*models.EliteTrade, error) {
	var trade models.EliteTrade
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&trade).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEliteTradeNotFound
		}
		return nil, err
	}
	return &trade, nil
}

// GetByUserID retrieves all Elite trades for a user, oldest first
func (r *EliteTradeRepository) GetByUserID(userID uint) ([]models.EliteTrade, error) {
	var trades []models.EliteTrade
	result := r.db.Where("user_id = ?", userID).Order("entry_time ASC").Find(&trades)
	return trades, result.Error
}

// GetByUserIDBetween retrieves Elite trades entered in [from, to)
func (r *EliteTradeRepository) GetByUserIDBetween(userID uint, from, to time.Time) ([]models.EliteTrade, error) {
	var trades []models.EliteTrade
	result := r.db.Where("user_id = ? AND entry_time >= ? AND entry_time < ?", userID, from, to).
		Order("entry_time ASC").
		Find(&trades)
	return trades, result.Error
}

// Search retrieves a filtered page of Elite trades, newest first
func (r *EliteTradeRepository) Search(userID uint, q EliteTradeQuery, page, pageSize int) ([]models.EliteTrade, int64, error) {
	var trades []models.EliteTrade
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Where("user_id = ?", userID)
		if q.Symbol != "" {
			db = db.Where("symbol = ?", q.Symbol)
		}
		if q.SetupName != "" {
			db = db.Where("setup_name = ?", q.SetupName)
		}
		if q.Session != "" {
			db = db.Where("session = ?", q.Session)
		}
		if q.Result != "" {
			db = db.Where("result = ?", q.Result)
		}
		if q.Status != "" {
			db = db.Where("classification_status = ?", q.Status)
		}
		if q.From != nil {
			db = db.Where("entry_time >= ?", *q.From)
		}
		if q.To != nil {
			db = db.Where("entry_time < ?", *q.To)
		}
		return db
	}

	if err := r.db.Model(&models.EliteTrade{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	result := r.db.Scopes(scope).
		Order("entry_time DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&trades)

	return trades, total, result.Error
}

// Update saves an Elite trade
func (r *EliteTradeRepository) Update(trade *models.EliteTrade) error {
	return r.db.Save(trade).Error
}

// Delete soft-deletes an Elite trade
func (r *EliteTradeRepository) Delete(id uint) error {
	return r.db.Delete(&models.EliteTrade{}, id).Error
}

// ConvertLegacy creates the Elite copy of a legacy trade and removes the
// legacy row in one transaction.
func (r *EliteTradeRepository) ConvertLegacy(legacyID uint, elite *models.EliteTrade) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(elite).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Trade{}, legacyID).Error
	})
}
