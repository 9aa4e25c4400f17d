package repository

import (
	"errors"
	"time"

	"github.com/edgelog/internal/models"
	"gorm.io/gorm"
)

var (
	ErrTradeNotFound = errors.New("trade not found")
)

// TradeRepository handles legacy trade data access
type TradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository creates a new TradeRepository
func NewTradeRepository(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Create creates a new trade
func (r *TradeRepository) Create(trade *models.Trade) error {
	return r.db.Create(trade).Error
}

// GetByIDAndUserID retrieves a trade owned by the user
func (r *TradeRepository) GetByIDAndUserID(id, userID uint) (*models.Trade, error) {
	var trade models.Trade
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&trade).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTradeNotFound
		}
		return nil, err
	}
	return &trade, nil
}

// GetByUserID retrieves all trades for a user, oldest first
func (r *TradeRepository) GetByUserID(userID uint) ([]models.Trade, error) {
	var trades []models.Trade
	result := r.db.Where("user_id = ?", userID).Order("entry_time ASC").Find(&trades)
	return trades, result.Error
}

// GetByUserIDPaginated retrieves trades with pagination, newest first
func (r *TradeRepository) GetByUserIDPaginated(userID uint, page, pageSize int) ([]models.Trade, int64, error) {
	var trades []models.Trade
	var total int64

	if err := r.db.Model(&models.Trade{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	result := r.db.Where("user_id = ?", userID).
		Order("entry_time DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&trades)

	return trades, total, result.Error
}

// GetByUserIDBetween retrieves trades entered in [from, to)
func (r *TradeRepository) GetByUserIDBetween(userID uint, from, to time.Time) ([]models.Trade, error) {
	var trades []models.Trade
	result := r.db.Where("user_id = ? AND entry_time >= ? AND entry_time < ?", userID, from, to).
		Order("entry_time ASC").
		Find(&trades)
	return trades, result.Error
}

// Update saves a trade
func (r *TradeRepository) Update(trade *models.Trade) error {
	return r.db.Save(trade).Error
}

// Delete soft-deletes a trade
func (r *TradeRepository) Delete(id uint) error {
	return r.db.Delete(&models.Trade{}, id).Error
}

// CountByUserID counts a user's trades
func (r *TradeRepository) CountByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Trade{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
