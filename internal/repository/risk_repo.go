package repository

import (
	"errors"

	"github.com/edgelog/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrRiskTrackerNotFound = errors.New("risk tracker not found")
)

// RiskRepository handles daily risk tracker data access
type RiskRepository struct {
	db *gorm.DB
}

// NewRiskRepository creates a new RiskRepository
func NewRiskRepository(db *gorm.DB) *RiskRepository {
	return &RiskRepository{db: db}
}

// GetByDay retrieves the tracker for one user day
func (r *RiskRepository) GetByDay(userID uint, day string) (*models.DailyRiskTracker, error) {
	var tracker models.DailyRiskTracker
	err := r.db.Where("user_id = ? AND day = ?", userID, day).First(&tracker).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRiskTrackerNotFound
		}
		return nil, err
	}
	return &tracker, nil
}

// Upsert inserts the tracker or overwrites the counters of the existing row
// for the same user day.
func (r *RiskRepository) Upsert(tracker *models.DailyRiskTracker) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"trades_taken", "wins", "losses", "net_r", "r_lost",
			"max_daily_loss_r", "max_trades_per_day",
			"loss_limit_hit", "trade_limit_hit", "updated_at",
		}),
	}).Create(tracker).Error
}

// GetRecent returns the user's most recent trackers, newest first
func (r *RiskRepository) GetRecent(userID uint, limit int) ([]models.DailyRiskTracker, error) {
	var trackers []models.DailyRiskTracker
	result := r.db.Where("user_id = ?", userID).Order("day DESC").Limit(limit).Find(&trackers)
	return trackers, result.Error
}
