package models

import "time"

// DailyRiskTracker summarises one user's trading day against their limits
type DailyRiskTracker struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID uint   `gorm:"uniqueIndex:idx_risk_user_day;not null" json:"user_id"`
	Day    string `gorm:"uniqueIndex:idx_risk_user_day;size:10;not null" json:"day"` // YYYY-MM-DD in the user's zone

	TradesTaken int     `gorm:"default:0" json:"trades_taken"`
	Wins        int     `gorm:"default:0" json:"wins"`
	Losses      int     `gorm:"default:0" json:"losses"`
	NetR        float64 `gorm:"default:0" json:"net_r"`
	RLost       float64 `gorm:"default:0" json:"r_lost"`

	MaxDailyLossR   float64 `json:"max_daily_loss_r"`
	MaxTradesPerDay int     `json:"max_trades_per_day"`
	LossLimitHit    bool    `gorm:"default:false" json:"loss_limit_hit"`
	TradeLimitHit   bool    `gorm:"default:false" json:"trade_limit_hit"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for DailyRiskTracker model
func (DailyRiskTracker) TableName() string {
	return "daily_risk_trackers"
}

// Locked reports whether the trader should stop for the day
func (d *DailyRiskTracker) Locked() bool {
	return d.LossLimitHit || d.TradeLimitHit
}

// RemainingR is the loss budget still available, never negative
func (d *DailyRiskTracker) RemainingR() float64 {
	if d.MaxDailyLossR <= 0 {
		return 0
	}
	left := d.MaxDailyLossR - d.RLost
	if left < 0 {
		return 0
	}
	return round4(left)
}
