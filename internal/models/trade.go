package models

import (
	"time"

	"gorm.io/gorm"
)

// ClassificationStatus tracks how much Elite metadata a trade carries
type ClassificationStatus string

const (
	StatusLegacyUnclassified  ClassificationStatus = "legacy_unclassified"
	StatusPartiallyClassified ClassificationStatus = "partially_classified"
	StatusFullyClassified     ClassificationStatus = "fully_classified"
)

// Rank orders classification statuses from least to most classified
func (s ClassificationStatus) Rank() int {
	switch s {
	case StatusPartiallyClassified:
		return 1
	case StatusFullyClassified:
		return 2
	default:
		return 0
	}
}

// Trade is the legacy simple journal entry
type Trade struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	UserID         uint        `gorm:"index;not null" json:"user_id"`
	Symbol         string      `gorm:"size:30;not null;index" json:"symbol"`
	Direction      Direction   `gorm:"size:10;not null" json:"direction"`
	Setup          string      `gorm:"size:100;index" json:"setup"`
	Session        string      `gorm:"size:30" json:"session"`
	EntryPrice     float64     `gorm:"not null" json:"entry_price"`
	StopLoss       float64     `gorm:"not null" json:"stop_loss"`
	TakeProfit     *float64    `json:"take_profit,omitempty"`
	ExitPrice      *float64    `json:"exit_price,omitempty"`
	PositionSize   float64     `gorm:"default:0" json:"position_size"`
	Fees           float64     `gorm:"default:0" json:"fees"`
	EntryTime      time.Time   `gorm:"index;not null" json:"entry_time"`
	ExitTime       *time.Time  `json:"exit_time,omitempty"`
	EmotionalState string      `gorm:"size:50" json:"emotional_state"`
	Notes          string      `gorm:"type:text" json:"notes"`
	ScreenshotURL  string      `gorm:"size:500" json:"screenshot_url"`
	Result         TradeResult `gorm:"size:20;not null;default:'open';index" json:"result"`
	RMultiple      *float64    `json:"r_multiple,omitempty"`
	PnL            *float64    `json:"pnl,omitempty"`
	PlannedRR      *float64    `json:"planned_rr,omitempty"`

	ClassificationStatus ClassificationStatus `gorm:"size:30;not null;default:'legacy_unclassified'" json:"classification_status"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for Trade model
func (Trade) TableName() string {
	return "trades"
}

// Recompute refreshes the derived outcome fields from the trade's prices. A
// legacy trade is partially classified once both setup and session are set.
func (t *Trade) Recompute() error {
	out, err := ComputeOutcome(OutcomeInput{
		Direction:    t.Direction,
		EntryPrice:   t.EntryPrice,
		StopLoss:     t.StopLoss,
		TakeProfit:   t.TakeProfit,
		ExitPrice:    t.ExitPrice,
		PositionSize: t.PositionSize,
		Fees:         t.Fees,
	})
	if err != nil {
		return err
	}

	t.Result = out.Result
	t.RMultiple = out.RMultiple
	t.PnL = out.PnL
	t.PlannedRR = out.PlannedRR
	t.ClassificationStatus = StatusLegacyUnclassified
	if t.Setup != "" && t.Session != "" {
		t.ClassificationStatus = StatusPartiallyClassified
	}
	return nil
}

// IsClosed returns true once an exit has been recorded
func (t *Trade) IsClosed() bool {
	return t.Result != ResultOpen && t.RMultiple != nil
}
