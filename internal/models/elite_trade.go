package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Setup grades in descending quality
const (
	GradeAPlus = "A+"
	GradeA     = "A"
	GradeB     = "B"
	GradeC     = "C"
)

// Trading sessions
const (
	SessionAsia     = "asia"
	SessionLondon   = "london"
	SessionNewYork  = "new_york"
	SessionOffHours = "off_hours"
)

// EliteTrade is the fully classified journal entry. Outcome fields are
// computed by Recompute and never accepted from clients.
type EliteTrade struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"index;not null" json:"user_id"`

	// Instrument and setup
	Symbol      string    `gorm:"size:30;not null;index" json:"symbol"`
	Direction   Direction `gorm:"size:10;not null" json:"direction"`
	AssetClass  string    `gorm:"size:30" json:"asset_class"`
	SetupTypeID *uint     `gorm:"index" json:"setup_type_id,omitempty"`
	SetupName   string    `gorm:"size:100;index" json:"setup_name"`
	SetupGrade  string    `gorm:"size:5" json:"setup_grade"`
	Timeframe   string    `gorm:"size:10" json:"timeframe"`

	// Timing
	EntryTime time.Time  `gorm:"index;not null" json:"entry_time"`
	ExitTime  *time.Time `json:"exit_time,omitempty"`
	Session   string     `gorm:"size:30;index" json:"session"`
	// SessionInferred is set when Session was derived from EntryTime
	SessionInferred bool  `gorm:"default:false" json:"session_inferred"`
	KillZone        *bool `json:"kill_zone,omitempty"`

	// Higher-timeframe context
	HTFBias         string `gorm:"size:20" json:"htf_bias"`
	HTFTimeframe    string `gorm:"size:10" json:"htf_timeframe"`
	BiasAligned     *bool  `json:"bias_aligned,omitempty"`
	MarketStructure string `gorm:"size:30" json:"market_structure"`
	PremiumDiscount string `gorm:"size:20" json:"premium_discount"`
	DailyOpenSide   string `gorm:"size:10" json:"daily_open_side"`

	// Liquidity context
	LiquiditySweep    *bool  `json:"liquidity_sweep,omitempty"`
	LiquidityType     string `gorm:"size:30" json:"liquidity_type"`
	SweepTimeframe    string `gorm:"size:10" json:"sweep_timeframe"`
	InducementPresent *bool  `json:"inducement_present,omitempty"`

	// Entry mechanics
	EntryModel          string                      `gorm:"size:50" json:"entry_model"`
	EntryTimeframe      string                      `gorm:"size:10" json:"entry_timeframe"`
	OrderType           string                      `gorm:"size:20" json:"order_type"`
	ConfirmationPresent *bool                       `json:"confirmation_present,omitempty"`
	ConfirmationType    string                      `gorm:"size:50" json:"confirmation_type"`
	Confluences         datatypes.JSONSlice[string] `json:"confluences"`
	NewsDay             *bool                       `json:"news_day,omitempty"`
	HighImpactNews      *bool                       `json:"high_impact_news,omitempty"`

	// Prices and sizing
	EntryPrice        float64  `gorm:"not null" json:"entry_price"`
	StopLoss          float64  `gorm:"not null" json:"stop_loss"`
	TakeProfit        *float64 `json:"take_profit,omitempty"`
	ExitPrice         *float64 `json:"exit_price,omitempty"`
	PositionSize      float64  `gorm:"default:0" json:"position_size"`
	RiskPercent       float64  `gorm:"default:0" json:"risk_percent"`
	Fees              float64  `gorm:"default:0" json:"fees"`
	MaxAdversePrice   *float64 `json:"max_adverse_price,omitempty"`
	MaxFavorablePrice *float64 `json:"max_favorable_price,omitempty"`

	// Execution quality
	RulesFollowed  *bool                       `json:"rules_followed,omitempty"`
	EnteredEarly   *bool                       `json:"entered_early,omitempty"`
	EnteredLate    *bool                       `json:"entered_late,omitempty"`
	MovedStop      *bool                       `json:"moved_stop,omitempty"`
	ExitedEarly    *bool                       `json:"exited_early,omitempty"`
	ScaledOut      *bool                       `json:"scaled_out,omitempty"`
	ExecutionScore *int                        `json:"execution_score,omitempty"`
	Mistakes       datatypes.JSONSlice[string] `json:"mistakes"`
	ExecutionTags  datatypes.JSONSlice[string] `json:"execution_tags"`

	// Psychology
	EmotionalStateBefore string `gorm:"size:50" json:"emotional_state_before"`
	EmotionalStateAfter  string `gorm:"size:50" json:"emotional_state_after"`
	ConfidenceLevel      *int   `json:"confidence_level,omitempty"`
	FocusLevel           *int   `json:"focus_level,omitempty"`
	SleepQuality         *int   `json:"sleep_quality,omitempty"`
	FOMO                 *bool  `json:"fomo,omitempty"`
	Hesitation           *bool  `json:"hesitation,omitempty"`
	RevengeTrade         *bool  `json:"revenge_trade,omitempty"`
	Fatigue              *bool  `json:"fatigue,omitempty"`

	// Auto-computed outcome
	Result          TradeResult `gorm:"size:20;not null;default:'open';index" json:"result"`
	RMultiple       *float64    `json:"r_multiple,omitempty"`
	PnL             *float64    `json:"pnl,omitempty"`
	MAER            *float64    `gorm:"column:mae_r" json:"mae_r,omitempty"`
	MFER            *float64    `gorm:"column:mfe_r" json:"mfe_r,omitempty"`
	PlannedRR       *float64    `json:"planned_rr,omitempty"`
	DurationMinutes *int        `json:"duration_minutes,omitempty"`

	// Review
	Notes               string                      `gorm:"type:text" json:"notes"`
	Lessons             string                      `gorm:"type:text" json:"lessons"`
	ScreenshotBeforeURL string                      `gorm:"size:500" json:"screenshot_before_url"`
	ScreenshotAfterURL  string                      `gorm:"size:500" json:"screenshot_after_url"`
	Tags                datatypes.JSONSlice[string] `json:"tags"`

	ClassificationStatus ClassificationStatus `gorm:"size:30;not null;default:'legacy_unclassified';index" json:"classification_status"`
	ClassifiedFields     int                  `gorm:"default:0" json:"classified_fields"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for EliteTrade model
func (EliteTrade) TableName() string {
	return "elite_trades"
}

// RequiredClassificationFields is the number of fields Classify checks
const RequiredClassificationFields = 10

// Classify sets the classification status from how many of the required
// classification fields are filled in.
func (t *EliteTrade) Classify() {
	filled := 0
	for _, ok := range []bool{
		t.Session != "" && !t.SessionInferred,
		t.HTFBias != "",
		t.SetupName != "",
		t.SetupGrade != "",
		t.EntryModel != "",
		t.ConfirmationPresent != nil,
		t.LiquiditySweep != nil,
		t.RulesFollowed != nil,
		t.EmotionalStateBefore != "",
		t.ConfidenceLevel != nil,
	} {
		if ok {
			filled++
		}
	}

	t.ClassifiedFields = filled
	switch {
	case filled == 0:
		t.ClassificationStatus = StatusLegacyUnclassified
	case filled < RequiredClassificationFields:
		t.ClassificationStatus = StatusPartiallyClassified
	default:
		t.ClassificationStatus = StatusFullyClassified
	}
}

// Recompute refreshes the outcome fields, duration and classification
func (t *EliteTrade) Recompute() error {
	out, err := ComputeOutcome(OutcomeInput{
		Direction:         t.Direction,
		EntryPrice:        t.EntryPrice,
		StopLoss:          t.StopLoss,
		TakeProfit:        t.TakeProfit,
		ExitPrice:         t.ExitPrice,
		PositionSize:      t.PositionSize,
		Fees:              t.Fees,
		MaxAdversePrice:   t.MaxAdversePrice,
		MaxFavorablePrice: t.MaxFavorablePrice,
	})
	if err != nil {
		return err
	}

	t.Result = out.Result
	t.RMultiple = out.RMultiple
	t.PnL = out.PnL
	t.MAER = out.MAER
	t.MFER = out.MFER
	t.PlannedRR = out.PlannedRR

	t.DurationMinutes = nil
	if t.ExitTime != nil && t.ExitTime.After(t.EntryTime) {
		mins := int(t.ExitTime.Sub(t.EntryTime).Minutes())
		t.DurationMinutes = &mins
	}

	if t.Session == "" {
		t.Session = SessionFor(t.EntryTime)
		t.SessionInferred = true
	}

	t.Classify()
	return nil
}

// Conditions returns the boolean-ish attributes used by condition-impact
// analysis, keyed by name. Nil means the attribute was not recorded.
func (t *EliteTrade) Conditions() map[string]*bool {
	return map[string]*bool{
		"rules_followed":       t.RulesFollowed,
		"confirmation_present": t.ConfirmationPresent,
		"news_day":             t.NewsDay,
		"high_impact_news":     t.HighImpactNews,
		"liquidity_sweep":      t.LiquiditySweep,
		"bias_aligned":         t.BiasAligned,
		"inducement_present":   t.InducementPresent,
		"kill_zone":            t.KillZone,
		"entered_early":        t.EnteredEarly,
		"entered_late":         t.EnteredLate,
		"moved_stop":           t.MovedStop,
		"exited_early":         t.ExitedEarly,
		"scaled_out":           t.ScaledOut,
		"fomo":                 t.FOMO,
		"hesitation":           t.Hesitation,
		"revenge_trade":        t.RevengeTrade,
		"fatigue":              t.Fatigue,
	}
}

// SessionFor maps a UTC entry time onto a trading session
func SessionFor(t time.Time) string {
	h := t.UTC().Hour()
	switch {
	case h < 7:
		return SessionAsia
	case h < 12:
		return SessionLondon
	case h < 21:
		return SessionNewYork
	default:
		return SessionOffHours
	}
}
