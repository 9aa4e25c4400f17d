package service

import (
	"context"
	"strings"
	"time"

	"github.com/edgelog/internal/models"
	"github.com/edgelog/internal/repository"
	"gorm.io/datatypes"
)

const schemaElite = "elite"

// EliteTradeService handles fully classified journal entries
type EliteTradeService struct {
	eliteRepo *repository.EliteTradeRepository
	tradeRepo *repository.TradeRepository
	setupRepo *repository.SetupTypeRepository
	hooks     *JournalHooks
}

// NewEliteTradeService creates a new EliteTradeService
func NewEliteTradeService(
	eliteRepo *repository.EliteTradeRepository,
	tradeRepo *repository.TradeRepository,
	setupRepo *repository.SetupTypeRepository,
	hooks *JournalHooks,
) *EliteTradeService {
	return &EliteTradeService{
		eliteRepo: eliteRepo,
		tradeRepo: tradeRepo,
		setupRepo: setupRepo,
		hooks:     hooks,
	}
}

// EliteTradeRequest is the create/replace body of an Elite trade. Outcome
// and classification fields are derived and cannot be sent.
type EliteTradeRequest struct {
	Symbol      string           `json:"symbol" binding:"required,max=30"`
	Direction   models.Direction `json:"direction" binding:"required,oneof=long short"`
	AssetClass  string           `json:"asset_class" binding:"max=30"`
	SetupTypeID *uint            `json:"setup_type_id"`
	SetupName   string           `json:"setup_name" binding:"max=100"`
	SetupGrade  string           `json:"setup_grade" binding:"omitempty,oneof=A+ A B C"`
	Timeframe   string           `json:"timeframe" binding:"max=10"`

	EntryTime time.Time  `json:"entry_time" binding:"required"`
	ExitTime  *time.Time `json:"exit_time"`
	Session   string     `json:"session" binding:"omitempty,oneof=asia london new_york off_hours"`
	KillZone  *bool      `json:"kill_zone"`

	HTFBias         string `json:"htf_bias" binding:"max=20"`
	HTFTimeframe    string `json:"htf_timeframe" binding:"max=10"`
	BiasAligned     *bool  `json:"bias_aligned"`
	MarketStructure string `json:"market_structure" binding:"max=30"`
	PremiumDiscount string `json:"premium_discount" binding:"max=20"`
	DailyOpenSide   string `json:"daily_open_side" binding:"max=10"`

	LiquiditySweep    *bool  `json:"liquidity_sweep"`
	LiquidityType     string `json:"liquidity_type" binding:"max=30"`
	SweepTimeframe    string `json:"sweep_timeframe" binding:"max=10"`
	InducementPresent *bool  `json:"inducement_present"`

	EntryModel          string   `json:"entry_model" binding:"max=50"`
	EntryTimeframe      string   `json:"entry_timeframe" binding:"max=10"`
	OrderType           string   `json:"order_type" binding:"max=20"`
	ConfirmationPresent *bool    `json:"confirmation_present"`
	ConfirmationType    string   `json:"confirmation_type" binding:"max=50"`
	Confluences         []string `json:"confluences" binding:"max=30,dive,max=50"`
	NewsDay             *bool    `json:"news_day"`
	HighImpactNews      *bool    `json:"high_impact_news"`

	EntryPrice        float64  `json:"entry_price" binding:"required,gt=0"`
	StopLoss          float64  `json:"stop_loss" binding:"required,gt=0"`
	TakeProfit        *float64 `json:"take_profit" binding:"omitempty,gt=0"`
	ExitPrice         *float64 `json:"exit_price" binding:"omitempty,gt=0"`
	PositionSize      float64  `json:"position_size" binding:"min=0"`
	RiskPercent       float64  `json:"risk_percent" binding:"min=0,max=100"`
	Fees              float64  `json:"fees" binding:"min=0"`
	MaxAdversePrice   *float64 `json:"max_adverse_price" binding:"omitempty,gt=0"`
	MaxFavorablePrice *float64 `json:"max_favorable_price" binding:"omitempty,gt=0"`

	RulesFollowed  *bool    `json:"rules_followed"`
	EnteredEarly   *bool    `json:"entered_early"`
	EnteredLate    *bool    `json:"entered_late"`
	MovedStop      *bool    `json:"moved_stop"`
	ExitedEarly    *bool    `json:"exited_early"`
	ScaledOut      *bool    `json:"scaled_out"`
	ExecutionScore *int     `json:"execution_score" binding:"omitempty,min=1,max=10"`
	Mistakes       []string `json:"mistakes" binding:"max=30,dive,max=50"`
	ExecutionTags  []string `json:"execution_tags" binding:"max=30,dive,max=50"`

	EmotionalStateBefore string `json:"emotional_state_before" binding:"max=50"`
	EmotionalStateAfter  string `json:"emotional_state_after" binding:"max=50"`
	ConfidenceLevel      *int   `json:"confidence_level" binding:"omitempty,min=1,max=10"`
	FocusLevel           *int   `json:"focus_level" binding:"omitempty,min=1,max=10"`
	SleepQuality         *int   `json:"sleep_quality" binding:"omitempty,min=1,max=10"`
	FOMO                 *bool  `json:"fomo"`
	Hesitation           *bool  `json:"hesitation"`
	RevengeTrade         *bool  `json:"revenge_trade"`
	Fatigue              *bool  `json:"fatigue"`

	Notes               string   `json:"notes"`
	Lessons             string   `json:"lessons"`
	ScreenshotBeforeURL string   `json:"screenshot_before_url" binding:"omitempty,url,max=500"`
	ScreenshotAfterURL  string   `json:"screenshot_after_url" binding:"omitempty,url,max=500"`
	Tags                []string `json:"tags" binding:"max=30,dive,max=50"`
}

// EliteTradeQuery is the listing filter bound from query parameters
type EliteTradeQuery struct {
	Symbol  string     `form:"symbol"`
	Setup   string     `form:"setup"`
	Session string     `form:"session"`
	Result  string     `form:"result" binding:"omitempty,oneof=open win loss breakeven"`
	Status  string     `form:"status" binding:"omitempty,oneof=legacy_unclassified partially_classified fully_classified"`
	From    *time.Time `form:"from" time_format:"2006-01-02"`
	To      *time.Time `form:"to" time_format:"2006-01-02"`
}

func normalizeTags(in []string) datatypes.JSONSlice[string] {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, tag := range in {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return datatypes.JSONSlice[string](out)
}

func (req *EliteTradeRequest) apply(t *models.EliteTrade) error {
	if req.ExitTime != nil && req.ExitTime.Before(req.EntryTime) {
		return ErrInvalidTradeTimes
	}

	t.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	t.Direction = req.Direction
	t.AssetClass = req.AssetClass
	t.SetupTypeID = req.SetupTypeID
	t.SetupName = strings.TrimSpace(req.SetupName)
	t.SetupGrade = req.SetupGrade
	t.Timeframe = req.Timeframe

	t.EntryTime = req.EntryTime.UTC()
	t.ExitTime = utcPtr(req.ExitTime)
	t.Session = req.Session
	t.SessionInferred = false
	t.KillZone = req.KillZone

	t.HTFBias = strings.ToLower(req.HTFBias)
	t.HTFTimeframe = req.HTFTimeframe
	t.BiasAligned = req.BiasAligned
	t.MarketStructure = req.MarketStructure
	t.PremiumDiscount = req.PremiumDiscount
	t.DailyOpenSide = req.DailyOpenSide

	t.LiquiditySweep = req.LiquiditySweep
	t.LiquidityType = req.LiquidityType
	t.SweepTimeframe = req.SweepTimeframe
	t.InducementPresent = req.InducementPresent

	t.EntryModel = req.EntryModel
	t.EntryTimeframe = req.EntryTimeframe
	t.OrderType = req.OrderType
	t.ConfirmationPresent = req.ConfirmationPresent
	t.ConfirmationType = req.ConfirmationType
	t.Confluences = normalizeTags(req.Confluences)
	t.NewsDay = req.NewsDay
	t.HighImpactNews = req.HighImpactNews

	t.EntryPrice = req.EntryPrice
	t.StopLoss = req.StopLoss
	t.TakeProfit = req.TakeProfit
	t.ExitPrice = req.ExitPrice
	t.PositionSize = req.PositionSize
	t.RiskPercent = req.RiskPercent
	t.Fees = req.Fees
	t.MaxAdversePrice = req.MaxAdversePrice
	t.MaxFavorablePrice = req.MaxFavorablePrice

	t.RulesFollowed = req.RulesFollowed
	t.EnteredEarly = req.EnteredEarly
	t.EnteredLate = req.EnteredLate
	t.MovedStop = req.MovedStop
	t.ExitedEarly = req.ExitedEarly
	t.ScaledOut = req.ScaledOut
	t.ExecutionScore = req.ExecutionScore
	t.Mistakes = normalizeTags(req.Mistakes)
	t.ExecutionTags = normalizeTags(req.ExecutionTags)

	t.EmotionalStateBefore = strings.ToLower(strings.TrimSpace(req.EmotionalStateBefore))
	t.EmotionalStateAfter = strings.ToLower(strings.TrimSpace(req.EmotionalStateAfter))
	t.ConfidenceLevel = req.ConfidenceLevel
	t.FocusLevel = req.FocusLevel
	t.SleepQuality = req.SleepQuality
	t.FOMO = req.FOMO
	t.Hesitation = req.Hesitation
	t.RevengeTrade = req.RevengeTrade
	t.Fatigue = req.Fatigue

	t.Notes = req.Notes
	t.Lessons = req.Lessons
	t.ScreenshotBeforeURL = req.ScreenshotBeforeURL
	t.ScreenshotAfterURL = req.ScreenshotAfterURL
	t.Tags = normalizeTags(req.Tags)

	return t.Recompute()
}

// resolveSetup links the trade to the user's setup taxonomy. A setup id
// must belong to the user and supplies the setup name when none is given.
func (s *EliteTradeService) resolveSetup(userID uint, t *models.EliteTrade) error {
	if t.SetupTypeID == nil {
		return nil
	}
	setup, err := s.setupRepo.GetByIDAndUserID(*t.SetupTypeID, userID)
	if err != nil {
		return err
	}
	if t.SetupName == "" {
		t.SetupName = setup.Name
		t.Classify()
	}
	return nil
}

// CreateTrade records an Elite trade
func (s *EliteTradeService) CreateTrade(ctx context.Context, userID uint, req *EliteTradeRequest) (*models.EliteTrade, error) {
	trade := &models.EliteTrade{UserID: userID}
	if err := req.apply(trade); err != nil {
		return nil, err
	}
	if err := s.resolveSetup(userID, trade); err != nil {
		return nil, err
	}

	if err := s.eliteRepo.Create(trade); err != nil {
		return nil, err
	}

	s.hooks.TradeWritten(ctx, userID, schemaElite, "created", trade.ID, trade.EntryTime)
	return trade, nil
}

// GetTrade retrieves an Elite trade owned by the user
func (s *EliteTradeService) GetTrade(userID, tradeID uint) (*models.EliteTrade, error) {
	return s.eliteRepo.GetByIDAndUserID(tradeID, userID)
}

// SearchTrades lists the user's Elite trades matching q, newest first
func (s *EliteTradeService) SearchTrades(userID uint, q *EliteTradeQuery, page, pageSize int) ([]models.EliteTrade, int64, error) {
	rq := repository.EliteTradeQuery{
		Symbol:    strings.ToUpper(q.Symbol),
		SetupName: q.Setup,
		Session:   q.Session,
		Result:    models.TradeResult(q.Result),
		Status:    models.ClassificationStatus(q.Status),
		From:      q.From,
	}
	if q.To != nil {
		end := q.To.AddDate(0, 0, 1)
		rq.To = &end
	}
	return s.eliteRepo.Search(userID, rq, page, pageSize)
}

// UpdateTrade replaces an Elite trade and reclassifies it
func (s *EliteTradeService) UpdateTrade(ctx context.Context, userID, tradeID uint, req *EliteTradeRequest) (*models.EliteTrade, error) {
	trade, err := s.eliteRepo.GetByIDAndUserID(tradeID, userID)
	if err != nil {
		return nil, err
	}

	previousEntry := trade.EntryTime
	if err := req.apply(trade); err != nil {
		return nil, err
	}
	if err := s.resolveSetup(userID, trade); err != nil {
		return nil, err
	}

	if err := s.eliteRepo.Update(trade); err != nil {
		return nil, err
	}

	s.hooks.TradeWritten(ctx, userID, schemaElite, "updated", trade.ID, previousEntry, trade.EntryTime)
	return trade, nil
}

// DeleteTrade removes an Elite trade
func (s *EliteTradeService) DeleteTrade(ctx context.Context, userID, tradeID uint) error {
	trade, err := s.eliteRepo.GetByIDAndUserID(tradeID, userID)
	if err != nil {
		return err
	}

	if err := s.eliteRepo.Delete(trade.ID); err != nil {
		return err
	}

	s.hooks.TradeWritten(ctx, userID, schemaElite, "deleted", trade.ID, trade.EntryTime)
	return nil
}

// ConvertLegacyTrade moves a legacy trade into the Elite journal, carrying
// over every field the two schemas share. The new trade starts as
// unclassified or partially classified until the user fills it in.
func (s *EliteTradeService) ConvertLegacyTrade(ctx context.Context, userID, legacyID uint) (*models.EliteTrade, error) {
	legacy, err := s.tradeRepo.GetByIDAndUserID(legacyID, userID)
	if err != nil {
		return nil, err
	}

	trade := &models.EliteTrade{
		UserID:               userID,
		Symbol:               legacy.Symbol,
		Direction:            legacy.Direction,
		SetupName:            legacy.Setup,
		EntryTime:            legacy.EntryTime,
		ExitTime:             legacy.ExitTime,
		Session:              legacy.Session,
		EntryPrice:           legacy.EntryPrice,
		StopLoss:             legacy.StopLoss,
		TakeProfit:           legacy.TakeProfit,
		ExitPrice:            legacy.ExitPrice,
		PositionSize:         legacy.PositionSize,
		Fees:                 legacy.Fees,
		EmotionalStateBefore: legacy.EmotionalState,
		Notes:                legacy.Notes,
		ScreenshotBeforeURL:  legacy.ScreenshotURL,
	}
	if err := trade.Recompute(); err != nil {
		return nil, err
	}

	if err := s.eliteRepo.ConvertLegacy(legacy.ID, trade); err != nil {
		return nil, err
	}

	s.hooks.TradeWritten(ctx, userID, schemaElite, "converted", trade.ID, trade.EntryTime)
	return trade, nil
}
