package service

import (
	"context"
	"strings"
	"time"

	"github.com/edgelog/internal/models"
	"github.com/edgelog/internal/repository"
)

const schemaLegacy = "legacy"

// TradeService handles legacy journal entries
type TradeService struct {
	tradeRepo *repository.TradeRepository
	hooks     *JournalHooks
}

// NewTradeService creates a new TradeService
func NewTradeService(tradeRepo *repository.TradeRepository, hooks *JournalHooks) *TradeService {
	return &TradeService{
		tradeRepo: tradeRepo,
		hooks:     hooks,
	}
}

// TradeRequest is the create/replace body of a legacy trade
type TradeRequest struct {
	Symbol         string           `json:"symbol" binding:"required,max=30"`
	Direction      models.Direction `json:"direction" binding:"required,oneof=long short"`
	Setup          string           `json:"setup" binding:"max=100"`
	Session        string           `json:"session" binding:"max=30"`
	EntryPrice     float64          `json:"entry_price" binding:"required,gt=0"`
	StopLoss       float64          `json:"stop_loss" binding:"required,gt=0"`
	TakeProfit     *float64         `json:"take_profit" binding:"omitempty,gt=0"`
	ExitPrice      *float64         `json:"exit_price" binding:"omitempty,gt=0"`
	PositionSize   float64          `json:"position_size" binding:"min=0"`
	Fees           float64          `json:"fees" binding:"min=0"`
	EntryTime      time.Time        `json:"entry_time" binding:"required"`
	ExitTime       *time.Time       `json:"exit_time"`
	EmotionalState string           `json:"emotional_state" binding:"max=50"`
	Notes          string           `json:"notes"`
	ScreenshotURL  string           `json:"screenshot_url" binding:"omitempty,url,max=500"`
}

func (req *TradeRequest) apply(t *models.Trade) error {
	if req.ExitTime != nil && req.ExitTime.Before(req.EntryTime) {
		return ErrInvalidTradeTimes
	}

	t.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	t.Direction = req.Direction
	t.Setup = strings.TrimSpace(req.Setup)
	t.Session = strings.ToLower(strings.TrimSpace(req.Session))
	t.EntryPrice = req.EntryPrice
	t.StopLoss = req.StopLoss
	t.TakeProfit = req.TakeProfit
	t.ExitPrice = req.ExitPrice
	t.PositionSize = req.PositionSize
	t.Fees = req.Fees
	t.EntryTime = req.EntryTime.UTC()
	t.ExitTime = utcPtr(req.ExitTime)
	t.EmotionalState = strings.ToLower(strings.TrimSpace(req.EmotionalState))
	t.Notes = req.Notes
	t.ScreenshotURL = req.ScreenshotURL

	return t.Recompute()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// CreateTrade records a legacy trade
func (s *TradeService) CreateTrade(ctx context.Context, userID uint, req *TradeRequest) (*models.Trade, error) {
	trade := &models.Trade{UserID: userID}
	if err := req.apply(trade); err != nil {
		return nil, err
	}

	if err := s.tradeRepo.Create(trade); err != nil {
		return nil, err
	}

	s.hooks.TradeWritten(ctx, userID, schemaLegacy, "created", trade.ID, trade.EntryTime)
	return trade, nil
}

// GetTrade retrieves a legacy trade owned by the user
func (s *TradeService) GetTrade(userID, tradeID uint) (*models.Trade, error) {
	return s.tradeRepo.GetByIDAndUserID(tradeID, userID)
}

// GetTradesPaginated lists the user's legacy trades, newest first
func (s *TradeService) GetTradesPaginated(userID uint, page, pageSize int) ([]models.Trade, int64, error) {
	return s.tradeRepo.GetByUserIDPaginated(userID, page, pageSize)
}

// UpdateTrade replaces a legacy trade and recomputes its outcome
func (s *TradeService) UpdateTrade(ctx context.Context, userID, tradeID uint, req *TradeRequest) (*models.Trade, error) {
	trade, err := s.tradeRepo.GetByIDAndUserID(tradeID, userID)
	if err != nil {
		return nil, err
	}

	previousEntry := trade.EntryTime
	if err := req.apply(trade); err != nil {
		return nil, err
	}

	if err := s.tradeRepo.Update(trade); err != nil {
		return nil, err
	}

	s.hooks.TradeWritten(ctx, userID, schemaLegacy, "updated", trade.ID, previousEntry, trade.EntryTime)
	return trade, nil
}

// DeleteTrade removes a legacy trade
func (s *TradeService) DeleteTrade(ctx context.Context, userID, tradeID uint) error {
	trade, err := s.tradeRepo.GetByIDAndUserID(tradeID, userID)
	if err != nil {
		return err
	}

	if err := s.tradeRepo.Delete(trade.ID); err != nil {
		return err
	}

	s.hooks.TradeWritten(ctx, userID, schemaLegacy, "deleted", trade.ID, trade.EntryTime)
	return nil
}
