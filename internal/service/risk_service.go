package service

import (
	"errors"
	"math"
	"time"

	"github.com/edgelog/internal/analytics"
	"github.com/edgelog/internal/config"
	"github.com/edgelog/internal/models"
	"github.com/edgelog/internal/repository"
)

const dayLayout = "2006-01-02"

// RiskService maintains the per-day risk trackers
type RiskService struct {
	riskRepo  *repository.RiskRepository
	tradeRepo *repository.TradeRepository
	eliteRepo *repository.EliteTradeRepository
	userRepo  *repository.UserRepository
	cfg       config.RiskConfig
	now       func() time.Time
}

// NewRiskService creates a new RiskService
func NewRiskService(
	riskRepo *repository.RiskRepository,
	tradeRepo *repository.TradeRepository,
	eliteRepo *repository.EliteTradeRepository,
	userRepo *repository.UserRepository,
	cfg config.RiskConfig,
) *RiskService {
	return &RiskService{
		riskRepo:  riskRepo,
		tradeRepo: tradeRepo,
		eliteRepo: eliteRepo,
		userRepo:  userRepo,
		cfg:       cfg,
		now:       time.Now,
	}
}

// RiskSettingsRequest updates a user's daily limits. Zero restores the default.
type RiskSettingsRequest struct {
	MaxDailyLossR   *float64 `json:"max_daily_loss_r" binding:"omitempty,min=0,max=100"`
	MaxTradesPerDay *int     `json:"max_trades_per_day" binding:"omitempty,min=0,max=500"`
	Timezone        *string  `json:"timezone" binding:"omitempty,max=64"`
}

// RiskStatus is the tracker for a day plus what is left of the budget
type RiskStatus struct {
	*models.DailyRiskTracker
	Locked          bool    `json:"locked"`
	RemainingR      float64 `json:"remaining_r"`
	TradesRemaining int     `json:"trades_remaining"`
}

func newRiskStatus(t *models.DailyRiskTracker) *RiskStatus {
	left := 0
	if t.MaxTradesPerDay > 0 && t.TradesTaken < t.MaxTradesPerDay {
		left = t.MaxTradesPerDay - t.TradesTaken
	}
	return &RiskStatus{
		DailyRiskTracker: t,
		Locked:           t.Locked(),
		RemainingR:       t.RemainingR(),
		TradesRemaining:  left,
	}
}

func (s *RiskService) limits(user *models.User) (float64, int) {
	maxLoss := user.MaxDailyLossR
	if maxLoss <= 0 {
		maxLoss = s.cfg.DefaultMaxDailyLossR
	}
	maxTrades := user.MaxTradesPerDay
	if maxTrades <= 0 {
		maxTrades = s.cfg.DefaultMaxTrades
	}
	return maxLoss, maxTrades
}

// Recompute rebuilds the tracker of the user's trading day containing at
// from both journals and stores it.
func (s *RiskService) Recompute(userID uint, at time.Time) (*models.DailyRiskTracker, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	loc := user.Location()
	local := at.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)

	legacy, err := s.tradeRepo.GetByUserIDBetween(userID, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	elite, err := s.eliteRepo.GetByUserIDBetween(userID, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}

	maxLoss, maxTrades := s.limits(user)
	tracker := &models.DailyRiskTracker{
		UserID:          userID,
		Day:             start.Format(dayLayout),
		MaxDailyLossR:   maxLoss,
		MaxTradesPerDay: maxTrades,
	}

	for _, r := range analytics.FromTrades(legacy, elite) {
		tracker.TradesTaken++
		if !r.Closed() {
			continue
		}
		switch r.Result {
		case models.ResultWin:
			tracker.Wins++
		case models.ResultLoss:
			tracker.Losses++
		}
		tracker.NetR += r.R
	}

	tracker.NetR = math.Round(tracker.NetR*10000) / 10000
	if tracker.NetR < 0 {
		tracker.RLost = -tracker.NetR
	}
	tracker.LossLimitHit = maxLoss > 0 && tracker.RLost >= maxLoss
	tracker.TradeLimitHit = maxTrades > 0 && tracker.TradesTaken >= maxTrades

	if err := s.riskRepo.Upsert(tracker); err != nil {
		return nil, err
	}
	return tracker, nil
}

// Today returns the current day's status, creating an empty tracker when
// nothing was traded yet.
func (s *RiskService) Today(userID uint) (*RiskStatus, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	day := s.now().In(user.Location()).Format(dayLayout)
	tracker, err := s.riskRepo.GetByDay(userID, day)
	if errors.Is(err, repository.ErrRiskTrackerNotFound) {
		maxLoss, maxTrades := s.limits(user)
		tracker = &models.DailyRiskTracker{
			UserID:          userID,
			Day:             day,
			MaxDailyLossR:   maxLoss,
			MaxTradesPerDay: maxTrades,
		}
	} else if err != nil {
		return nil, err
	}
	return newRiskStatus(tracker), nil
}

// History returns up to days recent trackers, newest first
func (s *RiskService) History(userID uint, days int) ([]*RiskStatus, error) {
	if days <= 0 || days > 365 {
		days = 30
	}
	trackers, err := s.riskRepo.GetRecent(userID, days)
	if err != nil {
		return nil, err
	}
	out := make([]*RiskStatus, 0, len(trackers))
	for i := range trackers {
		out = append(out, newRiskStatus(&trackers[i]))
	}
	return out, nil
}

// UpdateSettings changes the user's limits and rebuilds today's tracker
func (s *RiskService) UpdateSettings(userID uint, req *RiskSettingsRequest) (*RiskStatus, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	if req.MaxDailyLossR != nil {
		user.MaxDailyLossR = *req.MaxDailyLossR
	}
	if req.MaxTradesPerDay != nil {
		user.MaxTradesPerDay = *req.MaxTradesPerDay
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			return nil, ErrInvalidTimezone
		}
		user.Timezone = *req.Timezone
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	tracker, err := s.Recompute(userID, s.now())
	if err != nil {
		return nil, err
	}
	return newRiskStatus(tracker), nil
}
