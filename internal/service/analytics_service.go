package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/edgelog/internal/analytics"
	"github.com/edgelog/internal/cache"
	"github.com/edgelog/internal/metrics"
	"github.com/edgelog/internal/models"
	"github.com/edgelog/internal/repository"
	"go.uber.org/zap"
)

// AnalyticsService computes journal analytics over both trade schemas.
// Results are cached per user and filter until the next journal write.
type AnalyticsService struct {
	tradeRepo *repository.TradeRepository
	eliteRepo *repository.EliteTradeRepository
	userRepo  *repository.UserRepository
	cache     cache.Store
	ttl       time.Duration
	maxTrades int
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewAnalyticsService creates a new AnalyticsService. store may be nil to
// disable caching.
func NewAnalyticsService(
	tradeRepo *repository.TradeRepository,
	eliteRepo *repository.EliteTradeRepository,
	userRepo *repository.UserRepository,
	store cache.Store,
	ttl time.Duration,
	defaultMaxTrades int,
	m *metrics.Metrics,
	logger *zap.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		tradeRepo: tradeRepo,
		eliteRepo: eliteRepo,
		userRepo:  userRepo,
		cache:     store,
		ttl:       ttl,
		maxTrades: defaultMaxTrades,
		metrics:   m,
		logger:    logger,
	}
}

// journal is one user's filtered record list plus the user it belongs to
type journal struct {
	user    *models.User
	records []analytics.TradeRecord
}

// Records loads the user's trades from both schemas and applies f. Unless f
// names a MinStatus, only trades at least partially classified are included.
func (s *AnalyticsService) Records(userID uint, f analytics.Filter) ([]analytics.TradeRecord, error) {
	j, err := s.load(userID, f)
	if err != nil {
		return nil, err
	}
	return j.records, nil
}

func (s *AnalyticsService) load(userID uint, f analytics.Filter) (*journal, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	legacy, err := s.tradeRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	elite, err := s.eliteRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if f.MinStatus == "" {
		f.MinStatus = models.StatusPartiallyClassified
	}
	return &journal{user: user, records: f.Apply(analytics.FromTrades(legacy, elite))}, nil
}

func (s *AnalyticsService) maxTradesPerDay(u *models.User) int {
	if u.MaxTradesPerDay > 0 {
		return u.MaxTradesPerDay
	}
	return s.maxTrades
}

// cached returns the stored result for (user, kind, filter) or computes,
// stores and returns it. Cache failures degrade to computing.
func cached[T any](ctx context.Context, s *AnalyticsService, userID uint, kind string, f analytics.Filter, compute func(*journal) T) (T, error) {
	var out T
	key := f.Key()

	if s.cache != nil {
		data, err := s.cache.Get(ctx, userID, kind, key)
		switch {
		case err == nil:
			if jsonErr := json.Unmarshal(data, &out); jsonErr == nil {
				s.metrics.RecordCache(true)
				return out, nil
			}
		case !errors.Is(err, cache.ErrMiss):
			s.logger.Warn("analytics cache read failed", zap.String("kind", kind), zap.Error(err))
		}
		s.metrics.RecordCache(false)
	}

	j, err := s.load(userID, f)
	if err != nil {
		return out, err
	}
	out = compute(j)

	if s.cache != nil {
		if data, err := json.Marshal(out); err == nil {
			if err := s.cache.Set(ctx, userID, kind, key, data, s.ttl); err != nil {
				s.logger.Warn("analytics cache write failed", zap.String("kind", kind), zap.Error(err))
			}
		}
	}
	return out, nil
}

// Edge returns the expectancy/edge statistics
func (s *AnalyticsService) Edge(ctx context.Context, userID uint, f analytics.Filter) (analytics.EdgeStats, error) {
	return cached(ctx, s, userID, "edge", f, func(j *journal) analytics.EdgeStats {
		return analytics.Edge(j.records)
	})
}

// Conditions returns the condition-impact verdicts
func (s *AnalyticsService) Conditions(ctx context.Context, userID uint, f analytics.Filter) ([]analytics.ConditionResult, error) {
	return cached(ctx, s, userID, "conditions", f, func(j *journal) []analytics.ConditionResult {
		return analytics.ConditionImpact(j.records, nil)
	})
}

// Heatmaps returns the time, weekday and session heatmaps in the user's zone
func (s *AnalyticsService) Heatmaps(ctx context.Context, userID uint, f analytics.Filter) (analytics.HeatmapSet, error) {
	return cached(ctx, s, userID, "heatmaps", f, func(j *journal) analytics.HeatmapSet {
		return analytics.Heatmaps(j.records, j.user.Location())
	})
}

// Validation returns the forward-testing readiness gate
func (s *AnalyticsService) Validation(ctx context.Context, userID uint, f analytics.Filter) (analytics.ValidationResult, error) {
	return cached(ctx, s, userID, "validation", f, func(j *journal) analytics.ValidationResult {
		return analytics.ValidateStrategy(j.records)
	})
}

// Setups returns the setup by grade matrix
func (s *AnalyticsService) Setups(ctx context.Context, userID uint, f analytics.Filter) (analytics.SetupMatrix, error) {
	return cached(ctx, s, userID, "setups", f, func(j *journal) analytics.SetupMatrix {
		return analytics.SetupGradeMatrix(j.records)
	})
}

// Mistakes returns the mistake-pattern report
func (s *AnalyticsService) Mistakes(ctx context.Context, userID uint, f analytics.Filter) (analytics.MistakeReport, error) {
	return cached(ctx, s, userID, "mistakes", f, func(j *journal) analytics.MistakeReport {
		return analytics.DetectMistakes(j.records, s.maxTradesPerDay(j.user), j.user.Location())
	})
}

// Psychology returns the emotional-state correlations
func (s *AnalyticsService) Psychology(ctx context.Context, userID uint, f analytics.Filter) (analytics.PsychologyReport, error) {
	return cached(ctx, s, userID, "psychology", f, func(j *journal) analytics.PsychologyReport {
		return analytics.BuildPsychologyReport(j.records)
	})
}

// EquityView is the equity curve with its trend and streaks
type EquityView struct {
	Points  []analytics.EquityPoint `json:"points"`
	Slope   float64                 `json:"slope"`
	Streaks analytics.Streaks       `json:"streaks"`
}

// Equity returns the cumulative-R curve
func (s *AnalyticsService) Equity(ctx context.Context, userID uint, f analytics.Filter) (EquityView, error) {
	return cached(ctx, s, userID, "equity", f, func(j *journal) EquityView {
		return EquityView{
			Points:  analytics.EquityCurve(j.records),
			Slope:   analytics.EquitySlope(j.records),
			Streaks: analytics.ComputeStreaks(j.records),
		}
	})
}

// Dashboard returns every analysis at once
func (s *AnalyticsService) Dashboard(ctx context.Context, userID uint, f analytics.Filter) (analytics.Dashboard, error) {
	return cached(ctx, s, userID, "dashboard", f, func(j *journal) analytics.Dashboard {
		return analytics.BuildDashboard(j.records, analytics.DashboardOptions{
			Location:        j.user.Location(),
			MaxTradesPerDay: s.maxTradesPerDay(j.user),
		})
	})
}
