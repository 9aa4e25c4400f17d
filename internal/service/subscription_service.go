package service

import (
	"context"
	"fmt"
	"time"

	"github.com/edgelog/internal/config"
	"github.com/edgelog/internal/metrics"
	"github.com/edgelog/internal/models"
	"github.com/edgelog/internal/realtime"
	"github.com/edgelog/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Feature is a gated product capability
type Feature string

const (
	FeatureJournal         Feature = "journal"
	FeatureBasicAnalytics  Feature = "basic_analytics"
	FeatureEliteJournal    Feature = "elite_journal"
	FeatureAdvancedMetrics Feature = "advanced_analytics"
	FeatureRiskTracker     Feature = "risk_tracker"
	FeatureAIAnalysis      Feature = "ai_analysis"
	FeatureAIMentor        Feature = "ai_mentor"
	FeatureCoPro           Feature = "ai_copro"
	FeatureRealtime        Feature = "realtime"
)

// minimumPlan maps each feature to the lowest plan that unlocks it
var minimumPlan = map[Feature]models.Plan{
	FeatureJournal:         models.PlanFree,
	FeatureBasicAnalytics:  models.PlanFree,
	FeatureRiskTracker:     models.PlanFree,
	FeatureAdvancedMetrics: models.PlanPro,
	FeatureAIAnalysis:      models.PlanPro,
	FeatureRealtime:        models.PlanPro,
	FeatureEliteJournal:    models.PlanElite,
	FeatureAIMentor:        models.PlanElite,
	FeatureCoPro:           models.PlanElite,
}

// PlanAllows reports whether plan unlocks feature. Unknown features are locked.
func PlanAllows(plan models.Plan, feature Feature) bool {
	required, ok := minimumPlan[feature]
	if !ok {
		return false
	}
	return plan.Rank() >= required.Rank()
}

// FeaturesFor lists the features plan unlocks
func FeaturesFor(plan models.Plan) []Feature {
	out := make([]Feature, 0, len(minimumPlan))
	for _, f := range []Feature{
		FeatureJournal, FeatureBasicAnalytics, FeatureRiskTracker,
		FeatureAdvancedMetrics, FeatureAIAnalysis, FeatureRealtime,
		FeatureEliteJournal, FeatureAIMentor, FeatureCoPro,
	} {
		if PlanAllows(plan, f) {
			out = append(out, f)
		}
	}
	return out
}

// SubscriptionService owns plan state: pricing, upgrades and expiry
type SubscriptionService struct {
	userRepo  *repository.UserRepository
	cfg       config.PlansConfig
	publisher realtime.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewSubscriptionService creates a new SubscriptionService
func NewSubscriptionService(
	userRepo *repository.UserRepository,
	cfg config.PlansConfig,
	publisher realtime.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		userRepo:  userRepo,
		cfg:       cfg,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// SubscriptionStatus describes a user's current entitlement
type SubscriptionStatus struct {
	Plan      models.Plan `json:"plan"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
	Active    bool        `json:"active"`
	Features  []Feature   `json:"features"`
}

// PlanPrice is one purchasable plan
type PlanPrice struct {
	Plan       models.Plan     `json:"plan"`
	Price      decimal.Decimal `json:"price"`
	Currency   string          `json:"currency"`
	PeriodDays int             `json:"period_days"`
	Features   []Feature       `json:"features"`
}

// Price returns the configured price of a paid plan
func (s *SubscriptionService) Price(plan models.Plan) (decimal.Decimal, error) {
	var raw string
	switch plan {
	case models.PlanPro:
		raw = s.cfg.ProPrice
	case models.PlanElite:
		raw = s.cfg.ElitePrice
	default:
		return decimal.Zero, ErrInvalidPlan
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s price %q: %w", plan, raw, err)
	}
	return price, nil
}

// Currency is the billing currency of every plan
func (s *SubscriptionService) Currency() string {
	return s.cfg.Currency
}

// Catalog lists the paid plans with their prices
func (s *SubscriptionService) Catalog() ([]PlanPrice, error) {
	out := make([]PlanPrice, 0, 2)
	for _, plan := range []models.Plan{models.PlanPro, models.PlanElite} {
		price, err := s.Price(plan)
		if err != nil {
			return nil, err
		}
		out = append(out, PlanPrice{
			Plan:       plan,
			Price:      price,
			Currency:   s.cfg.Currency,
			PeriodDays: s.cfg.PeriodDays,
			Features:   FeaturesFor(plan),
		})
	}
	return out, nil
}

// Status returns the user's plan as of now
func (s *SubscriptionService) Status(userID uint) (*SubscriptionStatus, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	active := user.ActivePlan(s.now())
	return &SubscriptionStatus{
		Plan:      active,
		ExpiresAt: user.PlanExpiresAt,
		Active:    active != models.PlanFree,
		Features:  FeaturesFor(active),
	}, nil
}

// CheckFeature returns ErrFeatureLocked when the user's active plan does not
// include feature.
func (s *SubscriptionService) CheckFeature(userID uint, feature Feature) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	if !PlanAllows(user.ActivePlan(s.now()), feature) {
		return ErrFeatureLocked
	}
	return nil
}

// ActivateTx grants plan for one billing period inside tx. Paying for the
// plan already running extends it from its current expiry; any other change
// starts a fresh period now. Nothing is published; call Announce once tx has
// committed.
func (s *SubscriptionService) ActivateTx(tx *gorm.DB, userID uint, plan models.Plan) (*models.User, error) {
	if plan != models.PlanPro && plan != models.PlanElite {
		return nil, ErrInvalidPlan
	}

	users := s.userRepo.WithTx(tx)
	user, err := users.GetByID(userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	start := now
	if user.ActivePlan(now) == plan && user.PlanExpiresAt != nil && user.PlanExpiresAt.After(now) {
		start = *user.PlanExpiresAt
	}
	expires := start.AddDate(0, 0, s.cfg.PeriodDays).UTC()

	if err := users.UpdatePlan(user.ID, plan, &expires); err != nil {
		return nil, err
	}
	user.Plan = plan
	user.PlanExpiresAt = &expires
	return user, nil
}

// Announce records a committed activation and pushes it to the user's sessions
func (s *SubscriptionService) Announce(ctx context.Context, user *models.User) {
	s.metrics.RecordUpgrade(string(user.Plan))
	s.logger.Info("plan activated",
		zap.Uint("user_id", user.ID),
		zap.String("plan", string(user.Plan)),
		zap.Timep("expires_at", user.PlanExpiresAt))
	s.notify(ctx, user)
}

// DowngradeExpired resets every lapsed paid plan to free
func (s *SubscriptionService) DowngradeExpired(ctx context.Context) (int, error) {
	users, err := s.userRepo.GetExpiredPaid(s.now())
	if err != nil {
		return 0, err
	}

	downgraded := 0
	for i := range users {
		u := &users[i]
		if err := s.userRepo.UpdatePlan(u.ID, models.PlanFree, nil); err != nil {
			s.logger.Error("plan downgrade failed", zap.Uint("user_id", u.ID), zap.Error(err))
			continue
		}
		u.Plan = models.PlanFree
		u.PlanExpiresAt = nil
		downgraded++
		s.notify(ctx, u)
	}

	if downgraded > 0 {
		s.metrics.RecordDowngrades(downgraded)
	}
	return downgraded, nil
}

func (s *SubscriptionService) notify(ctx context.Context, u *models.User) {
	if s.publisher == nil {
		return
	}
	ev := realtime.Event{
		Type:   realtime.EventPlanChanged,
		UserID: u.ID,
		Data:   map[string]interface{}{"plan": u.Plan, "expires_at": u.PlanExpiresAt},
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("plan change publish failed", zap.Uint("user_id", u.ID), zap.Error(err))
	}
}
