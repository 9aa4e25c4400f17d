package service_test

import (
	"context"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/edgelog/internal/cache"
	"github.com/edgelog/internal/config"
	"github.com/edgelog/internal/metrics"
	"github.com/edgelog/internal/models"
	"github.com/edgelog/internal/provider/nowpayments"
	"github.com/edgelog/internal/provider/paystack"
	"github.com/edgelog/internal/realtime"
	"github.com/edgelog/internal/repository"
	"github.com/edgelog/internal/service"
	"github.com/edgelog/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// recorder captures published events
type recorder struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (r *recorder) Publish(_ context.Context, ev realtime.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

var testPlans = config.PlansConfig{
	ProPrice:   "19.00",
	ElitePrice: "49.00",
	Currency:   "USD",
	PeriodDays: 30,
}

type env struct {
	db      *gorm.DB
	store   *cache.MemoryStore
	events  *recorder
	metrics *metrics.Metrics

	users    *repository.UserRepository
	trades   *repository.TradeRepository
	elite    *repository.EliteTradeRepository
	setups   *repository.SetupTypeRepository
	risks    *repository.RiskRepository
	affs     *repository.AffiliateRepository
	payments *repository.PaymentRepository

	risk         *service.RiskService
	hooks        *service.JournalHooks
	tradeSvc     *service.TradeService
	eliteSvc     *service.EliteTradeService
	setupSvc     *service.SetupService
	analytics    *service.AnalyticsService
	subscription *service.SubscriptionService
	referral     *service.ReferralService
	auth         *service.AuthService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	logger := zap.NewNop()

	e := &env{
		db:       db,
		store:    cache.NewMemoryStore(),
		events:   &recorder{},
		metrics:  metrics.New(prometheus.NewRegistry()),
		users:    repository.NewUserRepository(db),
		trades:   repository.NewTradeRepository(db),
		elite:    repository.NewEliteTradeRepository(db),
		setups:   repository.NewSetupTypeRepository(db),
		risks:    repository.NewRiskRepository(db),
		affs:     repository.NewAffiliateRepository(db),
		payments: repository.NewPaymentRepository(db),
	}

	e.risk = service.NewRiskService(e.risks, e.trades, e.elite, e.users, config.RiskConfig{
		DefaultMaxDailyLossR: 3,
		DefaultMaxTrades:     5,
	})
	e.hooks = service.NewJournalHooks(e.risk, e.store, e.events, e.metrics, logger)
	e.tradeSvc = service.NewTradeService(e.trades, e.hooks)
	e.eliteSvc = service.NewEliteTradeService(e.elite, e.trades, e.setups, e.hooks)
	e.setupSvc = service.NewSetupService(e.setups)
	e.analytics = service.NewAnalyticsService(e.trades, e.elite, e.users, e.store, time.Minute, 5, e.metrics, logger)
	e.subscription = service.NewSubscriptionService(e.users, testPlans, e.events, e.metrics, logger)

	referral, err := service.NewReferralService(e.affs, e.users, config.ReferralConfig{
		CommissionRate:  "0.20",
		MinPayoutAmount: "5",
	}, e.metrics, logger)
	require.NoError(t, err)
	e.referral = referral

	e.auth = service.NewAuthService(e.users, e.referral, config.JWTConfig{Secret: "test-secret", ExpireHours: 1}, logger)
	return e
}

func (e *env) payment(paystackURL, ipnSecret string) *service.PaymentService {
	logger := zap.NewNop()
	return service.NewPaymentService(
		e.payments, e.users, e.subscription, e.referral,
		paystack.NewClient(paystackURL, "sk_test", logger),
		nowpayments.NewClient("http://127.0.0.1:0", "", logger),
		config.PaymentsConfig{NOWPaymentsIPNSecret: ipnSecret},
		e.metrics, logger,
	)
}

func (e *env) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "x",
		Plan:         models.PlanFree,
		Timezone:     "UTC",
	}
	require.NoError(t, e.users.Create(u))
	return u
}

func f64(v float64) *float64 { return &v }

func bptr(v bool) *bool { return &v }

// legacyTrade is a long trade risking 10 points; exit sets the result
func legacyTrade(entry time.Time, exit *float64) *service.TradeRequest {
	req := &service.TradeRequest{
		Symbol:     "eurusd",
		Direction:  models.DirectionLong,
		Setup:      "breakout",
		Session:    "london",
		EntryPrice: 100,
		StopLoss:   90,
		ExitPrice:  exit,
		EntryTime:  entry,
	}
	if exit != nil {
		out := entry.Add(time.Hour)
		req.ExitTime = &out
	}
	return req
}
