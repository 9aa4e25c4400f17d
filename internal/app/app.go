// Package app wires repositories, services and HTTP handlers into a router.
package app

import (
	"net/http"

	"github.com/edgelog/internal/cache"
	"github.com/edgelog/internal/config"
	"github.com/edgelog/internal/handler"
	"github.com/edgelog/internal/metrics"
	"github.com/edgelog/internal/middleware"
	"github.com/edgelog/internal/provider/nowpayments"
	"github.com/edgelog/internal/provider/openai"
	"github.com/edgelog/internal/provider/paystack"
	"github.com/edgelog/internal/realtime"
	"github.com/edgelog/internal/repository"
	"github.com/edgelog/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BuildInfo is reported by /health
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// Deps are the process-level resources the app is built on
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Store    cache.Store
	Hub      *realtime.Hub
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	Build    BuildInfo
	// Chat overrides the OpenAI client, for tests
	Chat openai.ChatCompleter
}

// App holds the wired services the process entrypoint needs after start-up
type App struct {
	Router       *gin.Engine
	Subscription *service.SubscriptionService
}

// New builds every service and registers all routes under /api/v1
func New(d Deps) (*App, error) {
	cfg := d.Config
	m := d.Metrics

	userRepo := repository.NewUserRepository(d.DB)
	tradeRepo := repository.NewTradeRepository(d.DB)
	eliteRepo := repository.NewEliteTradeRepository(d.DB)
	setupRepo := repository.NewSetupTypeRepository(d.DB)
	riskRepo := repository.NewRiskRepository(d.DB)
	affRepo := repository.NewAffiliateRepository(d.DB)
	paymentRepo := repository.NewPaymentRepository(d.DB)

	riskService := service.NewRiskService(riskRepo, tradeRepo, eliteRepo, userRepo, cfg.Risk)
	hooks := service.NewJournalHooks(riskService, d.Store, d.Hub, m, d.Logger)
	tradeService := service.NewTradeService(tradeRepo, hooks)
	eliteService := service.NewEliteTradeService(eliteRepo, tradeRepo, setupRepo, hooks)
	setupService := service.NewSetupService(setupRepo)
	analyticsService := service.NewAnalyticsService(tradeRepo, eliteRepo, userRepo, d.Store,
		cfg.Analytics.CacheTTL(), cfg.Risk.DefaultMaxTrades, m, d.Logger)
	subscriptionService := service.NewSubscriptionService(userRepo, cfg.Plans, d.Hub, m, d.Logger)

	referralService, err := service.NewReferralService(affRepo, userRepo, cfg.Referral, m, d.Logger)
	if err != nil {
		return nil, err
	}
	authService := service.NewAuthService(userRepo, referralService, cfg.JWT, d.Logger)

	paymentService := service.NewPaymentService(paymentRepo, userRepo, subscriptionService, referralService,
		paystack.NewClient(cfg.Payments.PaystackBaseURL, cfg.Payments.PaystackSecretKey, d.Logger),
		nowpayments.NewClient(cfg.Payments.NOWPaymentsBaseURL, cfg.Payments.NOWPaymentsAPIKey, d.Logger),
		cfg.Payments, m, d.Logger)

	chat := d.Chat
	if chat == nil {
		chat = openai.NewClient(cfg.AI, d.Logger)
	}
	aiService := service.NewAIService(chat, analyticsService, setupService, cfg.AI, m, d.Logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Tracing())
	router.Use(middleware.Metrics(m))
	router.Use(middleware.RequestLoggerMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"version":    d.Build.Version,
			"commit":     d.Build.Commit,
			"build_time": d.Build.BuildTime,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))

	authMiddleware := middleware.AuthMiddleware(authService)
	v1 := router.Group("/api/v1")

	handler.NewAuthHandler(authService, subscriptionService).RegisterRoutes(v1, authMiddleware)
	handler.NewTradeHandler(tradeService).RegisterRoutes(v1, authMiddleware)
	handler.NewEliteTradeHandler(eliteService, subscriptionService).RegisterRoutes(v1, authMiddleware)
	handler.NewAnalyticsHandler(analyticsService, subscriptionService).RegisterRoutes(v1, authMiddleware)
	handler.NewSetupHandler(setupService).RegisterRoutes(v1, authMiddleware)
	handler.NewRiskHandler(riskService, subscriptionService).RegisterRoutes(v1, authMiddleware)
	handler.NewSubscriptionHandler(subscriptionService).RegisterRoutes(v1, authMiddleware)
	handler.NewReferralHandler(referralService).RegisterRoutes(v1, authMiddleware)
	handler.NewPaymentHandler(paymentService).RegisterRoutes(v1, authMiddleware)
	handler.NewAIHandler(aiService, subscriptionService).RegisterRoutes(v1, authMiddleware)
	handler.NewRealtimeHandler(d.Hub, subscriptionService).RegisterRoutes(v1, authMiddleware)

	return &App{
		Router:       router,
		Subscription: subscriptionService,
	}, nil
}
