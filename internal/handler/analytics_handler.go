package handler

import (
	"context"

	"github.com/edgelog/internal/analytics"
	"github.com/edgelog/internal/middleware"
	"github.com/edgelog/internal/service"
	"github.com/edgelog/pkg/response"
	"github.com/gin-gonic/gin"
)

// AnalyticsHandler serves the computed journal reports
type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
	subscription     *service.SubscriptionService
}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler(analyticsService *service.AnalyticsService, subscription *service.SubscriptionService) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		subscription:     subscription,
	}
}

// report binds the shared query filter and renders one report
func report[T any](name string, compute func(context.Context, uint, analytics.Filter) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var f analytics.Filter
		if err := c.ShouldBindQuery(&f); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		result, err := compute(c.Request.Context(), middleware.GetUserID(c), f)
		if err != nil {
			writeError(c, err, "failed to compute "+name)
			return
		}

		response.Success(c, result)
	}
}

// RegisterRoutes registers analytics routes. Edge, equity and the dashboard
// are open to every plan; the deeper reports need advanced analytics.
func (h *AnalyticsHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	a := h.analyticsService

	basic := rg.Group("/analytics")
	basic.Use(authMiddleware, middleware.RequireFeature(h.subscription, service.FeatureBasicAnalytics))
	{
		basic.GET("/edge", report("edge", a.Edge))
		basic.GET("/equity", report("equity", a.Equity))
		basic.GET("/dashboard", report("dashboard", a.Dashboard))
	}

	advanced := rg.Group("/analytics")
	advanced.Use(authMiddleware, middleware.RequireFeature(h.subscription, service.FeatureAdvancedMetrics))
	{
		advanced.GET("/conditions", report("conditions", a.Conditions))
		advanced.GET("/heatmaps", report("heatmaps", a.Heatmaps))
		advanced.GET("/validation", report("validation", a.Validation))
		advanced.GET("/setups", report("setups", a.Setups))
		advanced.GET("/mistakes", report("mistakes", a.Mistakes))
		advanced.GET("/psychology", report("psychology", a.Psychology))
	}
}
