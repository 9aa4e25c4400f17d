package handler

import (
	"strconv"

	"github.com/edgelog/internal/middleware"
	"github.com/edgelog/internal/service"
	"github.com/edgelog/pkg/response"
	"github.com/gin-gonic/gin"
)

// RiskHandler exposes the daily risk tracker
type RiskHandler struct {
	riskService  *service.RiskService
	subscription *service.SubscriptionService
}

// NewRiskHandler creates a new RiskHandler
func NewRiskHandler(riskService *service.RiskService, subscription *service.SubscriptionService) *RiskHandler {
	return &RiskHandler{
		riskService:  riskService,
		subscription: subscription,
	}
}

// Today returns the tracker for the caller's current local day
// GET /api/v1/risk/today
func (h *RiskHandler) Today(c *gin.Context) {
	status, err := h.riskService.Today(middleware.GetUserID(c))
	if err != nil {
		writeError(c, err, "failed to get risk status")
		return
	}

	response.Success(c, status)
}

// History returns recent trackers, newest first
// GET /api/v1/risk/history?days=30
func (h *RiskHandler) History(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	history, err := h.riskService.History(middleware.GetUserID(c), days)
	if err != nil {
		writeError(c, err, "failed to get risk history")
		return
	}

	response.Success(c, history)
}

// UpdateSettings changes the caller's daily limits
// PUT /api/v1/risk/settings
func (h *RiskHandler) UpdateSettings(c *gin.Context) {
	var req service.RiskSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	status, err := h.riskService.UpdateSettings(middleware.GetUserID(c), &req)
	if err != nil {
		writeError(c, err, "failed to update risk settings")
		return
	}

	response.Success(c, status)
}

// RegisterRoutes registers risk routes
func (h *RiskHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	risk := rg.Group("/risk")
	risk.Use(authMiddleware, middleware.RequireFeature(h.subscription, service.FeatureRiskTracker))
	{
		risk.GET("/today", h.Today)
		risk.GET("/history", h.History)
		risk.PUT("/settings", h.UpdateSettings)
	}
}
