package handler

import (
	"github.com/edgelog/internal/middleware"
	"github.com/edgelog/internal/service"
	"github.com/edgelog/pkg/response"
	"github.com/gin-gonic/gin"
)

// EliteTradeHandler handles Elite journal requests
type EliteTradeHandler struct {
	eliteService *service.EliteTradeService
	subscription *service.SubscriptionService
}

// NewEliteTradeHandler creates a new EliteTradeHandler
func NewEliteTradeHandler(eliteService *service.EliteTradeService, subscription *service.SubscriptionService) *EliteTradeHandler {
	return &EliteTradeHandler{
		eliteService: eliteService,
		subscription: subscription,
	}
}

// CreateTrade records an Elite trade
// POST /api/v1/elite-trades
func (h *EliteTradeHandler) CreateTrade(c *gin.Context) {
	var req service.EliteTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	trade, err := h.eliteService.CreateTrade(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		writeError(c, err, "failed to create trade")
		return
	}

	response.Created(c, trade)
}

// SearchTrades lists Elite trades matching the query filters
// GET /api/v1/elite-trades
func (h *EliteTradeHandler) SearchTrades(c *gin.Context) {
	var q service.EliteTradeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	page, pageSize := pagination(c)

	trades, total, err := h.eliteService.SearchTrades(middleware.GetUserID(c), &q, page, pageSize)
	if err != nil {
		writeError(c, err, "failed to search trades")
		return
	}

	response.SuccessPaginated(c, trades, total, page, pageSize)
}

// GetTrade returns one Elite trade
// GET /api/v1/elite-trades/:id
func (h *EliteTradeHandler) GetTrade(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	trade, err := h.eliteService.GetTrade(middleware.GetUserID(c), id)
	if err != nil {
		writeError(c, err, "failed to get trade")
		return
	}

	response.Success(c, trade)
}

// UpdateTrade replaces an Elite trade's fields
// PUT /api/v1/elite-trades/:id
func (h *EliteTradeHandler) UpdateTrade(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req service.EliteTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	trade, err := h.eliteService.UpdateTrade(c.Request.Context(), middleware.GetUserID(c), id, &req)
	if err != nil {
		writeError(c, err, "failed to update trade")
		return
	}

	response.Success(c, trade)
}

// DeleteTrade removes an Elite trade
// DELETE /api/v1/elite-trades/:id
func (h *EliteTradeHandler) DeleteTrade(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.eliteService.DeleteTrade(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		writeError(c, err, "failed to delete trade")
		return
	}

	response.Success(c, nil)
}

// ConvertLegacyTrade copies a legacy trade into the Elite journal
// POST /api/v1/elite-trades/convert/:legacy_id
func (h *EliteTradeHandler) ConvertLegacyTrade(c *gin.Context) {
	id, ok := paramID(c, "legacy_id")
	if !ok {
		return
	}

	trade, err := h.eliteService.ConvertLegacyTrade(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		writeError(c, err, "failed to convert trade")
		return
	}

	response.Created(c, trade)
}

// RegisterRoutes registers Elite trade routes
func (h *EliteTradeHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	elite := rg.Group("/elite-trades")
	elite.Use(authMiddleware, middleware.RequireFeature(h.subscription, service.FeatureEliteJournal))
	{
		elite.POST("", h.CreateTrade)
		elite.GET("", h.SearchTrades)
		elite.GET("/:id", h.GetTrade)
		elite.PUT("/:id", h.UpdateTrade)
		elite.DELETE("/:id", h.DeleteTrade)
		elite.POST("/convert/:legacy_id", h.ConvertLegacyTrade)
	}
}
