package handler

import (
	"github.com/edgelog/internal/middleware"
	"github.com/edgelog/internal/service"
	"github.com/edgelog/pkg/response"
	"github.com/gin-gonic/gin"
)

// TradeHandler handles legacy journal requests
type TradeHandler struct {
	tradeService *service.TradeService
}

// NewTradeHandler creates a new TradeHandler
func NewTradeHandler(tradeService *service.TradeService) *TradeHandler {
	return &TradeHandler{tradeService: tradeService}
}

// CreateTrade records a trade
// POST /api/v1/trades
func (h *TradeHandler) CreateTrade(c *gin.Context) {
	var req service.TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	trade, err := h.tradeService.CreateTrade(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		writeError(c, err, "failed to create trade")
		return
	}

	response.Created(c, trade)
}

// GetTrades lists the caller's trades, newest first
// GET /api/v1/trades
func (h *TradeHandler) GetTrades(c *gin.Context) {
	page, pageSize := pagination(c)

	trades, total, err := h.tradeService.GetTradesPaginated(middleware.GetUserID(c), page, pageSize)
	if err != nil {
		writeError(c, err, "failed to get trades")
		return
	}

	response.SuccessPaginated(c, trades, total, page, pageSize)
}

// GetTrade returns one trade
// GET /api/v1/trades/:id
func (h *TradeHandler) GetTrade(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	trade, err := h.tradeService.GetTrade(middleware.GetUserID(c), id)
	if err != nil {
		writeError(c, err, "failed to get trade")
		return
	}

	response.Success(c, trade)
}

// UpdateTrade replaces a trade's fields
// PUT /api/v1/trades/:id
func (h *TradeHandler) UpdateTrade(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req service.TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	trade, err := h.tradeService.UpdateTrade(c.Request.Context(), middleware.GetUserID(c), id, &req)
	if err != nil {
		writeError(c, err, "failed to update trade")
		return
	}

	response.Success(c, trade)
}

// DeleteTrade removes a trade
// DELETE /api/v1/trades/:id
func (h *TradeHandler) DeleteTrade(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.tradeService.DeleteTrade(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		writeError(c, err, "failed to delete trade")
		return
	}

	response.Success(c, nil)
}

// RegisterRoutes registers legacy trade routes
func (h *TradeHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	trades := rg.Group("/trades")
	trades.Use(authMiddleware)
	{
		trades.POST("", h.CreateTrade)
		trades.GET("", h.GetTrades)
		trades.GET("/:id", h.GetTrade)
		trades.PUT("/:id", h.UpdateTrade)
		trades.DELETE("/:id", h.DeleteTrade)
	}
}
