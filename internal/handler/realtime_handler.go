package handler

import (
	"github.com/edgelog/internal/middleware"
	"github.com/edgelog/internal/realtime"
	"github.com/edgelog/internal/service"
	"github.com/gin-gonic/gin"
)

// RealtimeHandler upgrades clients to the trade event stream
type RealtimeHandler struct {
	hub          *realtime.Hub
	subscription *service.SubscriptionService
}

// NewRealtimeHandler creates a new RealtimeHandler
func NewRealtimeHandler(hub *realtime.Hub, subscription *service.SubscriptionService) *RealtimeHandler {
	return &RealtimeHandler{
		hub:          hub,
		subscription: subscription,
	}
}

// Stream serves the caller's events over a websocket
// GET /api/v1/realtime?token=...
func (h *RealtimeHandler) Stream(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request, middleware.GetUserID(c))
}

// RegisterRoutes registers the websocket route
func (h *RealtimeHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	rg.GET("/realtime", authMiddleware, middleware.RequireFeature(h.subscription, service.FeatureRealtime), h.Stream)
}
