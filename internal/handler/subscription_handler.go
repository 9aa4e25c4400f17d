package handler

import (
	"github.com/edgelog/internal/middleware"
	"github.com/edgelog/internal/service"
	"github.com/edgelog/pkg/response"
	"github.com/gin-gonic/gin"
)

// SubscriptionHandler exposes plans and the caller's entitlement
type SubscriptionHandler struct {
	subscription *service.SubscriptionService
}

// NewSubscriptionHandler creates a new SubscriptionHandler
func NewSubscriptionHandler(subscription *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscription: subscription}
}

// Plans lists the purchasable plans
// GET /api/v1/subscription/plans
func (h *SubscriptionHandler) Plans(c *gin.Context) {
	catalog, err := h.subscription.Catalog()
	if err != nil {
		writeError(c, err, "failed to load plans")
		return
	}

	response.Success(c, catalog)
}

// Status returns the caller's plan, expiry and unlocked features
// GET /api/v1/subscription/status
func (h *SubscriptionHandler) Status(c *gin.Context) {
	status, err := h.subscription.Status(middleware.GetUserID(c))
	if err != nil {
		writeError(c, err, "failed to load subscription")
		return
	}

	response.Success(c, status)
}

// RegisterRoutes registers subscription routes
func (h *SubscriptionHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	sub := rg.Group("/subscription")
	{
		sub.GET("/plans", h.Plans)
		sub.GET("/status", authMiddleware, h.Status)
	}
}
