package handler

import (
	"github.com/edgelog/internal/middleware"
	"github.com/edgelog/internal/service"
	"github.com/edgelog/pkg/response"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication API requests
type AuthHandler struct {
	authService  *service.AuthService
	subscription *service.SubscriptionService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *service.AuthService, subscription *service.SubscriptionService) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		subscription: subscription,
	}
}

// Register handles user registration
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.authService.Register(&req)
	if err != nil {
		writeError(c, err, "failed to register user")
		return
	}

	response.Created(c, gin.H{
		"id":          user.ID,
		"username":    user.Username,
		"email":       user.Email,
		"plan":        user.Plan,
		"timezone":    user.Timezone,
		"referred_by": user.ReferredByID,
	})
}

// Login handles user login
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	token, err := h.authService.Login(&req)
	if err != nil {
		writeError(c, err, "failed to login")
		return
	}

	response.Success(c, token)
}

// RefreshToken handles token refresh
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	token, err := h.authService.RefreshToken(req.Token)
	if err != nil {
		response.Unauthorized(c, "invalid or expired token")
		return
	}

	response.Success(c, token)
}

// Me returns the caller's profile with their effective plan
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.GetUserByID(middleware.GetUserID(c))
	if err != nil {
		writeError(c, err, "failed to load profile")
		return
	}

	status, err := h.subscription.Status(user.ID)
	if err != nil {
		writeError(c, err, "failed to load subscription")
		return
	}

	response.Success(c, gin.H{
		"user":         user,
		"subscription": status,
	})
}

// RegisterRoutes registers auth routes
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	auth := rg.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.RefreshToken)
		auth.GET("/me", authMiddleware, h.Me)
	}
}
