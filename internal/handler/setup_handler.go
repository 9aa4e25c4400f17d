package handler

import (
	"github.com/edgelog/internal/middleware"
	"github.com/edgelog/internal/service"
	"github.com/edgelog/pkg/response"
	"github.com/gin-gonic/gin"
)

// SetupHandler handles the per-user setup taxonomy
type SetupHandler struct {
	setupService *service.SetupService
}

// NewSetupHandler creates a new SetupHandler
func NewSetupHandler(setupService *service.SetupService) *SetupHandler {
	return &SetupHandler{setupService: setupService}
}

// CreateSetup adds a setup type
// POST /api/v1/setups
func (h *SetupHandler) CreateSetup(c *gin.Context) {
	var req service.SetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	setup, err := h.setupService.CreateSetup(middleware.GetUserID(c), &req)
	if err != nil {
		writeError(c, err, "failed to create setup")
		return
	}

	response.Created(c, setup)
}

// GetSetups lists the caller's setup types
// GET /api/v1/setups
func (h *SetupHandler) GetSetups(c *gin.Context) {
	setups, err := h.setupService.GetSetups(middleware.GetUserID(c))
	if err != nil {
		writeError(c, err, "failed to get setups")
		return
	}

	response.Success(c, setups)
}

// GetSetup returns one setup type
// GET /api/v1/setups/:id
func (h *SetupHandler) GetSetup(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	setup, err := h.setupService.GetSetup(middleware.GetUserID(c), id)
	if err != nil {
		writeError(c, err, "failed to get setup")
		return
	}

	response.Success(c, setup)
}

// UpdateSetup replaces a setup type
// PUT /api/v1/setups/:id
func (h *SetupHandler) UpdateSetup(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req service.SetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	setup, err := h.setupService.UpdateSetup(middleware.GetUserID(c), id, &req)
	if err != nil {
		writeError(c, err, "failed to update setup")
		return
	}

	response.Success(c, setup)
}

// DeleteSetup removes a setup type
// DELETE /api/v1/setups/:id
func (h *SetupHandler) DeleteSetup(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.setupService.DeleteSetup(middleware.GetUserID(c), id); err != nil {
		writeError(c, err, "failed to delete setup")
		return
	}

	response.Success(c, nil)
}

// RegisterRoutes registers setup routes
func (h *SetupHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	setups := rg.Group("/setups")
	setups.Use(authMiddleware)
	{
		setups.POST("", h.CreateSetup)
		setups.GET("", h.GetSetups)
		setups.GET("/:id", h.GetSetup)
		setups.PUT("/:id", h.UpdateSetup)
		setups.DELETE("/:id", h.DeleteSetup)
	}
}
