package handler

import (
	"github.com/edgelog/internal/middleware"
	"github.com/edgelog/internal/service"
	"github.com/edgelog/pkg/response"
	"github.com/gin-gonic/gin"
)

// AIHandler serves the model-backed coaching endpoints
type AIHandler struct {
	aiService    *service.AIService
	subscription *service.SubscriptionService
}

// NewAIHandler creates a new AIHandler
func NewAIHandler(aiService *service.AIService, subscription *service.SubscriptionService) *AIHandler {
	return &AIHandler{
		aiService:    aiService,
		subscription: subscription,
	}
}

// TestConnection sends a trivial prompt to check the provider
// POST /api/v1/ai/test-openai
func (h *AIHandler) TestConnection(c *gin.Context) {
	reply, err := h.aiService.TestConnection(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, err, "ai request failed")
		return
	}

	response.Success(c, reply)
}

// AnalyzeTrades reviews the caller's journal statistics
// POST /api/v1/ai/analyze-trades
func (h *AIHandler) AnalyzeTrades(c *gin.Context) {
	var req service.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	reply, err := h.aiService.AnalyzeTrades(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		writeError(c, err, "ai request failed")
		return
	}

	response.Success(c, reply)
}

// Mentor continues a coaching conversation
// POST /api/v1/ai/ai-mentor
func (h *AIHandler) Mentor(c *gin.Context) {
	var req service.MentorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	reply, err := h.aiService.Mentor(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		writeError(c, err, "ai request failed")
		return
	}

	response.Success(c, reply)
}

// CoproAnalyze critiques a planned trade against the caller's history
// POST /api/v1/ai/ai-copro-analyzer
func (h *AIHandler) CoproAnalyze(c *gin.Context) {
	var req service.CoproRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	reply, err := h.aiService.CoproAnalyze(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		writeError(c, err, "ai request failed")
		return
	}

	response.Success(c, reply)
}

// RegisterRoutes registers AI routes
func (h *AIHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	ai := rg.Group("/ai")
	ai.Use(authMiddleware)
	{
		analysis := middleware.RequireFeature(h.subscription, service.FeatureAIAnalysis)
		ai.POST("/test-openai", analysis, h.TestConnection)
		ai.POST("/analyze-trades", analysis, h.AnalyzeTrades)
		ai.POST("/ai-mentor", middleware.RequireFeature(h.subscription, service.FeatureAIMentor), h.Mentor)
		ai.POST("/ai-copro-analyzer", middleware.RequireFeature(h.subscription, service.FeatureCoPro), h.CoproAnalyze)
	}
}
