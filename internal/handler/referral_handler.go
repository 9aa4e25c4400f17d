package handler

import (
	"github.com/edgelog/internal/middleware"
	"github.com/edgelog/internal/models"
	"github.com/edgelog/internal/service"
	"github.com/edgelog/pkg/response"
	"github.com/gin-gonic/gin"
)

// ReferralHandler handles affiliates, commissions and payouts
type ReferralHandler struct {
	referralService *service.ReferralService
}

// NewReferralHandler creates a new ReferralHandler
func NewReferralHandler(referralService *service.ReferralService) *ReferralHandler {
	return &ReferralHandler{referralService: referralService}
}

type ledgerQuery struct {
	Status      models.LedgerStatus `form:"status" binding:"omitempty,oneof=pending approved paid rejected"`
	AffiliateID uint                `form:"affiliate_id"`
}

// Enroll makes the caller an affiliate
// POST /api/v1/referral/enroll
func (h *ReferralHandler) Enroll(c *gin.Context) {
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	affiliate, err := h.referralService.Enroll(middleware.GetUserID(c), &req)
	if err != nil {
		writeError(c, err, "failed to enroll affiliate")
		return
	}

	response.Created(c, affiliate)
}

// UpdatePayoutDetails changes where the caller's payouts go
// PUT /api/v1/referral/payout-details
func (h *ReferralHandler) UpdatePayoutDetails(c *gin.Context) {
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	affiliate, err := h.referralService.UpdatePayoutDetails(middleware.GetUserID(c), &req)
	if err != nil {
		writeError(c, err, "failed to update payout details")
		return
	}

	response.Success(c, affiliate)
}

// Summary returns the caller's affiliate dashboard
// GET /api/v1/referral/summary
func (h *ReferralHandler) Summary(c *gin.Context) {
	summary, err := h.referralService.Summary(middleware.GetUserID(c))
	if err != nil {
		writeError(c, err, "failed to load referral summary")
		return
	}

	response.Success(c, summary)
}

// ValidateCode reports whether a referral code exists
// GET /api/v1/referral/validate/:code
func (h *ReferralHandler) ValidateCode(c *gin.Context) {
	if err := h.referralService.ValidateCode(c.Param("code")); err != nil {
		writeError(c, err, "failed to validate code")
		return
	}

	response.Success(c, gin.H{"valid": true})
}

// MyCommissions lists the caller's commissions
// GET /api/v1/referral/commissions
func (h *ReferralHandler) MyCommissions(c *gin.Context) {
	var q ledgerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	page, pageSize := pagination(c)

	commissions, total, err := h.referralService.MyCommissions(middleware.GetUserID(c), q.Status, page, pageSize)
	if err != nil {
		writeError(c, err, "failed to get commissions")
		return
	}

	response.SuccessPaginated(c, commissions, total, page, pageSize)
}

// RequestPayout claims approved commissions for payment
// POST /api/v1/referral/payouts
func (h *ReferralHandler) RequestPayout(c *gin.Context) {
	var req service.PayoutRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	payout, err := h.referralService.RequestPayout(middleware.GetUserID(c), &req)
	if err != nil {
		writeError(c, err, "failed to request payout")
		return
	}

	response.Created(c, payout)
}

// MyPayouts lists the caller's payout requests
// GET /api/v1/referral/payouts
func (h *ReferralHandler) MyPayouts(c *gin.Context) {
	payouts, err := h.referralService.MyPayouts(middleware.GetUserID(c))
	if err != nil {
		writeError(c, err, "failed to get payouts")
		return
	}

	response.Success(c, payouts)
}

// ListCommissions lists commissions across affiliates
// GET /api/v1/admin/commissions
func (h *ReferralHandler) ListCommissions(c *gin.Context) {
	var q ledgerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	page, pageSize := pagination(c)

	commissions, total, err := h.referralService.ListCommissions(q.AffiliateID, q.Status, page, pageSize)
	if err != nil {
		writeError(c, err, "failed to get commissions")
		return
	}

	response.SuccessPaginated(c, commissions, total, page, pageSize)
}

// ReviewCommission approves, rejects or pays a commission
// POST /api/v1/admin/commissions/:id/review
func (h *ReferralHandler) ReviewCommission(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req service.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	commission, err := h.referralService.ReviewCommission(id, &req)
	if err != nil {
		writeError(c, err, "failed to review commission")
		return
	}

	response.Success(c, commission)
}

// ListPayouts lists payout requests across affiliates
// GET /api/v1/admin/payouts
func (h *ReferralHandler) ListPayouts(c *gin.Context) {
	var q ledgerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	payouts, err := h.referralService.ListPayouts(q.AffiliateID, q.Status)
	if err != nil {
		writeError(c, err, "failed to get payouts")
		return
	}

	response.Success(c, payouts)
}

// ReviewPayout approves, rejects or pays a payout request
// POST /api/v1/admin/payouts/:id/review
func (h *ReferralHandler) ReviewPayout(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req service.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	payout, err := h.referralService.ReviewPayout(id, &req)
	if err != nil {
		writeError(c, err, "failed to review payout")
		return
	}

	response.Success(c, payout)
}

// RegisterRoutes registers affiliate and admin ledger routes
func (h *ReferralHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	rg.GET("/referral/validate/:code", h.ValidateCode)

	referral := rg.Group("/referral")
	referral.Use(authMiddleware)
	{
		referral.POST("/enroll", h.Enroll)
		referral.PUT("/payout-details", h.UpdatePayoutDetails)
		referral.GET("/summary", h.Summary)
		referral.GET("/commissions", h.MyCommissions)
		referral.POST("/payouts", h.RequestPayout)
		referral.GET("/payouts", h.MyPayouts)
	}

	admin := rg.Group("/admin")
	admin.Use(authMiddleware, middleware.AdminOnly())
	{
		admin.GET("/commissions", h.ListCommissions)
		admin.POST("/commissions/:id/review", h.ReviewCommission)
		admin.GET("/payouts", h.ListPayouts)
		admin.POST("/payouts/:id/review", h.ReviewPayout)
	}
}
