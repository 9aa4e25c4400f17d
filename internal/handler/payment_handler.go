package handler

import (
	"net/http"

	"github.com/edgelog/internal/middleware"
	"github.com/edgelog/internal/service"
	"github.com/edgelog/pkg/response"
	"github.com/gin-gonic/gin"
)

const (
	nowpaymentsSigHeader = "x-nowpayments-sig"
	maxWebhookBody       = 64 << 10
)

// PaymentHandler handles plan purchases and provider callbacks
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// VerifyPaystack confirms a Paystack charge and upgrades the caller
// POST /api/v1/payments/verify-paystack-payment
func (h *PaymentHandler) VerifyPaystack(c *gin.Context) {
	var req service.VerifyPaystackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.paymentService.VerifyPaystack(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		writeError(c, err, "failed to verify payment")
		return
	}

	response.Success(c, result)
}

// NOWPaymentsWebhook receives signed payment notifications. It is called by
// NOWPayments, not by users, so the signature is the only authentication.
// POST /api/v1/payments/nowpayments-webhook
func (h *PaymentHandler) NOWPaymentsWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	body, err := c.GetRawData()
	if err != nil {
		response.BadRequest(c, "failed to read body")
		return
	}

	result, err := h.paymentService.HandleNOWPaymentsIPN(c.Request.Context(), body, c.GetHeader(nowpaymentsSigHeader))
	if err != nil {
		writeError(c, err, "failed to process notification")
		return
	}

	response.Success(c, result)
}

// CreateOrder issues a crypto checkout reference for a plan
// POST /api/v1/payments/create-order
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	order, err := h.paymentService.CreateOrder(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		writeError(c, err, "failed to create order")
		return
	}

	response.Created(c, order)
}

// ListPayments lists the caller's payments
// GET /api/v1/payments
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	page, pageSize := pagination(c)

	payments, total, err := h.paymentService.ListPayments(middleware.GetUserID(c), page, pageSize)
	if err != nil {
		writeError(c, err, "failed to get payments")
		return
	}

	response.SuccessPaginated(c, payments, total, page, pageSize)
}

// RegisterRoutes registers payment routes
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	payments := rg.Group("/payments")
	{
		payments.POST("/nowpayments-webhook", h.NOWPaymentsWebhook)

		payments.GET("", authMiddleware, h.ListPayments)
		payments.POST("/verify-paystack-payment", authMiddleware, h.VerifyPaystack)
		payments.POST("/create-order", authMiddleware, h.CreateOrder)
	}
}
