package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/edgelog/internal/middleware"
	"github.com/edgelog/internal/models"
	"github.com/edgelog/internal/provider"
	"github.com/edgelog/internal/provider/nowpayments"
	"github.com/edgelog/internal/repository"
	"github.com/edgelog/internal/service"
	"github.com/edgelog/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{repository.ErrTradeNotFound, http.StatusNotFound},
	{repository.ErrEliteTradeNotFound, http.StatusNotFound},
	{repository.ErrSetupTypeNotFound, http.StatusNotFound},
	{repository.ErrUserNotFound, http.StatusNotFound},
	{repository.ErrAffiliateNotFound, http.StatusNotFound},
	{repository.ErrCommissionNotFound, http.StatusNotFound},
	{repository.ErrPayoutNotFound, http.StatusNotFound},
	{repository.ErrPaymentNotFound, http.StatusNotFound},

	{models.ErrInvalidDirection, http.StatusBadRequest},
	{models.ErrZeroRisk, http.StatusBadRequest},
	{models.ErrInvalidPrice, http.StatusBadRequest},
	{service.ErrInvalidTimezone, http.StatusBadRequest},
	{service.ErrInvalidTradeTimes, http.StatusBadRequest},
	{service.ErrInvalidGrade, http.StatusBadRequest},
	{service.ErrInvalidPlan, http.StatusBadRequest},
	{service.ErrInvalidReferralCode, http.StatusBadRequest},
	{service.ErrSelfReferral, http.StatusBadRequest},
	{service.ErrPayoutBelowMinimum, http.StatusBadRequest},
	{service.ErrInsufficientBalance, http.StatusBadRequest},
	{service.ErrPayoutMethodRequired, http.StatusBadRequest},
	{service.ErrPaymentUnderpaid, http.StatusBadRequest},
	{service.ErrCurrencyMismatch, http.StatusBadRequest},
	{service.ErrBadConversation, http.StatusBadRequest},
	{nowpayments.ErrMalformedIPN, http.StatusBadRequest},

	{service.ErrUsernameTaken, http.StatusConflict},
	{service.ErrEmailTaken, http.StatusConflict},
	{service.ErrSetupNameTaken, http.StatusConflict},
	{service.ErrAlreadyAffiliate, http.StatusConflict},
	{service.ErrInvalidTransition, http.StatusConflict},
	{service.ErrCommissionClaimed, http.StatusConflict},

	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrInvalidToken, http.StatusUnauthorized},
	{nowpayments.ErrInvalidSignature, http.StatusUnauthorized},
	{service.ErrPaymentOwnership, http.StatusForbidden},
	{service.ErrFeatureLocked, http.StatusPaymentRequired},
	{service.ErrPaymentNotSuccessful, http.StatusPaymentRequired},
	{service.ErrAIRateLimited, http.StatusTooManyRequests},
	{provider.ErrNotConfigured, http.StatusServiceUnavailable},
}

// writeError maps a service error onto an HTTP answer. Provider failures keep
// their upstream status where it is meaningful to the client.
func writeError(c *gin.Context, err error, fallback string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			response.Status(c, e.status, err.Error())
			return
		}
	}

	if upstream, ok := provider.StatusOf(err); ok {
		status := provider.PassthroughStatus(upstream)
		middleware.Logger().Warn("provider error",
			zap.Int("upstream_status", upstream),
			zap.String("request_id", c.GetString(middleware.ContextKeyRequestID)),
			zap.Error(err))
		if status == http.StatusInternalServerError {
			response.InternalError(c, fallback)
			return
		}
		response.Status(c, status, err.Error())
		return
	}

	middleware.Logger().Error(fallback,
		zap.String("path", c.FullPath()),
		zap.String("request_id", c.GetString(middleware.ContextKeyRequestID)),
		zap.Error(err))
	response.InternalError(c, fallback)
}

// paramID parses a positive numeric path parameter
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// pagination reads page and page_size, clamping them to sane values
func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
