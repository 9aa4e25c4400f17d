package middleware

import (
	"errors"

	"github.com/edgelog/internal/service"
	"github.com/edgelog/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FeatureChecker is satisfied by *service.SubscriptionService
type FeatureChecker interface {
	CheckFeature(userID uint, feature service.Feature) error
}

// RequireFeature blocks the route unless the user's current plan includes
// feature. The plan is read from storage, not the token, so upgrades and
// expiries apply before the token is refreshed.
func RequireFeature(checker FeatureChecker, feature service.Feature) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := checker.CheckFeature(GetUserID(c), feature)
		switch {
		case err == nil:
			c.Next()
			return
		case errors.Is(err, service.ErrFeatureLocked):
			response.PaymentRequired(c, "upgrade required for "+string(feature))
		default:
			Logger().Error("feature check failed", zap.Error(err))
			response.InternalError(c, "failed to check subscription")
		}
		c.Abort()
	}
}
