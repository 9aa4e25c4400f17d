package provider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned when a provider has no credentials
var ErrNotConfigured = errors.New("provider not configured")

// Error is a non-2xx answer from an upstream provider. StatusCode is passed
// through to API clients.
type Error struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: http %d: %s", e.Provider, e.StatusCode, e.Message)
}

// StatusOf extracts the upstream status from err, if it carries one
func StatusOf(err error) (int, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.StatusCode, true
	}
	return 0, false
}

// PassthroughStatus maps an upstream status onto the status returned to our
// clients. Auth, billing and rate-limit answers keep their code; everything
// else becomes a 500.
func PassthroughStatus(status int) int {
	switch status {
	case http.StatusUnauthorized, http.StatusPaymentRequired, http.StatusTooManyRequests:
		return status
	default:
		return http.StatusInternalServerError
	}
}

// Do executes req, retrying network failures and 5xx answers with
// exponential backoff. 4xx answers are returned at once as *Error.
func Do(ctx context.Context, name string, logger *zap.Logger, maxRetries int, method, url string, req *resty.Request) (*resty.Response, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}
	req.SetContext(ctx)

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		logger.Debug("Executing provider request", zap.String("provider", name), zap.String("method", method), zap.String("url", url))
		resp, err := req.Execute(method, url)
		if err == nil && !resp.IsError() {
			return resp, nil
		}

		var wait time.Duration
		if err != nil {
			lastErr = fmt.Errorf("%s request failed: %w", name, err)
		} else {
			lastErr = &Error{Provider: name, StatusCode: resp.StatusCode(), Message: truncate(resp.String(), 300)}
			if resp.StatusCode() < 500 {
				return nil, lastErr
			}
			if s, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
				wait = time.Duration(s) * time.Second
			}
		}

		if i == maxRetries-1 {
			break
		}
		if wait == 0 {
			wait = time.Duration(math.Pow(2, float64(i))) * 250 * time.Millisecond
		}
		logger.Warn("Provider request failed, retrying...",
			zap.String("provider", name),
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", wait),
			zap.Error(lastErr),
		)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
