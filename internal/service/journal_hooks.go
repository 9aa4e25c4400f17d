package service

import (
	"context"
	"time"

	"github.com/edgelog/internal/cache"
	"github.com/edgelog/internal/metrics"
	"github.com/edgelog/internal/realtime"
	"go.uber.org/zap"
)

// JournalHooks runs the side effects of a journal write: the day's risk
// tracker is rebuilt, cached analytics are dropped and connected clients
// are notified. Failures are logged, never returned, since the write itself
// already succeeded.
type JournalHooks struct {
	risk      *RiskService
	cache     cache.Store
	publisher realtime.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewJournalHooks creates a new JournalHooks. cache and publisher may be nil.
func NewJournalHooks(
	risk *RiskService,
	store cache.Store,
	publisher realtime.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *JournalHooks {
	return &JournalHooks{
		risk:      risk,
		cache:     store,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// TradeWritten is called after a trade of schema was created, updated,
// deleted or converted. days are the entry times whose trading day changed.
func (h *JournalHooks) TradeWritten(ctx context.Context, userID uint, schema, action string, tradeID uint, days ...time.Time) {
	h.metrics.RecordTrade(schema, action)

	if h.cache != nil {
		if err := h.cache.Invalidate(ctx, userID); err != nil {
			h.logger.Warn("analytics cache invalidation failed", zap.Uint("user_id", userID), zap.Error(err))
		}
	}

	seen := make(map[string]bool, len(days))
	for _, day := range days {
		if day.IsZero() {
			continue
		}
		tracker, err := h.risk.Recompute(userID, day)
		if err != nil {
			h.logger.Error("risk tracker recompute failed", zap.Uint("user_id", userID), zap.Time("day", day), zap.Error(err))
			continue
		}
		if seen[tracker.Day] {
			continue
		}
		seen[tracker.Day] = true
		h.publish(ctx, realtime.Event{Type: realtime.EventRiskUpdated, UserID: userID, Data: tracker})
	}

	h.publish(ctx, realtime.Event{
		Type:    "trade." + action,
		UserID:  userID,
		Source:  schema,
		TradeID: tradeID,
	})
}

func (h *JournalHooks) publish(ctx context.Context, ev realtime.Event) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(ctx, ev); err != nil {
		h.logger.Warn("realtime publish failed", zap.String("type", ev.Type), zap.Error(err))
	}
}
