package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Downgrader resets lapsed paid plans. Satisfied by *service.SubscriptionService.
type Downgrader interface {
	DowngradeExpired(ctx context.Context) (int, error)
}

// SubscriptionExpiryWorker periodically downgrades users whose paid plan has
// lapsed
type SubscriptionExpiryWorker struct {
	subscriptions Downgrader
	interval      time.Duration
	logger        *zap.Logger
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewSubscriptionExpiryWorker creates a new expiry worker
func NewSubscriptionExpiryWorker(subscriptions Downgrader, interval time.Duration, logger *zap.Logger) *SubscriptionExpiryWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SubscriptionExpiryWorker{
		subscriptions: subscriptions,
		interval:      interval,
		logger:        logger,
		stopChan:      make(chan struct{}),
	}
}

// Start runs a sweep at once, then on every tick until Stop is called
func (w *SubscriptionExpiryWorker) Start() {
	w.logger.Info("subscription expiry worker started", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep()
	for {
		select {
		case <-ticker.C:
			w.sweep()
		case <-w.stopChan:
			w.logger.Info("subscription expiry worker stopped")
			return
		}
	}
}

// Stop stops the loop. It is safe to call more than once.
func (w *SubscriptionExpiryWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}

func (w *SubscriptionExpiryWorker) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), w.interval)
	defer cancel()

	n, err := w.subscriptions.DowngradeExpired(ctx)
	if err != nil {
		w.logger.Error("expiry sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		w.logger.Info("downgraded lapsed plans", zap.Int("count", n))
	}
}
