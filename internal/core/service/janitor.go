package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/yndnr/streamgate-go/pkg/clock"
)

// Janitor defaults.
const (
	DefaultRetention       = 48 * time.Hour
	DefaultJanitorInterval = 10 * time.Minute
)

// Janitor purges spent tokens once they can no longer affect any quota
// window. Retention must exceed both the rolling window and one day.
type Janitor struct {
	store     TokenStore
	retention time.Duration
	clock     clock.Clock
	logger    *slog.Logger
}

// NewJanitor creates a Janitor.
func NewJanitor(store TokenStore, retention time.Duration, clk clock.Clock, logger *slog.Logger) *Janitor {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{store: store, retention: retention, clock: clk, logger: logger}
}

// PurgeOnce deletes tokens older than the retention that are not active.
func (j *Janitor) PurgeOnce(ctx context.Context) (int, error) {
	now := j.clock.Now()
	return j.store.Purge(ctx, now.Add(-j.retention), now)
}

// Run purges every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := j.PurgeOnce(ctx)
			if err != nil {
				j.logger.Warn("token purge failed", "error", err)
				continue
			}
			if n > 0 {
				j.logger.Info("purged spent tokens", "count", n)
			}
		}
	}
}
