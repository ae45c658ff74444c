package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/yndnr/streamgate-go/internal/core/domain"
	"github.com/yndnr/streamgate-go/pkg/clock"
	"github.com/yndnr/streamgate-go/pkg/cmap"
)

// DenialCache defaults.
const (
	DefaultDenyCacheTTL  = 5 * time.Second
	DefaultSweepInterval = 30 * time.Second
)

type denialEntry struct {
	denial *domain.QuotaExceededError
	until  time.Time
}

// DenialCache replays recent quota denials so repeated requests from a
// capped owner skip the store. It only ever rejects; a miss always falls
// through to the authoritative guards.
type DenialCache struct {
	entries *cmap.Map[string, denialEntry]
	ttl     time.Duration
	clock   clock.Clock
}

// NewDenialCache creates a cache holding denials for at most ttl.
// A ttl below zero disables caching.
func NewDenialCache(ttl time.Duration, clk clock.Clock) *DenialCache {
	if ttl == 0 {
		ttl = DefaultDenyCacheTTL
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &DenialCache{
		entries: cmap.New[string, denialEntry](),
		ttl:     ttl,
		clock:   clk,
	}
}

// Record stores an authoritative denial for min(retryAfter, ttl).
// Errors other than *domain.QuotaExceededError are ignored.
func (c *DenialCache) Record(ownerID string, err error) {
	if c.ttl < 0 {
		return
	}
	var qe *domain.QuotaExceededError
	if !errors.As(err, &qe) {
		return
	}
	hold := min(time.Duration(qe.RetryAfterSeconds)*time.Second, c.ttl)
	if hold <= 0 {
		return
	}
	c.entries.Set(ownerID, denialEntry{denial: qe, until: c.clock.Now().Add(hold)})
}

// Lookup returns a copy of the cached denial with its retry hint
// recomputed for now, or nil.
func (c *DenialCache) Lookup(ownerID string) *domain.QuotaExceededError {
	e, ok := c.entries.Get(ownerID)
	if !ok {
		return nil
	}
	now := c.clock.Now()
	if !now.Before(e.until) {
		return nil
	}
	d := *e.denial
	d.RetryAfterSeconds = retryAfter(d.ResetTime.Sub(now))
	return &d
}

// Forget drops any cached denial for the owner.
func (c *DenialCache) Forget(ownerID string) {
	c.entries.Delete(ownerID)
}

// Len returns the number of cached entries, including stale ones.
func (c *DenialCache) Len() int {
	return c.entries.Count()
}

// Sweep removes stale entries and returns how many were dropped.
func (c *DenialCache) Sweep() int {
	now := c.clock.Now()
	return c.entries.DeleteIf(func(_ string, e denialEntry) bool {
		return !now.Before(e.until)
	})
}

// Run sweeps every interval until ctx is done.
func (c *DenialCache) Run(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 && logger != nil {
				logger.Debug("denial cache swept", "removed", n)
			}
		}
	}
}
