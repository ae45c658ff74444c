package httpserver

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/streamgate-go/pkg/clock"
	"github.com/yndnr/streamgate-go/pkg/cmap"
)

type limiterEntry struct {
	lim  *rate.Limiter
	seen atomic.Int64 // unix nanos
}

// RateLimiter keeps one token bucket per client key.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	clock   clock.Clock
	entries *cmap.Map[string, *limiterEntry]
}

// NewRateLimiter creates a limiter allowing rps requests per second with
// the given burst. Buckets unused for idleTTL are dropped by Sweep.
func NewRateLimiter(rps float64, burst int, idleTTL time.Duration, clk clock.Clock) *RateLimiter {
	if clk == nil {
		clk = clock.Real()
	}
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		clock:   clk,
		entries: cmap.New[string, *limiterEntry](),
	}
}

// Allow reports whether key may make a request now. When it may not, the
// returned duration is how long until a token is available.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	now := l.clock.Now()
	e, _ := l.entries.Compute(key, func(cur *limiterEntry, ok bool) (*limiterEntry, bool) {
		if ok {
			return cur, true
		}
		return &limiterEntry{lim: rate.NewLimiter(l.limit, l.burst)}, true
	})
	e.seen.Store(now.UnixNano())

	r := e.lim.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

// Len returns the number of tracked clients.
func (l *RateLimiter) Len() int { return l.entries.Count() }

// Sweep drops idle buckets and returns how many were removed.
func (l *RateLimiter) Sweep() int {
	cutoff := l.clock.Now().Add(-l.idleTTL).UnixNano()
	return l.entries.DeleteIf(func(_ string, e *limiterEntry) bool {
		return e.seen.Load() < cutoff
	})
}

// defaultSweepInterval applies when Run is given a non-positive interval.
const defaultSweepInterval = time.Minute

// Run sweeps every interval until ctx is done.
func (l *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}
