package service

import (
	"context"
	"math"
	"time"

	"github.com/yndnr/streamgate-go/internal/core/domain"
	"github.com/yndnr/streamgate-go/pkg/clock"
)

// DefaultQuotaWindow is the rolling window for the hourly cap.
const DefaultQuotaWindow = time.Hour

// QuotaStatus reports usage against both issuance caps. Limits of zero
// mean unlimited, in which case Remaining is -1.
type QuotaStatus struct {
	HourlyUsed      int       `json:"hourly_used"`
	HourlyLimit     int       `json:"hourly_limit"`
	HourlyRemaining int       `json:"hourly_remaining"`
	HourlyReset     time.Time `json:"hourly_reset"`

	DailyUsed      int       `json:"daily_used"`
	DailyLimit     int       `json:"daily_limit"`
	DailyRemaining int       `json:"daily_remaining"`
	DailyReset     time.Time `json:"daily_reset"`
}

// QuotaGuard enforces the calendar-day and rolling-window issuance caps.
// Counts come from the store on every check.
type QuotaGuard struct {
	store  TokenStore
	window time.Duration
	loc    *time.Location
	clock  clock.Clock
}

// NewQuotaGuard creates a QuotaGuard. A nil location means time.Local.
func NewQuotaGuard(store TokenStore, window time.Duration, loc *time.Location, clk clock.Clock) *QuotaGuard {
	if window <= 0 {
		window = DefaultQuotaWindow
	}
	if loc == nil {
		loc = time.Local
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &QuotaGuard{store: store, window: window, loc: loc, clock: clk}
}

// Window returns the rolling window length.
func (g *QuotaGuard) Window() time.Duration { return g.window }

// Usage counts issuance without deciding.
func (g *QuotaGuard) Usage(ctx context.Context, ownerID string, policy domain.TierPolicy) (*QuotaStatus, error) {
	now := g.clock.Now()
	midnight, nextMidnight := dayBounds(now, g.loc)

	daily, err := g.store.CountIssuedSince(ctx, ownerID, midnight)
	if err != nil {
		return nil, domain.ErrInternal.WithCause(err)
	}
	hourly, err := g.store.CountIssuedSince(ctx, ownerID, now.Add(-g.window))
	if err != nil {
		return nil, domain.ErrInternal.WithCause(err)
	}

	return &QuotaStatus{
		HourlyUsed:      hourly,
		HourlyLimit:     policy.MaxPerHour,
		HourlyRemaining: remaining(policy.MaxPerHour, hourly),
		HourlyReset:     now.Add(g.window),
		DailyUsed:       daily,
		DailyLimit:      policy.MaxPerDay,
		DailyRemaining:  remaining(policy.MaxPerDay, daily),
		DailyReset:      nextMidnight,
	}, nil
}

// Check returns the current status, or a *domain.QuotaExceededError when
// either cap is reached. The daily cap is checked first.
func (g *QuotaGuard) Check(ctx context.Context, ownerID string, policy domain.TierPolicy) (*QuotaStatus, error) {
	st, err := g.Usage(ctx, ownerID, policy)
	if err != nil {
		return nil, err
	}
	now := g.clock.Now()

	if policy.MaxPerDay > 0 && st.DailyUsed >= policy.MaxPerDay {
		return st, &domain.QuotaExceededError{
			Reason:            domain.QuotaReasonDaily,
			Limit:             policy.MaxPerDay,
			Used:              st.DailyUsed,
			Remaining:         0,
			ResetTime:         st.DailyReset,
			RetryAfterSeconds: retryAfter(st.DailyReset.Sub(now)),
		}
	}

	if policy.MaxPerHour > 0 && st.HourlyUsed >= policy.MaxPerHour {
		return st, &domain.QuotaExceededError{
			Reason:            domain.QuotaReasonHourly,
			Limit:             policy.MaxPerHour,
			Used:              st.HourlyUsed,
			Remaining:         0,
			ResetTime:         st.HourlyReset,
			RetryAfterSeconds: retryAfter(st.HourlyReset.Sub(now)),
		}
	}

	return st, nil
}

// dayBounds returns local midnight of now's day and of the next day.
func dayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc), time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

func remaining(limit, used int) int {
	if limit <= 0 {
		return -1
	}
	return max(0, limit-used)
}

// retryAfter rounds up to whole seconds, never below one.
func retryAfter(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}
