package service

import (
	"context"

	"github.com/yndnr/streamgate-go/internal/core/domain"
	"github.com/yndnr/streamgate-go/pkg/clock"
)

// ConcurrencyGuard caps the number of active tokens an owner may hold.
type ConcurrencyGuard struct {
	store TokenStore
	clock clock.Clock
}

// NewConcurrencyGuard creates a ConcurrencyGuard.
func NewConcurrencyGuard(store TokenStore, clk clock.Clock) *ConcurrencyGuard {
	if clk == nil {
		clk = clock.Real()
	}
	return &ConcurrencyGuard{store: store, clock: clk}
}

// Active returns the owner's active token count.
func (g *ConcurrencyGuard) Active(ctx context.Context, ownerID string) (int, error) {
	n, err := g.store.CountActive(ctx, ownerID, g.clock.Now())
	if err != nil {
		return 0, domain.ErrInternal.WithCause(err)
	}
	return n, nil
}

// Check returns the active count, or a *domain.ConcurrencyExceededError
// when it has reached MaxConcurrent.
func (g *ConcurrencyGuard) Check(ctx context.Context, ownerID string, policy domain.TierPolicy) (int, error) {
	active, err := g.Active(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	if policy.MaxConcurrent > 0 && active >= policy.MaxConcurrent {
		return active, &domain.ConcurrencyExceededError{
			MaxConcurrent: policy.MaxConcurrent,
			Active:        active,
		}
	}
	return active, nil
}
