package service

import (
	"fmt"
	"maps"
	"sync/atomic"

	"github.com/yndnr/streamgate-go/internal/core/domain"
)

type policySet struct {
	tiers       map[domain.Tier]domain.TierPolicy
	defaultTier domain.Tier
}

// PolicyTable maps tiers to policies. It can be replaced at runtime while
// readers continue without locking.
type PolicyTable struct {
	set atomic.Pointer[policySet]
}

// NewPolicyTable creates a table. It fails when the default tier is absent
// or a policy is invalid.
func NewPolicyTable(tiers map[domain.Tier]domain.TierPolicy, defaultTier domain.Tier) (*PolicyTable, error) {
	t := &PolicyTable{}
	if err := t.Replace(tiers, defaultTier); err != nil {
		return nil, err
	}
	return t, nil
}

// Replace swaps in a new table atomically.
func (t *PolicyTable) Replace(tiers map[domain.Tier]domain.TierPolicy, defaultTier domain.Tier) error {
	if _, ok := tiers[defaultTier]; !ok {
		return domain.ErrValidation.WithDetails(fmt.Sprintf("default tier %q has no policy", defaultTier))
	}
	for tier, p := range tiers {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("tier %s: %w", tier, err)
		}
	}
	t.set.Store(&policySet{tiers: maps.Clone(tiers), defaultTier: defaultTier})
	return nil
}

// Resolve returns the policy for tier. Unknown or empty tiers fall back to
// the default tier, and the tier actually applied is returned.
func (t *PolicyTable) Resolve(tier domain.Tier) (domain.Tier, domain.TierPolicy) {
	s := t.set.Load()
	if p, ok := s.tiers[tier]; ok {
		return tier, p
	}
	return s.defaultTier, s.tiers[s.defaultTier]
}

// Snapshot returns a copy of the current table.
func (t *PolicyTable) Snapshot() map[domain.Tier]domain.TierPolicy {
	return maps.Clone(t.set.Load().tiers)
}
