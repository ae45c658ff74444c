package domain

import "fmt"

// Tier names a policy bucket carried by the identity claim.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// TierPolicy holds the issuance caps for one tier. Zero means unlimited.
type TierPolicy struct {
	MaxPerHour    int `koanf:"max_per_hour" json:"max_per_hour"`
	MaxPerDay     int `koanf:"max_per_day" json:"max_per_day"`
	MaxConcurrent int `koanf:"max_concurrent" json:"max_concurrent"`
}

// Validate rejects negative caps.
func (p TierPolicy) Validate() error {
	if p.MaxPerHour < 0 || p.MaxPerDay < 0 || p.MaxConcurrent < 0 {
		return ErrValidation.WithDetails(fmt.Sprintf("negative cap in policy %+v", p))
	}
	return nil
}

// DefaultTierPolicies returns the built-in policy table.
func DefaultTierPolicies() map[Tier]TierPolicy {
	return map[Tier]TierPolicy{
		TierFree: {MaxPerHour: 20, MaxPerDay: 10, MaxConcurrent: 2},
		TierPro:  {MaxPerHour: 20, MaxPerDay: 100, MaxConcurrent: 5},
	}
}
