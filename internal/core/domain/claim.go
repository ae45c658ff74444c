package domain

import "time"

// Claim is the result of a successful validation. It is handed to the
// transfer engine and never contains the secret.
type Claim struct {
	TokenID   string
	OwnerID   string
	Resource  Resource
	ClaimedAt time.Time
}

// NewClaim builds a Claim from a claimed token record.
func NewClaim(t *StreamToken, at time.Time) *Claim {
	return &Claim{
		TokenID:   t.ID,
		OwnerID:   t.OwnerID,
		Resource:  t.Resource,
		ClaimedAt: at,
	}
}
