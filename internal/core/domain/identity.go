package domain

// Identity is the authenticated caller, reduced to what the core needs.
// How it was established is the transport's concern.
type Identity struct {
	UserID string `json:"user_id"`
	Tier   Tier   `json:"tier"`
}

// Validate requires a non-empty user id.
func (i Identity) Validate() error {
	if i.UserID == "" {
		return ErrAuthInvalid.WithDetails("missing subject")
	}
	return nil
}
