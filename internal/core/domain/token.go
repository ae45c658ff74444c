package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// TokenIDPrefix prefixes every stream token id.
const TokenIDPrefix = "sgst-"

// TokenState is the computed lifecycle state of a StreamToken.
type TokenState string

const (
	TokenStateActive   TokenState = "active"
	TokenStateConsumed TokenState = "consumed"
	TokenStateExpired  TokenState = "expired"
)

// StreamToken is a single-use grant to pull one resource.
//
// Only SecretHash is stored; the plaintext secret leaves the issuer once
// and is never persisted. All timestamps are Unix milliseconds.
type StreamToken struct {
	ID         string   `json:"id"`
	OwnerID    string   `json:"owner_id"`
	SecretHash string   `json:"secret_hash"`
	Resource   Resource `json:"resource"`

	CreatedAt int64 `json:"created_at"`
	ExpiresAt int64 `json:"expires_at"`

	Used   bool  `json:"used"`
	UsedAt int64 `json:"used_at,omitempty"`

	Binding *ClientBinding `json:"binding,omitempty"`

	AccessCount  int64 `json:"access_count"`
	LastAccessAt int64 `json:"last_access_at,omitempty"`
}

// State derives the lifecycle state at now.
func (t *StreamToken) State(now time.Time) TokenState {
	switch {
	case t.Used:
		return TokenStateConsumed
	case now.UnixMilli() >= t.ExpiresAt:
		return TokenStateExpired
	default:
		return TokenStateActive
	}
}

// IsActive reports whether the token can still be claimed at now.
func (t *StreamToken) IsActive(now time.Time) bool {
	return t.State(now) == TokenStateActive
}

// IsExpired reports whether the expiry has passed at now, regardless of use.
func (t *StreamToken) IsExpired(now time.Time) bool {
	return now.UnixMilli() >= t.ExpiresAt
}

// MarkClaimed applies the claim transition in place: used, used_at and
// the access counters. Callers must hold whatever lock makes this atomic.
func (t *StreamToken) MarkClaimed(at time.Time) {
	ms := at.UnixMilli()
	t.Used = true
	t.UsedAt = ms
	t.AccessCount++
	t.LastAccessAt = ms
}

// Clone returns a deep copy.
func (t *StreamToken) Clone() *StreamToken {
	if t == nil {
		return nil
	}
	c := *t
	if t.Binding != nil {
		b := *t.Binding
		c.Binding = &b
	}
	return &c
}

// Validate checks the record shape before it is written.
func (t *StreamToken) Validate() error {
	if !ValidateTokenID(t.ID) {
		return ErrValidation.WithDetails("invalid token id")
	}
	if t.OwnerID == "" {
		return ErrValidation.WithDetails("owner_id is required")
	}
	if !ValidateSecretHashFormat(t.SecretHash) {
		return ErrValidation.WithDetails("invalid secret hash")
	}
	if t.ExpiresAt <= t.CreatedAt {
		return ErrValidation.WithDetails("expires_at must be after created_at")
	}
	return t.Resource.Validate()
}

// GenerateTokenID returns a new id of the form sgst-{lowercase ulid}.
func GenerateTokenID() (string, error) {
	id, err := ulid.New(ulid.Now(), rand.Reader)
	if err != nil {
		return "", ErrInternal.WithCause(err)
	}
	return TokenIDPrefix + strings.ToLower(id.String()), nil
}

// ValidateTokenID reports whether id has the sgst- prefix and a parsable ULID.
func ValidateTokenID(id string) bool {
	if !strings.HasPrefix(id, TokenIDPrefix) {
		return false
	}
	_, err := ulid.ParseStrict(strings.ToUpper(id[len(TokenIDPrefix):]))
	return err == nil
}
