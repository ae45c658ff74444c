package service

import (
	"context"
	"time"

	"github.com/yndnr/streamgate-go/internal/core/domain"
)

// TokenStore is the persistence port for stream tokens.
//
// Claim is the only correctness-critical operation: it must flip used from
// false to true in one conditional update so that exactly one concurrent
// caller wins.
type TokenStore interface {
	// Create inserts a new token. Duplicate id or hash returns ErrTokenConflict.
	Create(ctx context.Context, tok *domain.StreamToken) error

	// Claim atomically marks the unused token with secretHash as used at the
	// given time and returns the updated record. It returns ErrTokenInvalid
	// when no row was claimed: unknown hash, already used, or lost race.
	// Expiry is not checked here.
	Claim(ctx context.Context, secretHash string, at time.Time) (*domain.StreamToken, error)

	// Get returns a token by id, or ErrTokenInvalid.
	Get(ctx context.Context, id string) (*domain.StreamToken, error)

	// ListByOwner returns up to limit of the owner's tokens, newest first.
	// A limit of zero or less returns all of them.
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]*domain.StreamToken, error)

	// CountIssuedSince counts the owner's tokens created at or after since.
	CountIssuedSince(ctx context.Context, ownerID string, since time.Time) (int, error)

	// CountActive counts the owner's tokens that are unused and unexpired at now.
	CountActive(ctx context.Context, ownerID string, now time.Time) (int, error)

	// Purge deletes tokens created before the cutoff that are no longer
	// active at now, and returns how many were removed.
	Purge(ctx context.Context, createdBefore, now time.Time) (int, error)
}
