package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yndnr/streamgate-go/internal/core/domain"
	"github.com/yndnr/streamgate-go/internal/core/service"
	"github.com/yndnr/streamgate-go/pkg/cmap"
)

var _ service.TokenStore = (*Store)(nil)

// Store is an in-memory TokenStore.
type Store struct {
	// Primary index: SecretHash -> token
	tokens *cmap.Map[string, *domain.StreamToken]

	// Secondary index: TokenID -> SecretHash
	ids *cmap.Map[string, string]

	// Secondary index: OwnerID -> set of SecretHash
	owners *OwnerIndex

	// Serializes operations spanning several indexes. Claim touches only
	// the primary index and does not take it.
	mu sync.Mutex
}

// New creates an empty store.
func New() *Store {
	return &Store{
		tokens: cmap.New[string, *domain.StreamToken](),
		ids:    cmap.New[string, string](),
		owners: NewOwnerIndex(),
	}
}

// Create stores a new token.
func (s *Store) Create(_ context.Context, tok *domain.StreamToken) error {
	if err := tok.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ids.Has(tok.ID) {
		return domain.ErrTokenConflict.WithDetails("duplicate id")
	}
	if !s.tokens.SetIfAbsent(tok.SecretHash, tok.Clone()) {
		return domain.ErrTokenConflict.WithDetails("duplicate secret hash")
	}
	s.ids.Set(tok.ID, tok.SecretHash)
	s.owners.Add(tok.OwnerID, tok.SecretHash)
	return nil
}

// Claim marks the token used under the shard lock of its hash.
func (s *Store) Claim(_ context.Context, hash string, at time.Time) (*domain.StreamToken, error) {
	var claimed *domain.StreamToken
	s.tokens.Compute(hash, func(cur *domain.StreamToken, ok bool) (*domain.StreamToken, bool) {
		if !ok {
			return nil, false
		}
		if cur.Used {
			return cur, true
		}
		next := cur.Clone()
		next.MarkClaimed(at)
		claimed = next
		return next, true
	})
	if claimed == nil {
		return nil, domain.ErrTokenInvalid
	}
	return claimed.Clone(), nil
}

// Get returns a token by id.
func (s *Store) Get(_ context.Context, id string) (*domain.StreamToken, error) {
	hash, ok := s.ids.Get(id)
	if !ok {
		return nil, domain.ErrTokenInvalid
	}
	tok, ok := s.tokens.Get(hash)
	if !ok {
		return nil, domain.ErrTokenInvalid
	}
	return tok.Clone(), nil
}

// ListByOwner returns the owner's tokens, newest first.
func (s *Store) ListByOwner(_ context.Context, owner string, limit int) ([]*domain.StreamToken, error) {
	toks := s.ownerTokens(owner)
	sort.Slice(toks, func(i, j int) bool {
		if toks[i].CreatedAt != toks[j].CreatedAt {
			return toks[i].CreatedAt > toks[j].CreatedAt
		}
		return toks[i].ID > toks[j].ID
	})
	if limit > 0 && len(toks) > limit {
		toks = toks[:limit]
	}
	out := make([]*domain.StreamToken, len(toks))
	for i, t := range toks {
		out[i] = t.Clone()
	}
	return out, nil
}

// CountIssuedSince counts the owner's tokens created at or after since.
func (s *Store) CountIssuedSince(_ context.Context, owner string, since time.Time) (int, error) {
	ms := since.UnixMilli()
	n := 0
	for _, t := range s.ownerTokens(owner) {
		if t.CreatedAt >= ms {
			n++
		}
	}
	return n, nil
}

// CountActive counts the owner's unused, unexpired tokens.
func (s *Store) CountActive(_ context.Context, owner string, now time.Time) (int, error) {
	n := 0
	for _, t := range s.ownerTokens(owner) {
		if t.IsActive(now) {
			n++
		}
	}
	return n, nil
}

// Purge removes tokens created before the cutoff that are not active.
func (s *Store) Purge(_ context.Context, createdBefore, now time.Time) (int, error) {
	cutoff := createdBefore.UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()

	var victims []*domain.StreamToken
	s.tokens.DeleteIf(func(_ string, t *domain.StreamToken) bool {
		if t.CreatedAt < cutoff && !t.IsActive(now) {
			victims = append(victims, t)
			return true
		}
		return false
	})
	for _, t := range victims {
		s.ids.Delete(t.ID)
		s.owners.Remove(t.OwnerID, t.SecretHash)
	}
	return len(victims), nil
}

// Len returns the number of stored tokens.
func (s *Store) Len() int {
	return s.tokens.Count()
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) ownerTokens(owner string) []*domain.StreamToken {
	hashes := s.owners.Get(owner)
	toks := make([]*domain.StreamToken, 0, len(hashes))
	for _, h := range hashes {
		if t, ok := s.tokens.Get(h); ok {
			toks = append(toks, t)
		}
	}
	return toks
}
