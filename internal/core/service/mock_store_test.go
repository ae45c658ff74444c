package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yndnr/streamgate-go/internal/core/domain"
)

// mockTokenStore is a mutex-guarded in-package store.
type mockTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*domain.StreamToken // by hash

	createErr error
	claimErr  error
	claims    int
}

func newMockTokenStore() *mockTokenStore {
	return &mockTokenStore{tokens: make(map[string]*domain.StreamToken)}
}

func (m *mockTokenStore) Create(ctx context.Context, tok *domain.StreamToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.tokens[tok.SecretHash]; ok {
		return domain.ErrTokenConflict
	}
	m.tokens[tok.SecretHash] = tok.Clone()
	return nil
}

func (m *mockTokenStore) Claim(ctx context.Context, hash string, at time.Time) (*domain.StreamToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims++
	if m.claimErr != nil {
		return nil, m.claimErr
	}
	tok, ok := m.tokens[hash]
	if !ok || tok.Used {
		return nil, domain.ErrTokenInvalid
	}
	tok.MarkClaimed(at)
	return tok.Clone(), nil
}

func (m *mockTokenStore) Get(ctx context.Context, id string) (*domain.StreamToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.ID == id {
			return t.Clone(), nil
		}
	}
	return nil, domain.ErrTokenInvalid
}

func (m *mockTokenStore) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*domain.StreamToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.StreamToken
	for _, t := range m.tokens {
		if t.OwnerID == ownerID {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockTokenStore) CountIssuedSince(ctx context.Context, ownerID string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tokens {
		if t.OwnerID == ownerID && t.CreatedAt >= since.UnixMilli() {
			n++
		}
	}
	return n, nil
}

func (m *mockTokenStore) CountActive(ctx context.Context, ownerID string, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tokens {
		if t.OwnerID == ownerID && t.IsActive(now) {
			n++
		}
	}
	return n, nil
}

func (m *mockTokenStore) Purge(ctx context.Context, createdBefore, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for h, t := range m.tokens {
		if t.CreatedAt < createdBefore.UnixMilli() && !t.IsActive(now) {
			delete(m.tokens, h)
			n++
		}
	}
	return n, nil
}

func (m *mockTokenStore) claimCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claims
}

// recordingMetrics counts events.
type recordingMetrics struct {
	mu       sync.Mutex
	issued   map[string]int
	denied   map[string]int
	claimed  int
	failures map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		issued:   make(map[string]int),
		denied:   make(map[string]int),
		failures: make(map[string]int),
	}
}

func (r *recordingMetrics) TokenIssued(tier string) {
	r.mu.Lock()
	r.issued[tier]++
	r.mu.Unlock()
}

func (r *recordingMetrics) IssuanceDenied(reason string) {
	r.mu.Lock()
	r.denied[reason]++
	r.mu.Unlock()
}

func (r *recordingMetrics) TokenClaimed() {
	r.mu.Lock()
	r.claimed++
	r.mu.Unlock()
}

func (r *recordingMetrics) ValidationFailed(code string) {
	r.mu.Lock()
	r.failures[code]++
	r.mu.Unlock()
}
