// Package storetest holds the behavioural checks every TokenStore
// implementation must pass.
package storetest

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/streamgate-go/internal/core/domain"
	"github.com/yndnr/streamgate-go/internal/core/service"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) service.TokenStore

var base = time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)

// NewToken builds a valid unused token for owner created at createdAt.
func NewToken(t *testing.T, owner string, createdAt time.Time, ttl time.Duration) (*domain.StreamToken, string) {
	t.Helper()
	secret, hash, err := domain.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}
	id, err := domain.GenerateTokenID()
	if err != nil {
		t.Fatalf("GenerateTokenID() error = %v", err)
	}
	return &domain.StreamToken{
		ID:         id,
		OwnerID:    owner,
		SecretHash: hash,
		Resource:   domain.Resource{SourceURL: "https://cdn.example.com/v.mp4", FormatID: "720p"},
		CreatedAt:  createdAt.UnixMilli(),
		ExpiresAt:  createdAt.Add(ttl).UnixMilli(),
	}, secret
}

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("CreateConflict", func(t *testing.T) { testCreateConflict(t, newStore(t)) })
	t.Run("ClaimOnce", func(t *testing.T) { testClaimOnce(t, newStore(t)) })
	t.Run("ClaimExpiredStillClaims", func(t *testing.T) { testClaimExpired(t, newStore(t)) })
	t.Run("ClaimConcurrent", func(t *testing.T) { testClaimConcurrent(t, newStore(t)) })
	t.Run("Counts", func(t *testing.T) { testCounts(t, newStore(t)) })
	t.Run("ListByOwner", func(t *testing.T) { testListByOwner(t, newStore(t)) })
	t.Run("Purge", func(t *testing.T) { testPurge(t, newStore(t)) })
}

func testCreateAndGet(t *testing.T, s service.TokenStore) {
	tok, _ := NewToken(t, "u1", base, time.Minute)
	tok.Binding = domain.NewClientBinding(&domain.ClientInfo{IP: "10.0.0.1", UserAgent: "ua"})
	if err := s.Create(t.Context(), tok); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := s.Get(t.Context(), tok.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.SecretHash != tok.SecretHash || got.OwnerID != "u1" || got.Resource != tok.Resource {
		t.Errorf("Get() = %+v", got)
	}
	if got.Binding == nil || got.Binding.Fingerprint != tok.Binding.Fingerprint {
		t.Errorf("binding = %+v", got.Binding)
	}

	if _, err := s.Get(t.Context(), "sgst-01hzzzzzzzzzzzzzzzzzzzzzzz"); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("Get(unknown) error = %v, want TOKEN_INVALID", err)
	}
}

func testCreateConflict(t *testing.T, s service.TokenStore) {
	tok, _ := NewToken(t, "u1", base, time.Minute)
	if err := s.Create(t.Context(), tok); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	sameHash, _ := NewToken(t, "u2", base, time.Minute)
	sameHash.SecretHash = tok.SecretHash
	if err := s.Create(t.Context(), sameHash); !errors.Is(err, domain.ErrTokenConflict) {
		t.Errorf("duplicate hash error = %v, want TOKEN_CONFLICT", err)
	}

	sameID, _ := NewToken(t, "u2", base, time.Minute)
	sameID.ID = tok.ID
	if err := s.Create(t.Context(), sameID); !errors.Is(err, domain.ErrTokenConflict) {
		t.Errorf("duplicate id error = %v, want TOKEN_CONFLICT", err)
	}
}

func testClaimOnce(t *testing.T, s service.TokenStore) {
	tok, _ := NewToken(t, "u1", base, time.Minute)
	if err := s.Create(t.Context(), tok); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	at := base.Add(5 * time.Second)
	got, err := s.Claim(t.Context(), tok.SecretHash, at)
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if !got.Used || got.UsedAt != at.UnixMilli() || got.AccessCount != 1 || got.LastAccessAt != at.UnixMilli() {
		t.Errorf("claimed = %+v", got)
	}

	if _, err := s.Claim(t.Context(), tok.SecretHash, at); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("second Claim() error = %v, want TOKEN_INVALID", err)
	}
	if _, err := s.Claim(t.Context(), domain.HashSecret("sgtk_nope"), at); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("Claim(unknown) error = %v, want TOKEN_INVALID", err)
	}

	stored, _ := s.Get(t.Context(), tok.ID)
	if !stored.Used || stored.AccessCount != 1 {
		t.Errorf("stored after claim = %+v", stored)
	}
}

func testClaimExpired(t *testing.T, s service.TokenStore) {
	tok, _ := NewToken(t, "u1", base, time.Minute)
	if err := s.Create(t.Context(), tok); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	got, err := s.Claim(t.Context(), tok.SecretHash, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if !got.Used {
		t.Error("expired token should still be claimable once")
	}
}

func testClaimConcurrent(t *testing.T, s service.TokenStore) {
	tok, _ := NewToken(t, "u1", base, time.Minute)
	if err := s.Create(t.Context(), tok); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	const n = 32
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		wins  int
		other []error
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.Claim(t.Context(), tok.SecretHash, base.Add(time.Second))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case !errors.Is(err, domain.ErrTokenInvalid):
				other = append(other, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if wins != 1 {
		t.Errorf("winners = %d, want exactly 1", wins)
	}
	if len(other) > 0 {
		t.Errorf("unexpected errors: %v", other)
	}
	stored, _ := s.Get(t.Context(), tok.ID)
	if stored.AccessCount != 1 {
		t.Errorf("access_count = %d, want 1", stored.AccessCount)
	}
}

func testCounts(t *testing.T, s service.TokenStore) {
	for i := 0; i < 5; i++ {
		tok, _ := NewToken(t, "u1", base.Add(time.Duration(i)*time.Minute), 10*time.Minute)
		if err := s.Create(t.Context(), tok); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if i == 0 {
			if _, err := s.Claim(t.Context(), tok.SecretHash, base); err != nil {
				t.Fatalf("Claim() error = %v", err)
			}
		}
	}
	other, _ := NewToken(t, "u2", base, time.Minute)
	_ = s.Create(t.Context(), other)

	n, err := s.CountIssuedSince(t.Context(), "u1", base.Add(2*time.Minute))
	if err != nil || n != 3 {
		t.Errorf("CountIssuedSince() = %d, %v, want 3", n, err)
	}
	n, _ = s.CountIssuedSince(t.Context(), "u1", base)
	if n != 5 {
		t.Errorf("CountIssuedSince(base) = %d, want 5", n)
	}

	// At base+11m: token 0 is used, token 1 (created +1m) has expired.
	n, err = s.CountActive(t.Context(), "u1", base.Add(11*time.Minute))
	if err != nil || n != 3 {
		t.Errorf("CountActive() = %d, %v, want 3", n, err)
	}
	n, _ = s.CountActive(t.Context(), "nobody", base)
	if n != 0 {
		t.Errorf("CountActive(nobody) = %d", n)
	}
}

func testListByOwner(t *testing.T, s service.TokenStore) {
	var ids []string
	for i := 0; i < 4; i++ {
		tok, _ := NewToken(t, "u1", base.Add(time.Duration(i)*time.Second), time.Minute)
		if err := s.Create(t.Context(), tok); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		ids = append(ids, tok.ID)
	}

	all, err := s.ListByOwner(t.Context(), "u1", 0)
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("len = %d, want 4", len(all))
	}
	for i, tok := range all {
		if tok.ID != ids[len(ids)-1-i] {
			t.Errorf("position %d = %s, want newest first", i, tok.ID)
		}
	}

	two, _ := s.ListByOwner(t.Context(), "u1", 2)
	if len(two) != 2 || two[0].ID != ids[3] {
		t.Errorf("limited list = %d entries", len(two))
	}
	none, _ := s.ListByOwner(t.Context(), "nobody", 0)
	if len(none) != 0 {
		t.Errorf("ListByOwner(nobody) = %d entries", len(none))
	}
}

func testPurge(t *testing.T, s service.TokenStore) {
	spent, _ := NewToken(t, "u1", base, time.Minute)
	longLived, _ := NewToken(t, "u1", base, 72*time.Hour)
	fresh, _ := NewToken(t, "u1", base.Add(47*time.Hour), time.Minute)
	for _, tok := range []*domain.StreamToken{spent, longLived, fresh} {
		if err := s.Create(t.Context(), tok); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	now := base.Add(48 * time.Hour)
	n, err := s.Purge(t.Context(), now.Add(-24*time.Hour), now)
	if err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Purge() = %d, want 1", n)
	}
	if _, err := s.Get(t.Context(), spent.ID); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Error("spent token should be gone")
	}
	if _, err := s.Get(t.Context(), longLived.ID); err != nil {
		t.Error("still-active token must survive purge")
	}
	if _, err := s.Get(t.Context(), fresh.ID); err != nil {
		t.Error("recent token must survive purge")
	}
	if c, _ := s.CountIssuedSince(t.Context(), "u1", base.Add(-time.Hour)); c != 2 {
		t.Errorf("owner index count after purge = %d, want 2", c)
	}
}
