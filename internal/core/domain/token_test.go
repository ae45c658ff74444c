package domain

import (
	"strings"
	"testing"
	"time"
)

func newTestToken(t *testing.T, now time.Time, ttl time.Duration) *StreamToken {
	t.Helper()
	id, err := GenerateTokenID()
	if err != nil {
		t.Fatalf("GenerateTokenID() error = %v", err)
	}
	_, hash, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}
	return &StreamToken{
		ID:         id,
		OwnerID:    "user-1",
		SecretHash: hash,
		Resource:   Resource{SourceURL: "https://cdn.example.com/v/1", FormatID: "720p"},
		CreatedAt:  now.UnixMilli(),
		ExpiresAt:  now.Add(ttl).UnixMilli(),
	}
}

func TestStreamToken_State(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok := newTestToken(t, now, time.Minute)
	expiry := time.UnixMilli(tok.ExpiresAt)

	tests := []struct {
		name string
		at   time.Time
		used bool
		want TokenState
	}{
		{"fresh", now, false, TokenStateActive},
		{"just before expiry", expiry.Add(-time.Millisecond), false, TokenStateActive},
		{"at expiry", expiry, false, TokenStateExpired},
		{"after expiry", expiry.Add(time.Hour), false, TokenStateExpired},
		{"used before expiry", now, true, TokenStateConsumed},
		{"used after expiry", expiry.Add(time.Hour), true, TokenStateConsumed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tok.Clone()
			c.Used = tt.used
			if got := c.State(tt.at); got != tt.want {
				t.Errorf("State() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStreamToken_MarkClaimed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok := newTestToken(t, now, time.Minute)

	at := now.Add(10 * time.Second)
	tok.MarkClaimed(at)

	if !tok.Used || tok.UsedAt != at.UnixMilli() {
		t.Errorf("MarkClaimed() used=%v used_at=%d", tok.Used, tok.UsedAt)
	}
	if tok.AccessCount != 1 || tok.LastAccessAt != at.UnixMilli() {
		t.Errorf("MarkClaimed() access_count=%d last_access_at=%d", tok.AccessCount, tok.LastAccessAt)
	}
}

func TestStreamToken_Clone(t *testing.T) {
	now := time.Now()
	tok := newTestToken(t, now, time.Minute)
	tok.Binding = NewClientBinding(&ClientInfo{IP: "10.0.0.1"})

	c := tok.Clone()
	c.Binding.IP = "10.0.0.2"
	c.Used = true

	if tok.Binding.IP != "10.0.0.1" || tok.Used {
		t.Error("Clone() should not share state with the original")
	}
	if (*StreamToken)(nil).Clone() != nil {
		t.Error("Clone() of nil should be nil")
	}
}

func TestStreamToken_Validate(t *testing.T) {
	now := time.Now()

	t.Run("valid", func(t *testing.T) {
		if err := newTestToken(t, now, time.Minute).Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	t.Run("missing owner", func(t *testing.T) {
		tok := newTestToken(t, now, time.Minute)
		tok.OwnerID = ""
		if err := tok.Validate(); !IsDomainError(err, CodeValidation) {
			t.Errorf("Validate() error = %v, want VALIDATION_ERROR", err)
		}
	})

	t.Run("expiry not after creation", func(t *testing.T) {
		tok := newTestToken(t, now, time.Minute)
		tok.ExpiresAt = tok.CreatedAt
		if err := tok.Validate(); !IsDomainError(err, CodeValidation) {
			t.Errorf("Validate() error = %v, want VALIDATION_ERROR", err)
		}
	})

	t.Run("plaintext in hash field", func(t *testing.T) {
		tok := newTestToken(t, now, time.Minute)
		tok.SecretHash, _, _ = GenerateSecret()
		if err := tok.Validate(); err == nil {
			t.Error("Validate() should reject a plaintext secret as hash")
		}
	})
}

func TestGenerateTokenID(t *testing.T) {
	id, err := GenerateTokenID()
	if err != nil {
		t.Fatalf("GenerateTokenID() error = %v", err)
	}
	if !strings.HasPrefix(id, TokenIDPrefix) {
		t.Errorf("id %q missing prefix", id)
	}
	if strings.ToLower(id) != id {
		t.Errorf("id %q should be lowercase", id)
	}
	if len(id) != len(TokenIDPrefix)+26 {
		t.Errorf("id length = %d", len(id))
	}
	if !ValidateTokenID(id) {
		t.Errorf("ValidateTokenID(%q) = false", id)
	}
	if ValidateTokenID("tmss-" + id[len(TokenIDPrefix):]) {
		t.Error("ValidateTokenID() should reject a foreign prefix")
	}
	if ValidateTokenID(TokenIDPrefix + "not-a-ulid") {
		t.Error("ValidateTokenID() should reject a non-ULID body")
	}
}
