package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestDomainError_Is(t *testing.T) {
	err := ErrTokenInvalid.WithDetails("already used")
	if !errors.Is(err, ErrTokenInvalid) {
		t.Error("errors.Is should match by code")
	}
	if errors.Is(err, ErrTokenExpired) {
		t.Error("errors.Is should not match a different code")
	}

	wrapped := fmt.Errorf("validate: %w", err)
	if !errors.Is(wrapped, ErrTokenInvalid) {
		t.Error("errors.Is should see through fmt wrapping")
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := ErrStorage.WithCause(cause)
	if !errors.Is(err, cause) {
		t.Error("cause should be reachable via errors.Is")
	}
	if ErrStorage.Cause != nil {
		t.Error("WithCause must not mutate the sentinel")
	}
}

func TestPublicCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain error", errors.New("boom"), CodeInternal},
		{"expired", ErrTokenExpired, CodeTokenInvalid},
		{"binding", fmt.Errorf("x: %w", ErrTokenBindingMismatch), CodeTokenInvalid},
		{"storage", ErrStorage.WithCause(errors.New("io")), CodeInternal},
		{"conflict", ErrTokenConflict, CodeInternal},
		{"missing", ErrTokenMissing, CodeTokenMissing},
		{"format", ErrTokenInvalidFormat, CodeTokenInvalidFormat},
		{"quota", &QuotaExceededError{Reason: QuotaReasonHourly}, CodeQuotaExceeded},
		{"concurrency", &ConcurrencyExceededError{MaxConcurrent: 2, Active: 2}, CodeConcurrencyExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PublicCode(tt.err); got != tt.want {
				t.Errorf("PublicCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQuotaExceededError(t *testing.T) {
	reset := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	err := &QuotaExceededError{
		Reason: QuotaReasonHourly, Limit: 20, Used: 20, Remaining: 0,
		ResetTime: reset, RetryAfterSeconds: 3600,
	}

	if !errors.Is(err, ErrQuotaExceeded) {
		t.Error("QuotaExceededError should unwrap to ErrQuotaExceeded")
	}
	var qe *QuotaExceededError
	if !errors.As(fmt.Errorf("issue: %w", err), &qe) || qe.RetryAfter() != 3600 {
		t.Error("errors.As should recover the typed denial")
	}

	d := err.Details()
	if d["reason"] != QuotaReasonHourly || d["reset_time"] != "2026-03-01T13:00:00Z" || d["retry_after_seconds"] != 3600 {
		t.Errorf("Details() = %v", d)
	}
}

func TestConcurrencyExceededError(t *testing.T) {
	err := &ConcurrencyExceededError{MaxConcurrent: 5, Active: 5}
	if !errors.Is(err, ErrConcurrencyExceeded) {
		t.Error("ConcurrencyExceededError should unwrap to ErrConcurrencyExceeded")
	}
	d := err.Details()
	if d["max_concurrent"] != 5 || d["max_tokens"] != 5 || d["active"] != 5 {
		t.Errorf("Details() = %v", d)
	}
}

func TestTierPolicy_Validate(t *testing.T) {
	for tier, p := range DefaultTierPolicies() {
		if err := p.Validate(); err != nil {
			t.Errorf("default policy %s invalid: %v", tier, err)
		}
	}
	if err := (TierPolicy{MaxPerHour: -1}).Validate(); err == nil {
		t.Error("negative cap should be rejected")
	}
}
