package domain

import (
	"fmt"
	"time"
)

// Quota denial reasons.
const (
	QuotaReasonDaily  = "daily_limit"
	QuotaReasonHourly = "hourly_limit"
)

// QuotaExceededError is returned when an issuance cap is hit. It unwraps to
// ErrQuotaExceeded.
type QuotaExceededError struct {
	Reason            string
	Limit             int
	Used              int
	Remaining         int
	ResetTime         time.Time
	RetryAfterSeconds int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("[%s] %s: %d/%d used, retry after %ds",
		CodeQuotaExceeded, e.Reason, e.Used, e.Limit, e.RetryAfterSeconds)
}

func (e *QuotaExceededError) Unwrap() error { return ErrQuotaExceeded }

// RetryAfter returns the retry hint in seconds.
func (e *QuotaExceededError) RetryAfter() int { return e.RetryAfterSeconds }

// Details renders the wire detail object.
func (e *QuotaExceededError) Details() map[string]any {
	return map[string]any{
		"reason":              e.Reason,
		"limit":               e.Limit,
		"used":                e.Used,
		"remaining":           e.Remaining,
		"reset_time":          e.ResetTime.UTC().Format(time.RFC3339),
		"retry_after_seconds": e.RetryAfterSeconds,
	}
}

// ConcurrencyExceededError is returned when an owner already holds the
// maximum number of active tokens. It unwraps to ErrConcurrencyExceeded.
type ConcurrencyExceededError struct {
	MaxConcurrent int
	Active        int
}

func (e *ConcurrencyExceededError) Error() string {
	return fmt.Sprintf("[%s] %d active tokens, max %d",
		CodeConcurrencyExceeded, e.Active, e.MaxConcurrent)
}

func (e *ConcurrencyExceededError) Unwrap() error { return ErrConcurrencyExceeded }

// RetryAfter is zero; the hint depends on when another token is consumed.
func (e *ConcurrencyExceededError) RetryAfter() int { return 0 }

// Details renders the wire detail object.
func (e *ConcurrencyExceededError) Details() map[string]any {
	return map[string]any{
		"max_concurrent": e.MaxConcurrent,
		"max_tokens":     e.MaxConcurrent,
		"active":         e.Active,
	}
}
