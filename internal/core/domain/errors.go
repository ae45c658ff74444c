package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business error with a stable, machine-readable code.
type DomainError struct {
	Code    string // Error code (e.g., "TOKEN_INVALID")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches any DomainError carrying the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return code == "" || de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// PublicCode returns the code that may be shown to callers.
//
// Token rejection reasons collapse into TOKEN_INVALID so a caller cannot
// learn whether a secret existed, expired, or was bound elsewhere.
// Storage faults and non-domain errors collapse into INTERNAL_ERROR.
func PublicCode(err error) string {
	switch code := GetErrorCode(err); code {
	case "":
		return CodeInternal
	case CodeTokenExpired, CodeTokenBindingMismatch:
		return CodeTokenInvalid
	case CodeStorage, CodeTokenConflict:
		return CodeInternal
	default:
		return code
	}
}

// Error codes.
const (
	CodeValidation = "VALIDATION_ERROR"

	CodeAuthRequired = "AUTH_REQUIRED"
	CodeAuthInvalid  = "AUTH_INVALID"

	CodeQuotaExceeded       = "QUOTA_EXCEEDED"
	CodeConcurrencyExceeded = "CONCURRENCY_EXCEEDED"
	CodeRateLimited         = "RATE_LIMITED"

	CodeTokenMissing         = "TOKEN_MISSING"
	CodeTokenInvalidFormat   = "TOKEN_INVALID_FORMAT"
	CodeTokenInvalid         = "TOKEN_INVALID"
	CodeTokenExpired         = "TOKEN_EXPIRED"
	CodeTokenBindingMismatch = "TOKEN_BINDING_MISMATCH"
	CodeTokenConflict        = "TOKEN_CONFLICT"

	CodeUpstreamTransfer  = "UPSTREAM_TRANSFER_ERROR"
	CodeSinkWrite         = "SINK_WRITE_ERROR"
	CodeTransferCancelled = "TRANSFER_CANCELLED"

	CodeStorage  = "STORAGE_ERROR"
	CodeInternal = "INTERNAL_ERROR"
)

// Request errors.
var (
	// ErrValidation indicates a malformed request.
	ErrValidation = NewDomainError(CodeValidation, "validation failed")

	// ErrAuthRequired indicates no identity was presented.
	ErrAuthRequired = NewDomainError(CodeAuthRequired, "authentication required")

	// ErrAuthInvalid indicates the presented identity could not be verified.
	ErrAuthInvalid = NewDomainError(CodeAuthInvalid, "invalid identity")

	// ErrRateLimited indicates too many requests from one client.
	ErrRateLimited = NewDomainError(CodeRateLimited, "too many requests")
)

// Issuance denials. Callers usually receive these wrapped in
// *QuotaExceededError or *ConcurrencyExceededError.
var (
	ErrQuotaExceeded       = NewDomainError(CodeQuotaExceeded, "token quota exceeded")
	ErrConcurrencyExceeded = NewDomainError(CodeConcurrencyExceeded, "too many active tokens")
)

// Token errors.
var (
	// ErrTokenMissing indicates no secret was presented.
	ErrTokenMissing = NewDomainError(CodeTokenMissing, "stream token not provided")

	// ErrTokenInvalidFormat indicates the secret is not shaped like one we issue.
	ErrTokenInvalidFormat = NewDomainError(CodeTokenInvalidFormat, "malformed stream token")

	// ErrTokenInvalid covers not found, already consumed, and lost claim races.
	ErrTokenInvalid = NewDomainError(CodeTokenInvalid, "invalid stream token")

	// ErrTokenExpired indicates the claimed token was past its expiry.
	ErrTokenExpired = NewDomainError(CodeTokenExpired, "stream token expired")

	// ErrTokenBindingMismatch indicates the presenting client differs from the issuing one.
	ErrTokenBindingMismatch = NewDomainError(CodeTokenBindingMismatch, "stream token bound to another client")

	// ErrTokenConflict indicates a duplicate id or secret hash on create.
	ErrTokenConflict = NewDomainError(CodeTokenConflict, "stream token conflict")
)

// Transfer errors.
var (
	ErrUpstreamTransfer  = NewDomainError(CodeUpstreamTransfer, "upstream transfer failed")
	ErrSinkWrite         = NewDomainError(CodeSinkWrite, "write to client failed")
	ErrTransferCancelled = NewDomainError(CodeTransferCancelled, "transfer cancelled")
)

// System errors.
var (
	ErrStorage  = NewDomainError(CodeStorage, "storage error")
	ErrInternal = NewDomainError(CodeInternal, "internal error")
)
