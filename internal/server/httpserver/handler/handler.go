package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/yndnr/streamgate-go/internal/core/domain"
	"github.com/yndnr/streamgate-go/internal/core/service"
	"github.com/yndnr/streamgate-go/internal/storage"
	"github.com/yndnr/streamgate-go/internal/telemetry/logger"
	"github.com/yndnr/streamgate-go/internal/transfer"
)

// Config holds the handler dependencies.
type Config struct {
	Grants    *service.GrantService
	Validator *service.TokenValidator
	Engine    *transfer.Engine
	// Pinger backs /ready. Nil reports ready.
	Pinger storage.Pinger
	// TrustProxy takes the client IP from X-Forwarded-For.
	TrustProxy bool
	Logger     *slog.Logger
}

// Handler serves the StreamGate API.
type Handler struct {
	grants     *service.GrantService
	validator  *service.TokenValidator
	engine     *transfer.Engine
	pinger     storage.Pinger
	trustProxy bool
	logger     *slog.Logger
}

// New creates a Handler.
func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Handler{
		grants:     cfg.Grants,
		validator:  cfg.Validator,
		engine:     cfg.Engine,
		pinger:     cfg.Pinger,
		trustProxy: cfg.TrustProxy,
		logger:     cfg.Logger,
	}
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := logger.RequestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(NewResponse(requestID, data)); err != nil {
		h.logger.Error("failed to encode response", "request_id", requestID, "error", err)
	}
}

// WriteError writes an error envelope. Status and code are taken from err;
// internal faults are logged with their cause and returned opaque.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := logger.RequestIDFromContext(r.Context())
	code := domain.PublicCode(err)
	status := StatusFor(code)

	message := "internal server error"
	var details any
	var de *domain.DomainError
	if code != domain.CodeInternal && errors.As(err, &de) {
		if code == de.Code {
			message = de.Message
			if de.Details != "" {
				details = map[string]string{"reason": de.Details}
			}
		} else if code == domain.CodeTokenInvalid {
			// Collapsed codes must not reveal which check failed.
			message = domain.ErrTokenInvalid.Message
		}
	}

	var qe *domain.QuotaExceededError
	var ce *domain.ConcurrencyExceededError
	switch {
	case errors.As(err, &qe):
		details = qe.Details()
		w.Header().Set("Retry-After", strconv.Itoa(qe.RetryAfter()))
	case errors.As(err, &ce):
		details = ce.Details()
	}

	if status >= http.StatusInternalServerError {
		logger.L(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(NewErrorResponse(requestID, code, message, details))
}

// StatusFor maps a public error code to an HTTP status.
func StatusFor(code string) int {
	switch code {
	case domain.CodeValidation, domain.CodeTokenInvalidFormat:
		return http.StatusBadRequest
	case domain.CodeAuthRequired, domain.CodeAuthInvalid, domain.CodeTokenMissing:
		return http.StatusUnauthorized
	case domain.CodeTokenInvalid:
		return http.StatusForbidden
	case domain.CodeQuotaExceeded, domain.CodeConcurrencyExceeded, domain.CodeRateLimited:
		return http.StatusTooManyRequests
	case domain.CodeUpstreamTransfer:
		return http.StatusBadGateway
	case domain.CodeTransferCancelled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// ClientIP extracts the client IP from the request. Forwarding headers
// are honoured only when trustProxy is set.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	// Use net.SplitHostPort to correctly handle IPv6 addresses like [::1]:8080
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *Handler) clientInfo(r *http.Request) *domain.ClientInfo {
	return &domain.ClientInfo{
		IP:        ClientIP(r, h.trustProxy),
		UserAgent: r.UserAgent(),
	}
}
