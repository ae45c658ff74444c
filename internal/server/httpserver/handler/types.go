package handler

import (
	"time"

	"github.com/yndnr/streamgate-go/internal/core/domain"
	"github.com/yndnr/streamgate-go/internal/core/service"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// IssueTokenRequest is the request body for POST /v1/tokens.
type IssueTokenRequest struct {
	SourceURL  string `json:"source_url"`
	FormatID   string `json:"format_id"`
	Title      string `json:"title,omitempty"`
	TTLSeconds int64  `json:"ttl_seconds,omitempty"`
}

// IssueTokenResponse is the response body for POST /v1/tokens.
type IssueTokenResponse struct {
	Token          string    `json:"token"`
	TokenID        string    `json:"token_id"`
	ExpiresAt      time.Time `json:"expires_at"`
	ResourceHandle string    `json:"resource_handle"`
}

// TokenInfo is one token in GET /v1/tokens. It never carries the secret.
type TokenInfo struct {
	TokenID   string            `json:"token_id"`
	State     domain.TokenState `json:"state"`
	Resource  domain.Resource   `json:"resource"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
	UsedAt    *time.Time        `json:"used_at,omitempty"`
}

// ListTokensResponse is the response body for GET /v1/tokens.
type ListTokensResponse struct {
	Tokens []TokenInfo `json:"tokens"`
	Count  int         `json:"count"`
}

// QuotaResponse is the response body for GET /v1/quota.
type QuotaResponse = service.Usage

// HealthResponse is the response body for /health and /ready.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

func newTokenInfo(v service.TokenView) TokenInfo {
	t := v.Token
	info := TokenInfo{
		TokenID:   t.ID,
		State:     v.State,
		Resource:  t.Resource,
		CreatedAt: time.UnixMilli(t.CreatedAt).UTC(),
		ExpiresAt: time.UnixMilli(t.ExpiresAt).UTC(),
	}
	if t.Used {
		at := time.UnixMilli(t.UsedAt).UTC()
		info.UsedAt = &at
	}
	return info
}
