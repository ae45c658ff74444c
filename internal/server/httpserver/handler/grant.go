package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/yndnr/streamgate-go/internal/core/domain"
	"github.com/yndnr/streamgate-go/internal/core/service"
	"github.com/yndnr/streamgate-go/internal/identity"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// maxListLimit caps GET /v1/tokens.
const maxListLimit = 500

// IssueToken handles POST /v1/tokens.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		WriteError(w, r, domain.ErrAuthRequired)
		return
	}

	var req IssueTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	if req.TTLSeconds < 0 {
		WriteError(w, r, domain.ErrValidation.WithDetails("ttl_seconds must not be negative"))
		return
	}

	res, err := h.grants.Issue(r.Context(), id, &service.GrantRequest{
		Resource: domain.Resource{
			SourceURL: req.SourceURL,
			FormatID:  req.FormatID,
			Title:     req.Title,
		},
		TTL:    time.Duration(req.TTLSeconds) * time.Second,
		Client: h.clientInfo(r),
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, &IssueTokenResponse{
		Token:          res.Secret,
		TokenID:        res.TokenID,
		ExpiresAt:      res.ExpiresAt.UTC(),
		ResourceHandle: res.TokenID,
	})
}

// ListTokens handles GET /v1/tokens?limit=N.
func (h *Handler) ListTokens(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		WriteError(w, r, domain.ErrAuthRequired)
		return
	}

	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			WriteError(w, r, domain.ErrValidation.WithDetails("limit must be a positive integer"))
			return
		}
		limit = min(n, maxListLimit)
	}

	views, err := h.grants.List(r.Context(), id, limit)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	out := &ListTokensResponse{Tokens: make([]TokenInfo, 0, len(views))}
	for _, v := range views {
		out.Tokens = append(out.Tokens, newTokenInfo(v))
	}
	out.Count = len(out.Tokens)
	h.writeJSON(w, r, http.StatusOK, out)
}

// Quota handles GET /v1/quota.
func (h *Handler) Quota(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		WriteError(w, r, domain.ErrAuthRequired)
		return
	}

	usage, err := h.grants.Usage(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, usage)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.ErrValidation.WithDetails(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}
