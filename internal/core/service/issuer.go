package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/yndnr/streamgate-go/internal/core/domain"
	"github.com/yndnr/streamgate-go/pkg/clock"
)

// TTL defaults.
const (
	DefaultTokenTTL = 30 * time.Minute
	DefaultMinTTL   = 30 * time.Second
	DefaultMaxTTL   = 24 * time.Hour
)

// IssuerConfig bounds the lifetime of issued tokens.
type IssuerConfig struct {
	DefaultTTL time.Duration
	MinTTL     time.Duration
	MaxTTL     time.Duration
}

// DefaultIssuerConfig returns the built-in TTL bounds.
func DefaultIssuerConfig() IssuerConfig {
	return IssuerConfig{
		DefaultTTL: DefaultTokenTTL,
		MinTTL:     DefaultMinTTL,
		MaxTTL:     DefaultMaxTTL,
	}
}

// IssueRequest asks for a token for one resource.
type IssueRequest struct {
	OwnerID  string
	Resource domain.Resource
	TTL      time.Duration      // 0 means DefaultTTL
	Client   *domain.ClientInfo // optional; captured as the binding
}

// IssueResult carries the plaintext secret. It is the only place the
// secret exists after issuance.
type IssueResult struct {
	Secret    string
	TokenID   string
	ExpiresAt time.Time
	Token     *domain.StreamToken
}

// TokenIssuer creates tokens. It does not enforce quota; see GrantService.
type TokenIssuer struct {
	store  TokenStore
	cfg    IssuerConfig
	clock  clock.Clock
	logger *slog.Logger
}

// NewTokenIssuer creates a TokenIssuer. Zero config fields take defaults.
func NewTokenIssuer(store TokenStore, cfg IssuerConfig, clk clock.Clock, logger *slog.Logger) *TokenIssuer {
	def := DefaultIssuerConfig()
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = def.DefaultTTL
	}
	if cfg.MinTTL <= 0 {
		cfg.MinTTL = def.MinTTL
	}
	if cfg.MaxTTL <= 0 {
		cfg.MaxTTL = def.MaxTTL
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenIssuer{store: store, cfg: cfg, clock: clk, logger: logger}
}

// ClampTTL applies the default and the [MinTTL, MaxTTL] bounds.
func (i *TokenIssuer) ClampTTL(ttl time.Duration) time.Duration {
	switch {
	case ttl <= 0:
		ttl = i.cfg.DefaultTTL
	case ttl < i.cfg.MinTTL:
		ttl = i.cfg.MinTTL
	case ttl > i.cfg.MaxTTL:
		ttl = i.cfg.MaxTTL
	}
	return ttl
}

// Issue creates and stores a new unused token.
func (i *TokenIssuer) Issue(ctx context.Context, req *IssueRequest) (*IssueResult, error) {
	// 1. Validate input
	if req.OwnerID == "" {
		return nil, domain.ErrValidation.WithDetails("owner_id is required")
	}
	if err := req.Resource.Validate(); err != nil {
		return nil, err
	}

	// 2. Generate secret and id
	secret, hash, err := domain.GenerateSecret()
	if err != nil {
		return nil, err
	}
	id, err := domain.GenerateTokenID()
	if err != nil {
		return nil, err
	}

	// 3. Build the record
	now := i.clock.Now()
	expiresAt := now.Add(i.ClampTTL(req.TTL))
	tok := &domain.StreamToken{
		ID:         id,
		OwnerID:    req.OwnerID,
		SecretHash: hash,
		Resource:   req.Resource,
		CreatedAt:  now.UnixMilli(),
		ExpiresAt:  expiresAt.UnixMilli(),
		Binding:    domain.NewClientBinding(req.Client),
	}

	// 4. Persist; on failure the secret is dropped
	if err := i.store.Create(ctx, tok); err != nil {
		i.logger.Error("token create failed", "token_id", id, "owner_id", req.OwnerID, "error", err)
		return nil, domain.ErrInternal.WithCause(err)
	}

	i.logger.Debug("token issued", "token_id", id, "owner_id", req.OwnerID, "expires_at", tok.ExpiresAt)

	return &IssueResult{
		Secret:    secret,
		TokenID:   id,
		ExpiresAt: time.UnixMilli(tok.ExpiresAt),
		Token:     tok,
	}, nil
}
