package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/yndnr/streamgate-go/internal/core/domain"
	"github.com/yndnr/streamgate-go/pkg/clock"
)

// TokenValidator turns a presented secret into a Claim, consuming the
// token in the process.
type TokenValidator struct {
	store         TokenStore
	strictBinding bool
	clock         clock.Clock
	metrics       Metrics
	logger        *slog.Logger
}

// NewTokenValidator creates a TokenValidator. With strictBinding set, a
// token issued with a client binding only validates for that client.
func NewTokenValidator(store TokenStore, strictBinding bool, clk clock.Clock, metrics Metrics, logger *slog.Logger) *TokenValidator {
	if clk == nil {
		clk = clock.Real()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenValidator{
		store:         store,
		strictBinding: strictBinding,
		clock:         clk,
		metrics:       metrics,
		logger:        logger,
	}
}

// ValidateAndConsume checks the secret and atomically consumes the token.
//
// Once the claim succeeds the token stays consumed, even when the expiry
// or binding check that follows rejects it.
func (v *TokenValidator) ValidateAndConsume(ctx context.Context, secret string, client *domain.ClientInfo) (*domain.Claim, error) {
	claim, err := v.validate(ctx, secret, client)
	if err != nil {
		v.metrics.ValidationFailed(domain.GetErrorCode(err))
		return nil, err
	}
	v.metrics.TokenClaimed()
	return claim, nil
}

func (v *TokenValidator) validate(ctx context.Context, secret string, client *domain.ClientInfo) (*domain.Claim, error) {
	// 1. Format, without touching the store
	if secret == "" {
		return nil, domain.ErrTokenMissing
	}
	if !domain.ValidateSecretFormat(secret) {
		return nil, domain.ErrTokenInvalidFormat
	}

	// 2. Atomic claim
	now := v.clock.Now()
	tok, err := v.store.Claim(ctx, domain.HashSecret(secret), now)
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) {
			return nil, domain.ErrTokenInvalid
		}
		v.logger.Error("token claim failed", "error", err)
		return nil, domain.ErrInternal.WithCause(err)
	}

	// 3. Expiry
	if tok.IsExpired(now) {
		v.logger.Info("expired token presented", "token_id", tok.ID, "owner_id", tok.OwnerID)
		return nil, domain.ErrTokenExpired
	}

	// 4. Binding
	if v.strictBinding && tok.Binding != nil && !tok.Binding.Matches(client) {
		v.logger.Warn("token binding mismatch", "token_id", tok.ID, "owner_id", tok.OwnerID)
		return nil, domain.ErrTokenBindingMismatch
	}

	return domain.NewClaim(tok, now), nil
}
