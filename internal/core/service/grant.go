package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/yndnr/streamgate-go/internal/core/domain"
	"github.com/yndnr/streamgate-go/pkg/clock"
)

// GrantService is the issuance entry point: it resolves the caller's tier
// and runs the guards before delegating to the TokenIssuer.
//
// The guards read counts and then decide without a lock spanning the
// subsequent Create, so two simultaneous requests at the cap boundary may
// both be admitted.
type GrantService struct {
	store       TokenStore
	issuer      *TokenIssuer
	quota       *QuotaGuard
	concurrency *ConcurrencyGuard
	denials     *DenialCache
	policies    *PolicyTable
	clock       clock.Clock
	metrics     Metrics
	logger      *slog.Logger
}

// GrantServiceConfig wires the GrantService collaborators.
type GrantServiceConfig struct {
	Store       TokenStore
	Issuer      *TokenIssuer
	Quota       *QuotaGuard
	Concurrency *ConcurrencyGuard
	Denials     *DenialCache // optional
	Policies    *PolicyTable
	Clock       clock.Clock
	Metrics     Metrics
	Logger      *slog.Logger
}

// NewGrantService creates a GrantService.
func NewGrantService(cfg GrantServiceConfig) *GrantService {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NopMetrics{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &GrantService{
		store:       cfg.Store,
		issuer:      cfg.Issuer,
		quota:       cfg.Quota,
		concurrency: cfg.Concurrency,
		denials:     cfg.Denials,
		policies:    cfg.Policies,
		clock:       cfg.Clock,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
	}
}

// Policies exposes the live policy table for hot reload.
func (s *GrantService) Policies() *PolicyTable { return s.policies }

// ============================================================================
// Issue
// ============================================================================

// GrantRequest is an issuance request from an authenticated caller.
type GrantRequest struct {
	Resource domain.Resource
	TTL      time.Duration
	Client   *domain.ClientInfo
}

// Issue checks quota and concurrency for the caller and issues a token.
//
// Denials are returned as *domain.QuotaExceededError or
// *domain.ConcurrencyExceededError.
func (s *GrantService) Issue(ctx context.Context, id domain.Identity, req *GrantRequest) (*IssueResult, error) {
	// 1. Identity
	if err := id.Validate(); err != nil {
		return nil, err
	}
	tier, policy := s.policies.Resolve(id.Tier)

	// 2. Replay a recent quota denial without touching the store
	if s.denials != nil {
		if d := s.denials.Lookup(id.UserID); d != nil {
			s.metrics.IssuanceDenied(d.Reason)
			return nil, d
		}
	}

	// 3. Quota
	if _, err := s.quota.Check(ctx, id.UserID, policy); err != nil {
		var qe *domain.QuotaExceededError
		if errors.As(err, &qe) {
			if s.denials != nil {
				s.denials.Record(id.UserID, qe)
			}
			s.metrics.IssuanceDenied(qe.Reason)
			s.logger.Info("issuance denied",
				"owner_id", id.UserID, "tier", tier, "reason", qe.Reason,
				"used", qe.Used, "limit", qe.Limit, "retry_after", qe.RetryAfterSeconds)
		}
		return nil, err
	}

	// 4. Concurrency
	if _, err := s.concurrency.Check(ctx, id.UserID, policy); err != nil {
		var ce *domain.ConcurrencyExceededError
		if errors.As(err, &ce) {
			s.metrics.IssuanceDenied("concurrency")
			s.logger.Info("issuance denied",
				"owner_id", id.UserID, "tier", tier, "reason", "concurrency",
				"active", ce.Active, "limit", ce.MaxConcurrent)
		}
		return nil, err
	}

	// 5. Issue
	res, err := s.issuer.Issue(ctx, &IssueRequest{
		OwnerID:  id.UserID,
		Resource: req.Resource,
		TTL:      req.TTL,
		Client:   req.Client,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.TokenIssued(string(tier))
	return res, nil
}

// ============================================================================
// Queries
// ============================================================================

// Usage is a caller's current standing against their tier policy.
type Usage struct {
	Tier   domain.Tier       `json:"tier"`
	Policy domain.TierPolicy `json:"policy"`
	Quota  *QuotaStatus      `json:"quota"`
	Active int               `json:"active"`
}

// Usage reports the caller's counts without deciding anything.
func (s *GrantService) Usage(ctx context.Context, id domain.Identity) (*Usage, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	tier, policy := s.policies.Resolve(id.Tier)

	st, err := s.quota.Usage(ctx, id.UserID, policy)
	if err != nil {
		return nil, err
	}
	active, err := s.concurrency.Active(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	return &Usage{Tier: tier, Policy: policy, Quota: st, Active: active}, nil
}

// TokenView is a token as shown to its owner.
type TokenView struct {
	Token *domain.StreamToken
	State domain.TokenState
}

// List returns the caller's tokens with their derived state, newest first.
func (s *GrantService) List(ctx context.Context, id domain.Identity, limit int) ([]TokenView, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	toks, err := s.store.ListByOwner(ctx, id.UserID, limit)
	if err != nil {
		return nil, domain.ErrInternal.WithCause(err)
	}
	now := s.clock.Now()
	views := make([]TokenView, 0, len(toks))
	for _, t := range toks {
		views = append(views, TokenView{Token: t, State: t.State(now)})
	}
	return views, nil
}
