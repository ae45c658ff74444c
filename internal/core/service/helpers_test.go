package service

import (
	"testing"
	"time"

	"github.com/yndnr/streamgate-go/internal/core/domain"
	"github.com/yndnr/streamgate-go/pkg/clock"
)

var testResource = domain.Resource{
	SourceURL: "https://cdn.example.com/v/abc.mp4",
	FormatID:  "720p",
	Title:     "Clip",
}

// testStart is a Tuesday afternoon in UTC, far from midnight.
var testStart = time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)

type harness struct {
	store     *mockTokenStore
	clock     *clock.Fake
	metrics   *recordingMetrics
	issuer    *TokenIssuer
	validator *TokenValidator
	grants    *GrantService
	denials   *DenialCache
}

func newHarness(t *testing.T, tiers map[domain.Tier]domain.TierPolicy) *harness {
	t.Helper()
	h := &harness{
		store:   newMockTokenStore(),
		clock:   clock.NewFake(testStart),
		metrics: newRecordingMetrics(),
	}
	policies, err := NewPolicyTable(tiers, domain.TierFree)
	if err != nil {
		t.Fatalf("NewPolicyTable() error = %v", err)
	}
	h.issuer = NewTokenIssuer(h.store, DefaultIssuerConfig(), h.clock, nil)
	h.validator = NewTokenValidator(h.store, true, h.clock, h.metrics, nil)
	h.denials = NewDenialCache(DefaultDenyCacheTTL, h.clock)
	h.grants = NewGrantService(GrantServiceConfig{
		Store:       h.store,
		Issuer:      h.issuer,
		Quota:       NewQuotaGuard(h.store, time.Hour, time.UTC, h.clock),
		Concurrency: NewConcurrencyGuard(h.store, h.clock),
		Denials:     h.denials,
		Policies:    policies,
		Clock:       h.clock,
		Metrics:     h.metrics,
	})
	return h
}

func (h *harness) issue(t *testing.T, id domain.Identity) (*IssueResult, error) {
	t.Helper()
	return h.grants.Issue(t.Context(), id, &GrantRequest{Resource: testResource})
}
