package service

import (
	"errors"
	"testing"
	"time"

	"github.com/yndnr/streamgate-go/internal/core/domain"
	"github.com/yndnr/streamgate-go/pkg/clock"
)

func seedIssued(t *testing.T, store *mockTokenStore, clk *clock.Fake, owner string, n int, spacing time.Duration) {
	t.Helper()
	issuer := NewTokenIssuer(store, DefaultIssuerConfig(), clk, nil)
	for i := 0; i < n; i++ {
		if _, err := issuer.Issue(t.Context(), &IssueRequest{OwnerID: owner, Resource: testResource}); err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		clk.Advance(spacing)
	}
}

func TestQuotaGuard_Hourly(t *testing.T) {
	store := newMockTokenStore()
	clk := clock.NewFake(testStart)
	guard := NewQuotaGuard(store, time.Hour, time.UTC, clk)
	policy := domain.TierPolicy{MaxPerHour: 3}

	seedIssued(t, store, clk, "u", 3, time.Minute)

	st, err := guard.Check(t.Context(), "u", policy)
	var qe *domain.QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("Check() error = %v, want quota denial", err)
	}
	if qe.Reason != domain.QuotaReasonHourly || qe.Used != 3 || qe.Limit != 3 || qe.Remaining != 0 {
		t.Errorf("denial = %+v", qe)
	}
	if qe.RetryAfterSeconds <= 0 || qe.RetryAfterSeconds != 3600 {
		t.Errorf("RetryAfterSeconds = %d, want 3600", qe.RetryAfterSeconds)
	}
	if st.HourlyRemaining != 0 {
		t.Errorf("HourlyRemaining = %d", st.HourlyRemaining)
	}

	// The oldest of the three leaves the window after an hour.
	clk.Set(testStart.Add(time.Hour + time.Second))
	st, err = guard.Check(t.Context(), "u", policy)
	if err != nil {
		t.Fatalf("Check() after window error = %v", err)
	}
	if st.HourlyUsed != 2 || st.HourlyRemaining != 1 {
		t.Errorf("status = %+v", st)
	}
}

func TestQuotaGuard_Daily(t *testing.T) {
	store := newMockTokenStore()
	clk := clock.NewFake(testStart)
	guard := NewQuotaGuard(store, time.Hour, time.UTC, clk)
	policy := domain.TierPolicy{MaxPerHour: 100, MaxPerDay: 4}

	seedIssued(t, store, clk, "u", 4, 2*time.Hour)

	_, err := guard.Check(t.Context(), "u", policy)
	var qe *domain.QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("Check() error = %v, want daily denial", err)
	}
	wantReset := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	if qe.Reason != domain.QuotaReasonDaily || !qe.ResetTime.Equal(wantReset) {
		t.Errorf("denial = %+v", qe)
	}
	if want := int(wantReset.Sub(clk.Now()).Seconds()); qe.RetryAfterSeconds != want {
		t.Errorf("RetryAfterSeconds = %d, want %d", qe.RetryAfterSeconds, want)
	}

	clk.Set(wantReset.Add(time.Second))
	if _, err := guard.Check(t.Context(), "u", policy); err != nil {
		t.Errorf("Check() after midnight error = %v", err)
	}
}

func TestQuotaGuard_DailyCheckedFirst(t *testing.T) {
	store := newMockTokenStore()
	clk := clock.NewFake(testStart)
	guard := NewQuotaGuard(store, time.Hour, time.UTC, clk)

	seedIssued(t, store, clk, "u", 2, time.Second)

	_, err := guard.Check(t.Context(), "u", domain.TierPolicy{MaxPerHour: 2, MaxPerDay: 2})
	var qe *domain.QuotaExceededError
	if !errors.As(err, &qe) || qe.Reason != domain.QuotaReasonDaily {
		t.Errorf("error = %v, want daily_limit", err)
	}
}

func TestQuotaGuard_Timezone(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	store := newMockTokenStore()
	// 14:00 UTC is 00:00 local the next day.
	clk := clock.NewFake(testStart.Add(-time.Minute))
	guard := NewQuotaGuard(store, time.Hour, loc, clk)

	seedIssued(t, store, clk, "u", 1, 2*time.Minute)

	st, err := guard.Usage(t.Context(), "u", domain.TierPolicy{MaxPerDay: 5})
	if err != nil {
		t.Fatalf("Usage() error = %v", err)
	}
	if st.DailyUsed != 0 {
		t.Errorf("DailyUsed = %d, want 0 after local midnight", st.DailyUsed)
	}
	if st.HourlyUsed != 1 {
		t.Errorf("HourlyUsed = %d, want 1", st.HourlyUsed)
	}
}

func TestQuotaGuard_ZeroMeansUnlimited(t *testing.T) {
	store := newMockTokenStore()
	clk := clock.NewFake(testStart)
	guard := NewQuotaGuard(store, time.Hour, time.UTC, clk)

	seedIssued(t, store, clk, "u", 50, 0)

	st, err := guard.Check(t.Context(), "u", domain.TierPolicy{})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if st.HourlyRemaining != -1 || st.DailyRemaining != -1 {
		t.Errorf("remaining = %d/%d, want -1", st.HourlyRemaining, st.DailyRemaining)
	}
}

func TestConcurrencyGuard(t *testing.T) {
	store := newMockTokenStore()
	clk := clock.NewFake(testStart)
	guard := NewConcurrencyGuard(store, clk)
	policy := domain.TierPolicy{MaxConcurrent: 2}

	issuer := NewTokenIssuer(store, DefaultIssuerConfig(), clk, nil)
	first, _ := issuer.Issue(t.Context(), &IssueRequest{OwnerID: "u", Resource: testResource, TTL: time.Minute})
	_, _ = issuer.Issue(t.Context(), &IssueRequest{OwnerID: "u", Resource: testResource, TTL: time.Hour})

	_, err := guard.Check(t.Context(), "u", policy)
	var ce *domain.ConcurrencyExceededError
	if !errors.As(err, &ce) || ce.Active != 2 || ce.MaxConcurrent != 2 {
		t.Fatalf("Check() error = %v, want concurrency denial", err)
	}

	t.Run("allowed after consume", func(t *testing.T) {
		v := NewTokenValidator(store, false, clk, nil, nil)
		if _, err := v.ValidateAndConsume(t.Context(), first.Secret, nil); err != nil {
			t.Fatalf("consume error = %v", err)
		}
		if n, err := guard.Check(t.Context(), "u", policy); err != nil || n != 1 {
			t.Errorf("Check() = %d, %v", n, err)
		}
	})

	t.Run("allowed after expiry", func(t *testing.T) {
		_, _ = issuer.Issue(t.Context(), &IssueRequest{OwnerID: "u", Resource: testResource, TTL: time.Minute})
		if _, err := guard.Check(t.Context(), "u", policy); err == nil {
			t.Fatal("expected denial with two active tokens")
		}
		clk.Advance(time.Minute)
		if n, err := guard.Check(t.Context(), "u", policy); err != nil || n != 1 {
			t.Errorf("Check() = %d, %v", n, err)
		}
	})
}
