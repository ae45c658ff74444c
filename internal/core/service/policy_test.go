package service

import (
	"testing"

	"github.com/yndnr/streamgate-go/internal/core/domain"
)

func TestPolicyTable(t *testing.T) {
	table, err := NewPolicyTable(domain.DefaultTierPolicies(), domain.TierFree)
	if err != nil {
		t.Fatalf("NewPolicyTable() error = %v", err)
	}

	if tier, p := table.Resolve(domain.TierPro); tier != domain.TierPro || p.MaxConcurrent != 5 {
		t.Errorf("Resolve(pro) = %s %+v", tier, p)
	}
	if tier, _ := table.Resolve(""); tier != domain.TierFree {
		t.Errorf("Resolve(\"\") tier = %s, want free", tier)
	}

	if _, err := NewPolicyTable(domain.DefaultTierPolicies(), "gold"); err == nil {
		t.Error("missing default tier should be rejected")
	}

	bad := map[domain.Tier]domain.TierPolicy{domain.TierFree: {MaxPerDay: -1}}
	if err := table.Replace(bad, domain.TierFree); err == nil {
		t.Error("negative cap should be rejected")
	}
	if _, p := table.Resolve(domain.TierFree); p.MaxPerDay != 10 {
		t.Error("failed Replace must keep the previous table")
	}

	snap := table.Snapshot()
	snap[domain.TierFree] = domain.TierPolicy{}
	if _, p := table.Resolve(domain.TierFree); p.MaxPerDay != 10 {
		t.Error("Snapshot() must return a copy")
	}
}
