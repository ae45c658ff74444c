package memory

import "testing"

func TestOwnerIndex(t *testing.T) {
	idx := NewOwnerIndex()
	idx.Add("u1", "h1")
	idx.Add("u1", "h2")
	idx.Add("u2", "h3")

	if idx.Count("u1") != 2 || idx.Count("u2") != 1 || idx.Count("u3") != 0 {
		t.Errorf("counts = %d/%d/%d", idx.Count("u1"), idx.Count("u2"), idx.Count("u3"))
	}

	idx.Remove("u1", "h1")
	if got := idx.Get("u1"); len(got) != 1 || got[0] != "h2" {
		t.Errorf("Get(u1) = %v", got)
	}

	idx.Remove("u2", "h3")
	if idx.Owners() != 1 {
		t.Errorf("Owners() = %d, want empty owner dropped", idx.Owners())
	}

	idx.Remove("nobody", "h")
}
