package clock

import (
	"testing"
	"time"
)

func TestFake(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f := NewFake(start)

	if !f.Now().Equal(start) {
		t.Fatalf("Now() = %v, want %v", f.Now(), start)
	}

	f.Advance(90 * time.Second)
	if got := f.Now().Sub(start); got != 90*time.Second {
		t.Errorf("after Advance, elapsed = %v, want 90s", got)
	}

	f.Set(start)
	if !f.Now().Equal(start) {
		t.Errorf("after Set, Now() = %v, want %v", f.Now(), start)
	}
}

func TestReal(t *testing.T) {
	before := time.Now()
	got := Real().Now()
	if got.Before(before) {
		t.Errorf("Real().Now() = %v, before %v", got, before)
	}
}
