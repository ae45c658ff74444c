package transfer

import (
	"testing"
	"time"
)

func TestMeter_Snapshot(t *testing.T) {
	start := time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)

	t.Run("known total", func(t *testing.T) {
		m := NewMeter(1000, start)
		m.Add(250)
		p := m.Snapshot(start.Add(time.Second))

		if p.Loaded != 250 || p.Total != 1000 || p.Percentage != 25 {
			t.Errorf("progress = %+v", p)
		}
		if p.Speed != 250 {
			t.Errorf("Speed = %v, want 250 B/s", p.Speed)
		}
		if p.TimeRemaining != 3*time.Second {
			t.Errorf("TimeRemaining = %v, want 3s", p.TimeRemaining)
		}
		if p.Elapsed != time.Second {
			t.Errorf("Elapsed = %v", p.Elapsed)
		}
	})

	t.Run("unknown total", func(t *testing.T) {
		m := NewMeter(-5, start)
		m.Add(100)
		p := m.Snapshot(start.Add(2 * time.Second))
		if p.Total != -1 || p.Percentage != 0 || p.TimeRemaining != -1 || p.Speed != 50 {
			t.Errorf("progress = %+v", p)
		}
	})

	t.Run("no elapsed time", func(t *testing.T) {
		m := NewMeter(100, start)
		m.Add(10)
		p := m.Snapshot(start)
		if p.Speed != 0 || p.TimeRemaining != -1 {
			t.Errorf("progress = %+v", p)
		}
	})

	t.Run("done", func(t *testing.T) {
		m := NewMeter(100, start)
		m.Add(120)
		p := m.Snapshot(start.Add(time.Second))
		if p.Percentage != 100 || p.TimeRemaining != 0 {
			t.Errorf("progress = %+v", p)
		}
	})

	t.Run("empty", func(t *testing.T) {
		p := NewMeter(0, start).Snapshot(start)
		if p.Percentage != 100 || p.TimeRemaining != 0 {
			t.Errorf("progress = %+v", p)
		}
	})
}

func TestFilename(t *testing.T) {
	tests := []struct {
		title, contentType, want string
	}{
		{"", "video/mp4", ""},
		{"clip.mp4", "video/mp4", "clip.mp4"},
		{"a/b:c", "", "a_b_c"},
		{"report", "application/pdf", "report.pdf"},
		{"  spaced.txt  ", "", "spaced.txt"},
		{"bell\x07", "", "bell"},
	}
	for _, tt := range tests {
		if got := Filename(tt.title, tt.contentType); got != tt.want {
			t.Errorf("Filename(%q, %q) = %q, want %q", tt.title, tt.contentType, got, tt.want)
		}
	}
}
