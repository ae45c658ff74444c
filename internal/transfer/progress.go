package transfer

import (
	"sync"
	"time"
)

// Progress is a point-in-time view of a transfer.
type Progress struct {
	Loaded     int64   `json:"loaded"`
	Total      int64   `json:"total"` // -1 when unknown
	Percentage float64 `json:"percentage"`

	// Speed is the average rate since start, in bytes per second.
	Speed float64 `json:"speed"`

	// TimeRemaining is -1 when it cannot be estimated.
	TimeRemaining time.Duration `json:"time_remaining"`
	Elapsed       time.Duration `json:"elapsed"`
}

// Meter accumulates byte counts and derives Progress from them. It is
// safe for concurrent use.
type Meter struct {
	mu     sync.Mutex
	total  int64
	loaded int64
	start  time.Time
}

// NewMeter starts a meter at start. total is -1 when unknown.
func NewMeter(total int64, start time.Time) *Meter {
	if total < 0 {
		total = -1
	}
	return &Meter{total: total, start: start}
}

// Add records n more bytes.
func (m *Meter) Add(n int64) {
	m.mu.Lock()
	m.loaded += n
	m.mu.Unlock()
}

// Loaded returns the byte count so far.
func (m *Meter) Loaded() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// Snapshot computes Progress as of now.
func (m *Meter) Snapshot(now time.Time) Progress {
	m.mu.Lock()
	loaded, total := m.loaded, m.total
	m.mu.Unlock()

	elapsed := now.Sub(m.start)
	p := Progress{
		Loaded:        loaded,
		Total:         total,
		Elapsed:       elapsed,
		TimeRemaining: -1,
	}

	if secs := elapsed.Seconds(); secs > 0 {
		p.Speed = float64(loaded) / secs
	}
	if total > 0 {
		p.Percentage = min(100, float64(loaded)/float64(total)*100)
		switch left := total - loaded; {
		case left <= 0:
			p.TimeRemaining = 0
		case p.Speed > 0:
			p.TimeRemaining = time.Duration(float64(left) / p.Speed * float64(time.Second))
		}
	} else if total == 0 {
		p.Percentage = 100
		p.TimeRemaining = 0
	}
	return p
}
