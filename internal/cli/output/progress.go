package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/yndnr/streamgate-go/internal/transfer"
)

// ProgressBar displays a progress bar for file transfers.
type ProgressBar struct {
	w     io.Writer
	title string
	width int
	mu    sync.Mutex
	last  int
}

// NewProgressBar creates a new progress bar.
func NewProgressBar(w io.Writer, title string) *ProgressBar {
	return &ProgressBar{
		w:     w,
		title: title,
		width: 30,
	}
}

// Update redraws the bar from a progress snapshot.
func (p *ProgressBar) Update(s transfer.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	line := RenderProgress(p.title, s, p.width)
	pad := ""
	if n := p.last - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	p.last = len(line)
	fmt.Fprintf(p.w, "\r%s%s", line, pad)
}

// Finish draws the final snapshot and ends the line.
func (p *ProgressBar) Finish(s transfer.Progress) {
	p.Update(s)
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w)
}

// RenderProgress formats one progress line. width is the bar width in
// cells; unknown totals render without a bar.
func RenderProgress(title string, s transfer.Progress, width int) string {
	var b strings.Builder
	b.WriteString(title)

	if s.Total > 0 {
		filled := int(float64(width) * s.Percentage / 100)
		if filled > width {
			filled = width
		}
		fmt.Fprintf(&b, " [%s%s] %5.1f%% %s/%s",
			strings.Repeat("=", filled),
			strings.Repeat(" ", width-filled),
			s.Percentage,
			humanize.IBytes(uint64(s.Loaded)),
			humanize.IBytes(uint64(s.Total)),
		)
	} else {
		fmt.Fprintf(&b, " %s", humanize.IBytes(uint64(s.Loaded)))
	}

	fmt.Fprintf(&b, " %s/s", humanize.IBytes(uint64(s.Speed)))
	if s.TimeRemaining > 0 {
		fmt.Fprintf(&b, " eta %s", s.TimeRemaining.Round(time.Second))
	}
	return b.String()
}
