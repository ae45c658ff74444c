package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/yndnr/streamgate-go/internal/core/domain"
	"github.com/yndnr/streamgate-go/pkg/clock"
)

// Engine defaults.
const (
	DefaultChunkSize        = 64 << 10 // 64KiB
	DefaultProgressInterval = 500 * time.Millisecond
	DefaultProgressBuffer   = 16
	DefaultContentType      = "application/octet-stream"
)

// Outcome is how a transfer ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

// Result is the final state of a task. Err is nil only for completed
// transfers; it carries TRANSFER_CANCELLED, UPSTREAM_TRANSFER_ERROR or
// SINK_WRITE_ERROR otherwise.
type Result struct {
	Outcome Outcome
	Bytes   int64
	Err     error
	Elapsed time.Duration
}

// Meta describes the stream before any byte is relayed.
type Meta struct {
	Size        int64 // -1 when unknown
	ContentType string
	Filename    string
}

// Metrics receives transfer events.
type Metrics interface {
	TransferStarted()
	TransferFinished(outcome string, bytes int64, elapsed time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) TransferStarted()                              {}
func (nopMetrics) TransferFinished(string, int64, time.Duration) {}

// Config tunes the relay loop.
type Config struct {
	ChunkSize        int
	ProgressInterval time.Duration
	ProgressBuffer   int
}

// Engine opens tasks against a Source.
type Engine struct {
	source  Source
	cfg     Config
	clock   clock.Clock
	metrics Metrics
	logger  *slog.Logger
}

// NewEngine creates an Engine. metrics and logger may be nil.
func NewEngine(source Source, cfg Config, clk clock.Clock, metrics Metrics, logger *slog.Logger) *Engine {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = DefaultProgressInterval
	}
	if cfg.ProgressBuffer <= 0 {
		cfg.ProgressBuffer = DefaultProgressBuffer
	}
	if clk == nil {
		clk = clock.Real()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{source: source, cfg: cfg, clock: clk, metrics: metrics, logger: logger}
}

// Open opens the claimed resource. The returned task holds the upstream
// body until it is run to completion or cancelled.
func (e *Engine) Open(ctx context.Context, claim *domain.Claim) (*Task, error) {
	ctx, cancel := context.WithCancel(ctx)

	stream, err := e.source.Open(ctx, claim.Resource)
	if err != nil {
		cancel()
		if domain.IsDomainError(err, "") {
			return nil, err
		}
		return nil, domain.ErrUpstreamTransfer.WithCause(err)
	}

	size := stream.Size
	if size < 0 {
		size = -1
	}
	contentType := stream.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}

	t := &Task{
		engine: e,
		claim:  claim,
		ctx:    ctx,
		cancel: cancel,
		body:   &onceCloser{rc: stream.Body},
		meta: Meta{
			Size:        size,
			ContentType: contentType,
			Filename:    Filename(claim.Resource.Title, contentType),
		},
		progress: make(chan Progress, e.cfg.ProgressBuffer),
		done:     make(chan struct{}),
	}
	// Closing the body is what unblocks a read stuck on the network.
	t.stopClose = context.AfterFunc(ctx, func() { t.body.Close() })
	return t, nil
}

// Transfer opens the claim, relays it into sink and waits.
func (e *Engine) Transfer(ctx context.Context, claim *domain.Claim, sink io.Writer) (Result, error) {
	t, err := e.Open(ctx, claim)
	if err != nil {
		return Result{Outcome: OutcomeFailed, Err: err}, err
	}
	t.Run(sink)
	res := t.Wait()
	return res, res.Err
}

// Task is one running transfer.
type Task struct {
	engine    *Engine
	claim     *domain.Claim
	ctx       context.Context
	cancel    context.CancelFunc
	stopClose func() bool
	body      *onceCloser
	meta      Meta

	progress chan Progress
	done     chan struct{}
	result   Result
	runOnce  sync.Once
}

// Meta returns the stream description.
func (t *Task) Meta() Meta { return t.meta }

// Progress returns the progress channel. It is closed when the task ends.
// Slow readers miss intermediate events, never the final one unless they
// stop reading altogether.
func (t *Task) Progress() <-chan Progress { return t.progress }

// Done is closed when the task has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Cancel stops the transfer. It is safe to call at any time.
func (t *Task) Cancel() { t.cancel() }

// Wait blocks until the task finishes. Run must have been called.
func (t *Task) Wait() Result {
	<-t.done
	return t.result
}

// Run starts relaying into sink in a new goroutine. Only the first call
// has an effect.
func (t *Task) Run(sink io.Writer) {
	t.runOnce.Do(func() {
		t.engine.metrics.TransferStarted()
		go t.relay(sink)
	})
}

func (t *Task) relay(sink io.Writer) {
	e := t.engine
	start := e.clock.Now()
	meter := NewMeter(t.meta.Size, start)
	buf := make([]byte, e.cfg.ChunkSize)
	lastEmit := start

	res := func() Result {
		for {
			if t.ctx.Err() != nil {
				return t.cancelled()
			}

			n, rerr := t.body.Read(buf)
			if n > 0 {
				if t.ctx.Err() != nil {
					return t.cancelled()
				}
				w, werr := sink.Write(buf[:n])
				meter.Add(int64(w))
				if werr == nil && w < n {
					werr = io.ErrShortWrite
				}
				if werr != nil {
					return Result{Outcome: OutcomeFailed, Err: domain.ErrSinkWrite.WithCause(werr)}
				}
				if now := e.clock.Now(); now.Sub(lastEmit) >= e.cfg.ProgressInterval {
					t.emit(meter.Snapshot(now))
					lastEmit = now
				}
			}

			switch {
			case rerr == nil:
				continue
			case t.ctx.Err() != nil:
				// A closed body may report EOF; cancellation wins.
				return t.cancelled()
			case errors.Is(rerr, io.EOF):
				if got := meter.Loaded(); t.meta.Size >= 0 && got < t.meta.Size {
					return Result{Outcome: OutcomeFailed, Err: domain.ErrUpstreamTransfer.WithDetails(
						fmt.Sprintf("premature end of stream at %d of %d bytes", got, t.meta.Size))}
				}
				return Result{Outcome: OutcomeCompleted}
			default:
				return Result{Outcome: OutcomeFailed, Err: domain.ErrUpstreamTransfer.WithCause(rerr)}
			}
		}
	}()

	now := e.clock.Now()
	t.emit(meter.Snapshot(now))
	close(t.progress)

	t.stopClose()
	t.body.Close()
	t.cancel()

	res.Bytes = meter.Loaded()
	res.Elapsed = now.Sub(start)
	t.result = res
	e.metrics.TransferFinished(string(res.Outcome), res.Bytes, res.Elapsed)

	level := slog.LevelInfo
	if res.Outcome == OutcomeFailed {
		level = slog.LevelWarn
	}
	e.logger.Log(context.Background(), level, "transfer finished",
		"token_id", t.claim.TokenID,
		"owner_id", t.claim.OwnerID,
		"outcome", res.Outcome,
		"bytes", res.Bytes,
		"elapsed", res.Elapsed,
		"error", res.Err)

	close(t.done)
}

func (t *Task) cancelled() Result {
	return Result{Outcome: OutcomeCancelled, Err: domain.ErrTransferCancelled.WithCause(context.Cause(t.ctx))}
}

// emit publishes p without blocking, dropping the oldest queued event
// when the buffer is full. Only the relay goroutine sends.
func (t *Task) emit(p Progress) {
	for {
		select {
		case t.progress <- p:
			return
		default:
		}
		select {
		case <-t.progress:
		default:
		}
	}
}

// onceCloser makes Close idempotent and safe from two goroutines.
type onceCloser struct {
	rc   io.ReadCloser
	once sync.Once
	err  error
}

func (c *onceCloser) Read(p []byte) (int, error) { return c.rc.Read(p) }

func (c *onceCloser) Close() error {
	c.once.Do(func() { c.err = c.rc.Close() })
	return c.err
}

// Filename derives a download filename from a title, adding an extension
// for the content type when the title has none. It returns "" for an
// empty title.
func Filename(title, contentType string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == '"' || r == ':' || r == '*' || r == '?' || r == '<' || r == '>' || r == '|':
			return '_'
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, strings.TrimSpace(title))
	if name == "" {
		return ""
	}
	if !strings.Contains(name, ".") {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			if exts, _ := mime.ExtensionsByType(mt); len(exts) > 0 {
				name += exts[0]
			}
		}
	}
	return name
}
