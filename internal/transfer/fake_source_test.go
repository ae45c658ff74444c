package transfer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/streamgate-go/internal/core/domain"
)

// gatedBody serves data, blocking before offset gate until release is
// closed or the body is closed.
type gatedBody struct {
	data    []byte
	pos     int
	gate    int
	release chan struct{}
	closed  chan struct{}
	once    sync.Once
	reads   atomic.Int64
}

func newGatedBody(data []byte, gate int) *gatedBody {
	return &gatedBody{
		data:    data,
		gate:    gate,
		release: make(chan struct{}),
		closed:  make(chan struct{}),
	}
}

func (b *gatedBody) Read(p []byte) (int, error) {
	b.reads.Add(1)
	select {
	case <-b.closed:
		return 0, errors.New("read on closed body")
	default:
	}
	if b.pos >= len(b.data) {
		return 0, io.EOF
	}
	if b.pos >= b.gate {
		select {
		case <-b.release:
		case <-b.closed:
			return 0, errors.New("read on closed body")
		}
	}
	end := min(len(b.data), b.pos+len(p))
	if b.pos < b.gate {
		end = min(end, b.gate)
	}
	n := copy(p, b.data[b.pos:end])
	b.pos += n
	return n, nil
}

func (b *gatedBody) Close() error {
	b.once.Do(func() { close(b.closed) })
	return nil
}

func (b *gatedBody) isClosed() bool {
	select {
	case <-b.closed:
		return true
	default:
		return false
	}
}

// eofOnCloseBody serves one byte, then blocks until closed and reports a
// clean io.EOF, like an HTTP body torn down mid-stream.
type eofOnCloseBody struct {
	sent   bool
	closed chan struct{}
	once   sync.Once
}

func newEOFOnCloseBody() *eofOnCloseBody {
	return &eofOnCloseBody{closed: make(chan struct{})}
}

func (b *eofOnCloseBody) Read(p []byte) (int, error) {
	if !b.sent && len(p) > 0 {
		b.sent = true
		p[0] = 'x'
		return 1, nil
	}
	<-b.closed
	return 0, io.EOF
}

func (b *eofOnCloseBody) Close() error {
	b.once.Do(func() { close(b.closed) })
	return nil
}

// fakeSource returns a prepared stream.
type fakeSource struct {
	body        io.ReadCloser
	size        int64
	contentType string
	err         error
	opened      atomic.Int32
}

func (s *fakeSource) Open(ctx context.Context, res domain.Resource) (*Stream, error) {
	s.opened.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &Stream{Body: s.body, Size: s.size, ContentType: s.contentType}, nil
}

func bytesSource(data []byte, size int64) *fakeSource {
	return &fakeSource{body: io.NopCloser(bytes.NewReader(data)), size: size, contentType: "video/mp4"}
}

// countingSink records writes.
type countingSink struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	writes int
	failAt int // fail on this write number when > 0
}

func (s *countingSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.failAt > 0 && s.writes >= s.failAt {
		return 0, errors.New("client went away")
	}
	return s.buf.Write(p)
}

func (s *countingSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len()
}

// metricsRecorder counts transfer events.
type metricsRecorder struct {
	mu       sync.Mutex
	started  int
	outcomes map[string]int
	bytes    int64
}

func (m *metricsRecorder) TransferStarted() {
	m.mu.Lock()
	m.started++
	m.mu.Unlock()
}

func (m *metricsRecorder) TransferFinished(outcome string, n int64, _ time.Duration) {
	m.mu.Lock()
	if m.outcomes == nil {
		m.outcomes = make(map[string]int)
	}
	m.outcomes[outcome]++
	m.bytes += n
	m.mu.Unlock()
}
