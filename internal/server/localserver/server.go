package localserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// idleTimeout closes connections that send nothing.
const idleTimeout = 2 * time.Minute

// Server represents the local management server.
type Server struct {
	path     string
	handler  *Handler
	logger   *slog.Logger
	listener net.Listener
	running  atomic.Bool
	wg       sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// New creates a new local server.
func New(socketPath string, handler *Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		path:    socketPath,
		handler: handler,
		logger:  logger,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Listen creates the socket with mode 0600. A stale socket file from a
// previous run is removed first.
func (s *Server) Listen() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return err
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}
	s.listener = ln
	return nil
}

// Serve accepts connections until Shutdown. Listen must be called first.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("localserver: Listen not called")
	}
	s.running.Store(true)
	s.logger.Info("local management socket listening", "path", s.path)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		s.track(conn, true)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.track(conn, false)
			s.handleConnection(conn)
		}()
	}
}

// Shutdown stops accepting, closes open connections and waits for their
// goroutines, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var closeErr error
	if s.listener != nil {
		closeErr = s.listener.Close()
	}

	s.mu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return closeErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) track(c net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[c] = struct{}{}
	} else {
		delete(s.conns, c)
	}
}

// handleConnection answers one command per line. Errors are written as
// "error: ..." and keep the connection open.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	w := bufio.NewWriter(conn)
	for {
		conn.SetReadDeadline(time.Now().Add(idleTimeout))
		if !scanner.Scan() {
			return
		}
		cmd, args := parseLine(scanner.Text())
		switch cmd {
		case "":
			continue
		case "quit", "exit":
			return
		}

		if err := s.handler.Execute(context.Background(), w, cmd, args); err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
		}
		s.logger.Debug("local command", "command", cmd)
		if err := w.Flush(); err != nil {
			return
		}
	}
}
