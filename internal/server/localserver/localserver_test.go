package localserver

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/streamgate-go/internal/core/domain"
	"github.com/yndnr/streamgate-go/internal/telemetry/logger"
)

func startServer(t *testing.T, hooks Hooks) string {
	t.Helper()
	// Unix socket paths are length-limited; TempDir can be long.
	dir, err := os.MkdirTemp("", "sg")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "admin.sock")

	srv := New(path, NewHandler(hooks), slog.New(slog.DiscardHandler))
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	go srv.Serve()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return path
}

// send writes one command and reads until the reply has want lines.
func send(t *testing.T, conn net.Conn, r *bufio.Reader, cmd string, lines int) string {
	t.Helper()
	if _, err := io.WriteString(conn, cmd+"\n"); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var b strings.Builder
	for range lines {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read reply to %q: %v", cmd, err)
		}
		b.WriteString(line)
	}
	return b.String()
}

func TestServer_Commands(t *testing.T) {
	var reloads, shutdowns atomic.Int32
	path := startServer(t, Hooks{
		Ping: func(context.Context) error { return errors.New("disk gone") },
		Policies: func() map[domain.Tier]domain.TierPolicy {
			return map[domain.Tier]domain.TierPolicy{
				"pro":  {MaxPerHour: 20, MaxPerDay: 100, MaxConcurrent: 5},
				"free": {MaxPerHour: 20, MaxPerDay: 10, MaxConcurrent: 2},
			}
		},
		Reload:   func() error { reloads.Add(1); return nil },
		Shutdown: func() { shutdowns.Add(1) },
	})
	t.Cleanup(func() { logger.SetLevel("info") })

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("socket mode = %v, want 0600", info.Mode().Perm())
	}

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	r := bufio.NewReader(conn)

	if got := send(t, conn, r, "status", 4); !strings.Contains(got, "storage: unavailable: disk gone") {
		t.Errorf("status = %q", got)
	}
	got := send(t, conn, r, "policies", 2)
	if !strings.HasPrefix(got, "free: hour=20 day=10 concurrent=2\npro:") {
		t.Errorf("policies = %q", got)
	}
	if got := send(t, conn, r, "LEVEL debug", 1); got != "log_level: debug\n" {
		t.Errorf("level = %q", got)
	}
	if got := send(t, conn, r, "level loud", 1); !strings.HasPrefix(got, "error:") {
		t.Errorf("bad level = %q", got)
	}
	if got := send(t, conn, r, "reload", 1); got != "reloaded\n" || reloads.Load() != 1 {
		t.Errorf("reload = %q, calls = %d", got, reloads.Load())
	}
	if got := send(t, conn, r, "bogus", 1); got != "error: unknown command: bogus\n" {
		t.Errorf("bogus = %q", got)
	}
	if got := send(t, conn, r, "shutdown", 1); got != "shutting down\n" || shutdowns.Load() != 1 {
		t.Errorf("shutdown = %q, calls = %d", got, shutdowns.Load())
	}
}

func TestServer_UnavailableHooks(t *testing.T) {
	path := startServer(t, Hooks{})
	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	r := bufio.NewReader(conn)

	for _, cmd := range []string{"policies", "reload", "shutdown"} {
		if got := send(t, conn, r, cmd, 1); !strings.Contains(got, "not available") {
			t.Errorf("%s = %q", cmd, got)
		}
	}
	if got := send(t, conn, r, "status", 4); !strings.Contains(got, "storage: ok") {
		t.Errorf("status = %q", got)
	}
}

func TestServer_ShutdownClosesConnections(t *testing.T) {
	dir, _ := os.MkdirTemp("", "sg")
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "admin.sock")

	// A stale file must not block Listen.
	os.WriteFile(path, nil, 0o600)

	srv := New(path, NewHandler(Hooks{}), slog.New(slog.DiscardHandler))
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	served := make(chan error, 1)
	go func() { served <- srv.Serve() }()

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	// Make sure the connection is being handled before shutting down.
	send(t, conn, bufio.NewReader(conn), "level", 1)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := <-served; err != nil {
		t.Errorf("Serve() = %v, want nil", err)
	}
}

func TestParseLine(t *testing.T) {
	cmd, args := parseLine("  Level   DEBUG ")
	if cmd != "level" || len(args) != 1 || args[0] != "DEBUG" {
		t.Errorf("parseLine() = %q %q", cmd, args)
	}
	if cmd, _ := parseLine("   "); cmd != "" {
		t.Errorf("blank line cmd = %q", cmd)
	}
}
