package localserver

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/yndnr/streamgate-go/internal/core/domain"
	"github.com/yndnr/streamgate-go/internal/infra/buildinfo"
	"github.com/yndnr/streamgate-go/internal/telemetry/logger"
)

// Hooks connects commands to the running server. Nil hooks report the
// command as unavailable.
type Hooks struct {
	Ping     func(ctx context.Context) error
	Policies func() map[domain.Tier]domain.TierPolicy
	Reload   func() error
	Shutdown func()
}

// Handler handles local management commands.
type Handler struct {
	hooks   Hooks
	started time.Time
}

// NewHandler creates a new Handler.
func NewHandler(hooks Hooks) *Handler {
	return &Handler{hooks: hooks, started: time.Now()}
}

// Execute executes a local management command.
func (h *Handler) Execute(ctx context.Context, w io.Writer, cmd string, args []string) error {
	switch cmd {
	case "status":
		return h.handleStatus(ctx, w)
	case "policies":
		return h.handlePolicies(w)
	case "level":
		return h.handleLevel(w, args)
	case "reload":
		return h.handleReload(w)
	case "shutdown":
		return h.handleShutdown(w)
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func (h *Handler) handleStatus(ctx context.Context, w io.Writer) error {
	storage := "ok"
	if h.hooks.Ping != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := h.hooks.Ping(ctx); err != nil {
			storage = "unavailable: " + err.Error()
		}
	}
	_, err := fmt.Fprintf(w, "version: %s\nuptime: %s\nlog_level: %s\nstorage: %s\n",
		buildinfo.Version,
		time.Since(h.started).Round(time.Second),
		logger.Level(),
		storage)
	return err
}

func (h *Handler) handlePolicies(w io.Writer) error {
	if h.hooks.Policies == nil {
		return errUnavailable("policies")
	}
	tiers := h.hooks.Policies()
	names := make([]string, 0, len(tiers))
	for t := range tiers {
		names = append(names, string(t))
	}
	slices.Sort(names)
	for _, name := range names {
		p := tiers[domain.Tier(name)]
		fmt.Fprintf(w, "%s: hour=%d day=%d concurrent=%d\n", name, p.MaxPerHour, p.MaxPerDay, p.MaxConcurrent)
	}
	return nil
}

func (h *Handler) handleLevel(w io.Writer, args []string) error {
	if len(args) > 0 {
		if err := logger.SetLevel(args[0]); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "log_level: %s\n", logger.Level())
	return err
}

func (h *Handler) handleReload(w io.Writer) error {
	if h.hooks.Reload == nil {
		return errUnavailable("reload")
	}
	if err := h.hooks.Reload(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "reloaded\n")
	return err
}

func (h *Handler) handleShutdown(w io.Writer) error {
	if h.hooks.Shutdown == nil {
		return errUnavailable("shutdown")
	}
	_, err := io.WriteString(w, "shutting down\n")
	h.hooks.Shutdown()
	return err
}

func errUnavailable(cmd string) error {
	return fmt.Errorf("%s is not available", cmd)
}

// parseLine splits a command line into a lowercase command and its args.
func parseLine(line string) (string, []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}
