package storage

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/streamgate-go/internal/core/service"
	"github.com/yndnr/streamgate-go/internal/storage/memory"
)

// Engine names.
const (
	EngineMemory = "memory"
	EngineBadger = "badger"
)

// Store is a TokenStore that owns resources.
type Store interface {
	service.TokenStore
	io.Closer
}

// Pinger is implemented by stores that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config selects and tunes the storage engine.
type Config struct {
	// Engine is "memory" or "badger".
	Engine string

	// DataDir is the badger directory.
	DataDir string

	// EncryptionKey is a hex-encoded AES key (16, 24 or 32 bytes).
	// Empty disables encryption at rest.
	EncryptionKey string

	// GCInterval is the interval between value log GC runs.
	GCInterval time.Duration

	// GCThreshold is the discard ratio passed to RunValueLogGC.
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	CacheSize int64

	// SyncWrites fsyncs every commit.
	SyncWrites bool
}

// DefaultConfig returns an in-memory configuration with badger tuning
// defaults filled in.
func DefaultConfig() Config {
	return Config{
		Engine:      EngineMemory,
		DataDir:     "data",
		GCInterval:  10 * time.Minute,
		GCThreshold: 0.5,
		CacheSize:   64 << 20, // 64MB
		SyncWrites:  true,
	}
}

// DecodeEncryptionKey parses the hex key and checks its AES length.
func DecodeEncryptionKey(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	switch len(key) {
	case 16, 24, 32:
		return key, nil
	default:
		return nil, fmt.Errorf("encryption key: got %d bytes, want 16, 24 or 32", len(key))
	}
}

// Open creates the configured engine. reg may be nil.
func Open(cfg Config, logger *slog.Logger, reg prometheus.Registerer) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Engine {
	case "", EngineMemory:
		logger.Info("using memory token store")
		return memory.New(), nil
	case EngineBadger:
		s, err := OpenBadger(cfg, logger)
		if err != nil {
			return nil, err
		}
		if reg != nil {
			if err := s.RegisterMetrics(reg); err != nil {
				s.Close()
				return nil, err
			}
		}
		return s, nil
	default:
		return nil, fmt.Errorf("storage: unknown engine %q", cfg.Engine)
	}
}
