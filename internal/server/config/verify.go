package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/yndnr/streamgate-go/internal/storage"
	"github.com/yndnr/streamgate-go/internal/telemetry/logger"
)

// minJWTSecret is the shortest accepted HMAC secret.
const minJWTSecret = 16

// Verify validates the configuration. All problems are reported together.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyServer(&cfg.Server),
		verifyStorage(&cfg.Storage),
		verifyRetention(cfg.Storage.Retention, cfg.Quota.Window),
		verifyToken(&cfg.Token),
		verifyQuota(&cfg.Quota),
		verifyTransfer(&cfg.Transfer),
		verifyAuth(&cfg.Auth),
		verifyRateLimit(&cfg.RateLimit),
		verifyMetrics(&cfg.Metrics),
		verifyLog(&cfg.Log),
	)
}

func verifyServer(cfg *ServerSection) error {
	if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
		return fmt.Errorf("server.http.addr: %w", err)
	}
	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		return errors.New("server.http: tls_cert_file and tls_key_file must be set together")
	}
	for _, f := range []string{cfg.HTTP.TLSCertFile, cfg.HTTP.TLSKeyFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("server.http: %w", err)
		}
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		return errors.New("server.http.shutdown_timeout must be positive")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Engine {
	case storage.EngineMemory:
	case storage.EngineBadger:
		if cfg.DataDir == "" {
			return errors.New("storage.data_dir is required for the badger engine")
		}
		if _, err := storage.DecodeEncryptionKey(cfg.EncryptionKey); err != nil {
			return fmt.Errorf("storage.%w", err)
		}
	default:
		return fmt.Errorf("storage.engine %q: want %s or %s", cfg.Engine, storage.EngineMemory, storage.EngineBadger)
	}
	return nil
}

// minRetention is the floor for storage.retention regardless of window.
const minRetention = 24 * time.Hour

// verifyRetention keeps spent tokens long enough to count toward both the
// rolling window and the calendar-day cap.
func verifyRetention(retention, window time.Duration) error {
	floor := max(window, minRetention)
	if retention < floor {
		return fmt.Errorf("storage.retention %s must be at least %s (max of quota.window and 24h)", retention, floor)
	}
	return nil
}

func verifyToken(cfg *TokenSection) error {
	if cfg.MinTTL <= 0 || cfg.MaxTTL <= 0 {
		return errors.New("token.min_ttl and token.max_ttl must be positive")
	}
	if cfg.MinTTL > cfg.MaxTTL {
		return fmt.Errorf("token.min_ttl %s exceeds token.max_ttl %s", cfg.MinTTL, cfg.MaxTTL)
	}
	if cfg.DefaultTTL < cfg.MinTTL || cfg.DefaultTTL > cfg.MaxTTL {
		return fmt.Errorf("token.default_ttl %s outside [%s, %s]", cfg.DefaultTTL, cfg.MinTTL, cfg.MaxTTL)
	}
	return nil
}

func verifyQuota(cfg *QuotaSection) error {
	if cfg.Window <= 0 {
		return errors.New("quota.window must be positive")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("quota.timezone: %w", err)
	}
	if len(cfg.Tiers) == 0 {
		return errors.New("quota.tiers must define at least one tier")
	}
	if _, ok := cfg.Tiers[cfg.DefaultTier]; !ok {
		return fmt.Errorf("quota.default_tier %q is not defined in quota.tiers", cfg.DefaultTier)
	}
	for name, p := range cfg.Tiers {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("quota.tiers.%s: %w", name, err)
		}
	}
	return nil
}

func verifyTransfer(cfg *TransferSection) error {
	if cfg.ChunkSize < 1024 {
		return errors.New("transfer.chunk_size must be at least 1024")
	}
	if cfg.ProgressInterval <= 0 {
		return errors.New("transfer.progress_interval must be positive")
	}
	for _, h := range cfg.AllowedHosts {
		if strings.TrimSpace(h) == "" {
			return errors.New("transfer.allowed_hosts contains an empty entry")
		}
	}
	for _, f := range cfg.CAFiles {
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("transfer.ca_files: %w", err)
		}
	}
	return nil
}

func verifyAuth(cfg *AuthSection) error {
	if len(cfg.JWTSecret) < minJWTSecret {
		return fmt.Errorf("auth.jwt_secret must be at least %d bytes", minJWTSecret)
	}
	return nil
}

func verifyRateLimit(cfg *RateLimitSection) error {
	if cfg.RPS < 0 {
		return errors.New("ratelimit.rps must not be negative")
	}
	if cfg.RPS > 0 && cfg.Burst < 1 {
		return errors.New("ratelimit.burst must be at least 1 when rps is set")
	}
	if cfg.RPS > 0 && cfg.IdleTTL <= 0 {
		return errors.New("ratelimit.idle_ttl must be positive when rps is set")
	}
	return nil
}

func verifyMetrics(cfg *MetricsSection) error {
	if cfg.Enabled && !strings.HasPrefix(cfg.Path, "/") {
		return fmt.Errorf("metrics.path %q must start with /", cfg.Path)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
		return nil
	default:
		return fmt.Errorf("log.format %q: want json or text", cfg.Format)
	}
}
