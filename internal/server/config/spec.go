package config

import (
	"time"

	"github.com/yndnr/streamgate-go/internal/core/domain"
)

// ServerConfig is the root configuration for streamgate-server.
type ServerConfig struct {
	Server    ServerSection    `koanf:"server"`
	Storage   StorageSection   `koanf:"storage"`
	Token     TokenSection     `koanf:"token"`
	Quota     QuotaSection     `koanf:"quota"`
	Transfer  TransferSection  `koanf:"transfer"`
	Auth      AuthSection      `koanf:"auth"`
	RateLimit RateLimitSection `koanf:"ratelimit"`
	Metrics   MetricsSection   `koanf:"metrics"`
	Log       LogSection       `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP  HTTPConfig  `koanf:"http"`
	Local LocalConfig `koanf:"local"`
}

// LocalConfig configures the local management socket.
type LocalConfig struct {
	// SocketPath enables the socket when set.
	SocketPath string `koanf:"socket_path"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr              string        `koanf:"addr"`
	TLSCertFile       string        `koanf:"tls_cert_file"`
	TLSKeyFile        string        `koanf:"tls_key_file"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	// TrustProxy takes the client IP from X-Forwarded-For.
	TrustProxy bool `koanf:"trust_proxy"`
}

// StorageSection configures the token store.
type StorageSection struct {
	Engine        string        `koanf:"engine"`
	DataDir       string        `koanf:"data_dir"`
	EncryptionKey string        `koanf:"encryption_key"`
	GCInterval    time.Duration `koanf:"gc_interval"`
	SyncWrites    bool          `koanf:"sync_writes"`
	// Retention is how long spent tokens are kept before purging.
	Retention     time.Duration `koanf:"retention"`
	PurgeInterval time.Duration `koanf:"purge_interval"`
}

// TokenSection configures stream token lifetimes.
type TokenSection struct {
	DefaultTTL    time.Duration `koanf:"default_ttl"`
	MinTTL        time.Duration `koanf:"min_ttl"`
	MaxTTL        time.Duration `koanf:"max_ttl"`
	StrictBinding bool          `koanf:"strict_binding"`
}

// QuotaSection configures issuance limits.
type QuotaSection struct {
	Window        time.Duration                `koanf:"window"`
	Timezone      string                       `koanf:"timezone"`
	DefaultTier   string                       `koanf:"default_tier"`
	DenyCacheTTL  time.Duration                `koanf:"deny_cache_ttl"`
	SweepInterval time.Duration                `koanf:"sweep_interval"`
	Tiers         map[string]domain.TierPolicy `koanf:"tiers"`
}

// TransferSection configures the streaming engine and upstream source.
type TransferSection struct {
	ChunkSize        int           `koanf:"chunk_size"`
	ProgressInterval time.Duration `koanf:"progress_interval"`
	SourceTimeout    time.Duration `koanf:"source_timeout"`
	AllowedHosts     []string      `koanf:"allowed_hosts"`
	// CAFiles are extra PEM roots trusted for upstream TLS.
	CAFiles []string `koanf:"ca_files"`
}

// AuthSection configures bearer JWT verification.
type AuthSection struct {
	JWTSecret string        `koanf:"jwt_secret"`
	Issuer    string        `koanf:"issuer"`
	TierClaim string        `koanf:"tier_claim"`
	Leeway    time.Duration `koanf:"leeway"`
}

// RateLimitSection configures per-client request limits. RPS 0 disables it.
type RateLimitSection struct {
	RPS     float64       `koanf:"rps"`
	Burst   int           `koanf:"burst"`
	IdleTTL time.Duration `koanf:"idle_ttl"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
