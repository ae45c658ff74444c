package config

import (
	"time"

	"github.com/yndnr/streamgate-go/internal/core/domain"
	"github.com/yndnr/streamgate-go/internal/core/service"
	"github.com/yndnr/streamgate-go/internal/storage"
	"github.com/yndnr/streamgate-go/internal/transfer"
)

// Default configuration values.
const (
	DefaultHTTPAddr          = "127.0.0.1:5080"
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second

	DefaultDataDir    = "/var/lib/streamgate/data"
	DefaultGCInterval = 10 * time.Minute

	DefaultTimezone = "UTC"

	DefaultSourceTimeout = 15 * time.Second

	DefaultRPS     = 20
	DefaultBurst   = 40
	DefaultIdleTTL = 10 * time.Minute

	DefaultMetricsPath = "/metrics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	tiers := make(map[string]domain.TierPolicy)
	for tier, p := range domain.DefaultTierPolicies() {
		tiers[string(tier)] = p
	}

	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:              DefaultHTTPAddr,
				ReadHeaderTimeout: DefaultReadHeaderTimeout,
				ShutdownTimeout:   DefaultShutdownTimeout,
			},
		},
		Storage: StorageSection{
			Engine:        storage.EngineMemory,
			DataDir:       DefaultDataDir,
			GCInterval:    DefaultGCInterval,
			SyncWrites:    true,
			Retention:     service.DefaultRetention,
			PurgeInterval: service.DefaultJanitorInterval,
		},
		Token: TokenSection{
			DefaultTTL:    service.DefaultTokenTTL,
			MinTTL:        service.DefaultMinTTL,
			MaxTTL:        service.DefaultMaxTTL,
			StrictBinding: true,
		},
		Quota: QuotaSection{
			Window:        service.DefaultQuotaWindow,
			Timezone:      DefaultTimezone,
			DefaultTier:   string(domain.TierFree),
			DenyCacheTTL:  service.DefaultDenyCacheTTL,
			SweepInterval: service.DefaultSweepInterval,
			Tiers:         tiers,
		},
		Transfer: TransferSection{
			ChunkSize:        transfer.DefaultChunkSize,
			ProgressInterval: transfer.DefaultProgressInterval,
			SourceTimeout:    DefaultSourceTimeout,
		},
		Auth: AuthSection{
			TierClaim: "tier",
		},
		RateLimit: RateLimitSection{
			RPS:     DefaultRPS,
			Burst:   DefaultBurst,
			IdleTTL: DefaultIdleTTL,
		},
		Metrics: MetricsSection{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
