package config

import (
	"time"

	"github.com/yndnr/streamgate-go/internal/core/domain"
	"github.com/yndnr/streamgate-go/internal/core/service"
	"github.com/yndnr/streamgate-go/internal/identity"
	"github.com/yndnr/streamgate-go/internal/storage"
	"github.com/yndnr/streamgate-go/internal/telemetry/logger"
	"github.com/yndnr/streamgate-go/internal/transfer"
)

// StorageConfig returns the storage engine configuration.
func (c *ServerConfig) StorageConfig() storage.Config {
	sc := storage.DefaultConfig()
	sc.Engine = c.Storage.Engine
	sc.DataDir = c.Storage.DataDir
	sc.EncryptionKey = c.Storage.EncryptionKey
	sc.SyncWrites = c.Storage.SyncWrites
	if c.Storage.GCInterval > 0 {
		sc.GCInterval = c.Storage.GCInterval
	}
	return sc
}

// IssuerConfig returns the token TTL bounds.
func (c *ServerConfig) IssuerConfig() service.IssuerConfig {
	return service.IssuerConfig{
		DefaultTTL: c.Token.DefaultTTL,
		MinTTL:     c.Token.MinTTL,
		MaxTTL:     c.Token.MaxTTL,
	}
}

// Location returns the time zone for daily quota boundaries.
func (c *ServerConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Quota.Timezone)
}

// Policies returns the tier table and the default tier.
func (c *ServerConfig) Policies() (map[domain.Tier]domain.TierPolicy, domain.Tier) {
	tiers := make(map[domain.Tier]domain.TierPolicy, len(c.Quota.Tiers))
	for name, p := range c.Quota.Tiers {
		tiers[domain.Tier(name)] = p
	}
	return tiers, domain.Tier(c.Quota.DefaultTier)
}

// TransferConfig returns the engine configuration.
func (c *ServerConfig) TransferConfig() transfer.Config {
	return transfer.Config{
		ChunkSize:        c.Transfer.ChunkSize,
		ProgressInterval: c.Transfer.ProgressInterval,
	}
}

// SourceConfig returns the upstream HTTP source configuration.
func (c *ServerConfig) SourceConfig() transfer.HTTPSourceConfig {
	return transfer.HTTPSourceConfig{
		Timeout:      c.Transfer.SourceTimeout,
		AllowedHosts: c.Transfer.AllowedHosts,
	}
}

// IdentityConfig returns the JWT verifier configuration.
func (c *ServerConfig) IdentityConfig() identity.Config {
	return identity.Config{
		Secret:    []byte(c.Auth.JWTSecret),
		Issuer:    c.Auth.Issuer,
		TierClaim: c.Auth.TierClaim,
		Leeway:    c.Auth.Leeway,
	}
}

// LoggerConfig returns the logger configuration.
func (c *ServerConfig) LoggerConfig() logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = c.Log.Level
	lc.Format = c.Log.Format
	return lc
}
