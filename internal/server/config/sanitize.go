package config

import (
	"maps"
	"slices"
	"strings"
)

// Sanitize returns a copy of the config with sensitive fields masked.
//
// This is used for logging configuration without exposing secrets.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg
	sanitized.Quota.Tiers = maps.Clone(cfg.Quota.Tiers)
	sanitized.Transfer.AllowedHosts = slices.Clone(cfg.Transfer.AllowedHosts)
	sanitized.Transfer.CAFiles = slices.Clone(cfg.Transfer.CAFiles)

	if sanitized.Storage.EncryptionKey != "" {
		sanitized.Storage.EncryptionKey = maskSecret(sanitized.Storage.EncryptionKey)
	}
	if sanitized.Auth.JWTSecret != "" {
		sanitized.Auth.JWTSecret = maskSecret(sanitized.Auth.JWTSecret)
	}
	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
