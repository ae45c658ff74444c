// Package logger configures the process-wide log/slog logger.
//
// Output is JSON by default. Stream secrets and credential-like
// attributes are masked before they reach the handler, and the level can
// be changed at runtime through SetLevel.
package logger
