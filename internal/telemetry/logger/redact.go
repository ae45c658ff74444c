package logger

import (
	"log/slog"
	"strings"

	"github.com/yndnr/streamgate-go/internal/core/domain"
)

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// sensitiveKeys are attribute names whose values are always hidden.
var sensitiveKeys = map[string]struct{}{
	"secret":         {},
	"token":          {},
	"stream_token":   {},
	"password":       {},
	"authorization":  {},
	"jwt_secret":     {},
	"encryption_key": {},
	"bearer":         {},
}

// redactSensitive masks stream secrets wherever they appear and hides
// values stored under credential-like keys.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		s := a.Value.String()
		if strings.HasPrefix(s, domain.SecretPrefix) {
			return slog.String(a.Key, domain.MaskSecret(s))
		}
		if s != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// IsSensitiveKey reports whether values under key must not be logged.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	if _, ok := sensitiveKeys[k]; ok {
		return true
	}
	return strings.HasSuffix(k, "_secret") || strings.HasSuffix(k, "_password")
}

// RedactString masks s if it looks like a stream secret.
func RedactString(s string) string {
	if strings.HasPrefix(s, domain.SecretPrefix) {
		return domain.MaskSecret(s)
	}
	return s
}
