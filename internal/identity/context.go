package identity

import (
	"context"

	"github.com/yndnr/streamgate-go/internal/core/domain"
)

type contextKey struct{}

// WithIdentity stores the verified caller in ctx.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the verified caller, if any.
func FromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(domain.Identity)
	return id, ok
}
