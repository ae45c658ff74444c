package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/streamgate-go/internal/identity"
	"github.com/yndnr/streamgate-go/internal/server/httpserver/handler"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	Handler  *handler.Handler
	Verifier *identity.Verifier
	Limiter  *RateLimiter

	// Metrics serves MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string
	Observer    RequestObserver

	TrustProxy bool
	Logger     *slog.Logger
}

// NewRouter creates and configures the HTTP router with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	h := cfg.Handler
	mux := http.NewServeMux()

	// Order: RequestID -> Audit -> Recover -> RateLimit -> Auth -> Handler
	public := func(route string, fn http.HandlerFunc) http.Handler {
		return Chain(fn,
			RequestID(cfg.Logger),
			Audit(route, cfg.Observer),
			Recover(),
			RateLimit(cfg.Limiter, cfg.TrustProxy),
		)
	}
	authed := func(route string, fn http.HandlerFunc) http.Handler {
		return Chain(fn,
			RequestID(cfg.Logger),
			Audit(route, cfg.Observer),
			Recover(),
			RateLimit(cfg.Limiter, cfg.TrustProxy),
			Authenticate(cfg.Verifier),
		)
	}
	route := func(pattern string, mk func(string, http.HandlerFunc) http.Handler, fn http.HandlerFunc) {
		mux.Handle(pattern, mk(pattern, fn))
	}

	// Health endpoints skip rate limiting so probes never see 429.
	mux.Handle("GET /health", Chain(http.HandlerFunc(h.Health), RequestID(cfg.Logger), Recover()))
	mux.Handle("GET /ready", Chain(http.HandlerFunc(h.Ready), RequestID(cfg.Logger), Recover()))

	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, cfg.Metrics)
	}

	route("POST /v1/tokens", authed, h.IssueToken)
	route("GET /v1/tokens", authed, h.ListTokens)
	route("GET /v1/quota", authed, h.Quota)
	route("GET /v1/stream", public, h.Stream)

	return mux
}
