package httpserver

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/streamgate-go/internal/core/domain"
	"github.com/yndnr/streamgate-go/internal/identity"
	"github.com/yndnr/streamgate-go/internal/server/httpserver/handler"
	"github.com/yndnr/streamgate-go/internal/telemetry/logger"
	"github.com/yndnr/streamgate-go/pkg/token"
)

// RequestIDHeader is echoed on every response.
const RequestIDHeader = "X-Request-ID"

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain chains multiple middlewares together. The first middleware is
// the outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RequestObserver records request latency.
type RequestObserver interface {
	ObserveRequest(route string, status int, elapsed time.Duration)
}

// RequestID adds a unique request ID to each request and a request-scoped
// logger to the context.
func RequestID(base *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" || len(requestID) > 128 {
				if id, err := token.GenerateWithLength(16); err == nil {
					requestID = "req-" + id
				} else {
					requestID = "req-unknown"
				}
			}
			w.Header().Set(RequestIDHeader, requestID)

			ctx := logger.WithRequestID(r.Context(), requestID)
			ctx = logger.WithLogger(ctx, base)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Recover turns panics into 500 responses. http.ErrAbortHandler is
// re-raised so the server drops the connection.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.L(r.Context()).Error("panic recovered", "error", rec, "path", r.URL.Path)
				handler.WriteError(w, r, domain.ErrInternal)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Audit logs every request and records its latency under route.
func Audit(route string, obs RequestObserver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			defer func() {
				elapsed := time.Since(start)
				if obs != nil {
					obs.ObserveRequest(route, wrapped.statusCode, elapsed)
				}

				attrs := []any{
					"method", r.Method,
					"route", route,
					"status", wrapped.statusCode,
					"duration_ms", elapsed.Milliseconds(),
					"bytes", wrapped.written,
				}
				if id, ok := identity.FromContext(r.Context()); ok {
					attrs = append(attrs, "owner_id", id.UserID)
				}

				l := logger.L(r.Context())
				switch {
				case wrapped.statusCode >= 500:
					l.Error("request completed with error", attrs...)
				case wrapped.statusCode >= 400:
					l.Warn("request completed with client error", attrs...)
				default:
					l.Info("request completed", attrs...)
				}
			}()

			next.ServeHTTP(wrapped, r)
		})
	}
}

// RateLimit rejects clients that exceed their bucket. A nil limiter
// disables it.
func RateLimit(l *RateLimiter, trustProxy bool) Middleware {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := l.Allow(handler.ClientIP(r, trustProxy))
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(max(wait.Seconds(), 1)))))
				handler.WriteError(w, r, domain.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticate verifies the bearer JWT and stores the caller identity in
// the request context.
func Authenticate(v *identity.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="streamgate"`)
				handler.WriteError(w, r, domain.ErrAuthRequired)
				return
			}

			id, err := v.Verify(raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="streamgate", error="invalid_token"`)
				logger.L(r.Context()).Debug("bearer token rejected", "error", err)
				handler.WriteError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(h[7:])
	return raw, raw != ""
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	written     int64
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.statusCode = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(p []byte) (int, error) {
	w.wroteHeader = true
	n, err := w.ResponseWriter.Write(p)
	w.written += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
