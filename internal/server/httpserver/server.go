package httpserver

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Config configures the http.Server.
type Config struct {
	Addr              string
	TLSCertFile       string
	TLSKeyFile        string
	ReadHeaderTimeout time.Duration
	// TLSConfig, when set, takes precedence over the cert and key files.
	TLSConfig *tls.Config
	Logger    *slog.Logger
}

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	cfg        Config
}

// New creates a new HTTP server. There is no write timeout because
// streams run as long as the transfer does.
func New(cfg Config, handler http.Handler) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{
		cfg: cfg,
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			TLSConfig:         cfg.TLSConfig,
			IdleTimeout:       2 * time.Minute,
			ErrorLog:          slog.NewLogLogger(cfg.Logger.Handler(), slog.LevelWarn),
		},
	}
}

// Serve accepts connections on ln until Shutdown. It returns nil after a
// graceful shutdown.
func (s *Server) Serve(ln net.Listener) error {
	var err error
	if s.cfg.TLSConfig != nil {
		s.cfg.Logger.Info("https server listening", "addr", ln.Addr().String())
		err = s.httpServer.ServeTLS(ln, "", "")
	} else if s.cfg.TLSCertFile != "" {
		s.cfg.Logger.Info("https server listening", "addr", ln.Addr().String())
		err = s.httpServer.ServeTLS(ln, s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
	} else {
		s.cfg.Logger.Info("http server listening", "addr", ln.Addr().String())
		err = s.httpServer.Serve(ln)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ListenAndServe listens on the configured address and serves.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
