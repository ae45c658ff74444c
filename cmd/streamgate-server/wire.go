package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/yndnr/streamgate-go/internal/core/service"
	"github.com/yndnr/streamgate-go/internal/identity"
	"github.com/yndnr/streamgate-go/internal/infra/buildinfo"
	"github.com/yndnr/streamgate-go/internal/infra/confloader"
	"github.com/yndnr/streamgate-go/internal/infra/shutdown"
	"github.com/yndnr/streamgate-go/internal/infra/tlsroots"
	"github.com/yndnr/streamgate-go/internal/server/config"
	"github.com/yndnr/streamgate-go/internal/server/httpserver"
	"github.com/yndnr/streamgate-go/internal/server/httpserver/handler"
	"github.com/yndnr/streamgate-go/internal/server/localserver"
	"github.com/yndnr/streamgate-go/internal/storage"
	"github.com/yndnr/streamgate-go/internal/telemetry/logger"
	"github.com/yndnr/streamgate-go/internal/telemetry/metric"
	"github.com/yndnr/streamgate-go/internal/transfer"
	"github.com/yndnr/streamgate-go/pkg/clock"
)

// loadConfig loads configuration from defaults, file, environment and
// flag overrides, in that order.
func loadConfig(configFile string, overrides map[string]any) (*config.ServerConfig, *confloader.Loader, error) {
	cfg := config.Default()

	opts := []confloader.Option{confloader.WithOverrides(overrides)}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	loader := confloader.NewLoader(opts...)

	if err := loader.Load(cfg); err != nil {
		return nil, nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, loader, nil
}

// components holds the wired server.
type components struct {
	store    storage.Store
	registry *metric.Registry
	policies *service.PolicyTable
	denials  *service.DenialCache
	janitor  *service.Janitor
	limiter  *httpserver.RateLimiter
	pinger   storage.Pinger
	router   http.Handler
	certs    *tlsroots.CertReloader // nil without TLS

	reloadMu sync.Mutex
}

// initComponents builds every component from cfg. The caller owns
// store and must close it.
func initComponents(cfg *config.ServerConfig, log *slog.Logger) (*components, error) {
	clk := clock.Real()
	registry := metric.NewRegistry()

	store, err := storage.Open(cfg.StorageConfig(), log, registry.Registerer())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	c, err := initServices(cfg, store, registry, clk, log)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func initServices(cfg *config.ServerConfig, store storage.Store, registry *metric.Registry, clk clock.Clock, log *slog.Logger) (*components, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("quota timezone: %w", err)
	}
	tiers, defaultTier := cfg.Policies()
	policies, err := service.NewPolicyTable(tiers, defaultTier)
	if err != nil {
		return nil, fmt.Errorf("tier policies: %w", err)
	}

	verifier, err := identity.NewVerifier(cfg.IdentityConfig())
	if err != nil {
		return nil, fmt.Errorf("init verifier: %w", err)
	}

	denials := service.NewDenialCache(cfg.Quota.DenyCacheTTL, clk)
	grants := service.NewGrantService(service.GrantServiceConfig{
		Store:       store,
		Issuer:      service.NewTokenIssuer(store, cfg.IssuerConfig(), clk, log),
		Quota:       service.NewQuotaGuard(store, cfg.Quota.Window, loc, clk),
		Concurrency: service.NewConcurrencyGuard(store, clk),
		Denials:     denials,
		Policies:    policies,
		Clock:       clk,
		Metrics:     registry,
		Logger:      log,
	})
	validator := service.NewTokenValidator(store, cfg.Token.StrictBinding, clk, registry, log)
	roots, err := tlsroots.Roots(cfg.Transfer.CAFiles...)
	if err != nil {
		return nil, fmt.Errorf("upstream roots: %w", err)
	}
	sourceCfg := cfg.SourceConfig()
	sourceCfg.RootCAs = roots
	engine := transfer.NewEngine(transfer.NewHTTPSource(sourceCfg), cfg.TransferConfig(), clk, registry, log)

	var pinger storage.Pinger
	if p, ok := store.(storage.Pinger); ok {
		pinger = p
	}

	var limiter *httpserver.RateLimiter
	if cfg.RateLimit.RPS > 0 {
		limiter = httpserver.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL, clk)
	}

	rc := &httpserver.RouterConfig{
		Handler: handler.New(handler.Config{
			Grants:     grants,
			Validator:  validator,
			Engine:     engine,
			Pinger:     pinger,
			TrustProxy: cfg.Server.HTTP.TrustProxy,
			Logger:     log,
		}),
		Verifier:   verifier,
		Limiter:    limiter,
		Observer:   registry,
		TrustProxy: cfg.Server.HTTP.TrustProxy,
		Logger:     log,
	}
	if cfg.Metrics.Enabled {
		rc.Metrics = registry.Handler()
		rc.MetricsPath = cfg.Metrics.Path
	}

	log.Info("services initialized",
		"storage", cfg.Storage.Engine,
		"default_tier", string(defaultTier),
		"tiers", len(tiers),
		"rate_limit", limiter != nil)

	return &components{
		store:    store,
		registry: registry,
		policies: policies,
		denials:  denials,
		janitor:  service.NewJanitor(store, cfg.Storage.Retention, clk, log),
		limiter:  limiter,
		pinger:   pinger,
		router:   httpserver.NewRouter(rc),
	}, nil
}

// startBackground runs the periodic sweepers until ctx ends. The
// returned wait blocks until they have all returned.
func (c *components) startBackground(ctx context.Context, cfg *config.ServerConfig, log *slog.Logger) (wait func()) {
	var wg sync.WaitGroup
	start := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	start(func() { c.denials.Run(ctx, cfg.Quota.SweepInterval, log) })
	start(func() { c.janitor.Run(ctx, cfg.Storage.PurgeInterval) })
	if c.limiter != nil {
		start(func() { c.limiter.Run(ctx, cfg.RateLimit.IdleTTL/2) })
	}
	if c.certs != nil {
		start(func() {
			if err := c.certs.Run(ctx); err != nil {
				log.Warn("certificate watcher stopped", "error", err)
			}
		})
	}
	return wg.Wait
}

// reloadConfig applies the hot-reloadable settings from a changed file.
// Everything else needs a restart.
func (c *components) reloadConfig(loader *confloader.Loader, log *slog.Logger) error {
	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()

	next := config.Default()
	if err := loader.Reload(next); err != nil {
		return err
	}
	if err := config.Verify(next); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logger.SetLevel(next.Log.Level); err != nil {
		return err
	}
	tiers, defaultTier := next.Policies()
	if err := c.policies.Replace(tiers, defaultTier); err != nil {
		return err
	}

	log.Info("configuration reloaded",
		"log_level", logger.Level(),
		"default_tier", string(defaultTier),
		"tiers", len(tiers))
	return nil
}

// startLocal opens the management socket. Its shutdown command cancels
// the run context like a signal would.
func (c *components) startLocal(path string, loader *confloader.Loader, stop func(), log *slog.Logger) (*localserver.Server, error) {
	hooks := localserver.Hooks{
		Policies: c.policies.Snapshot,
		Shutdown: stop,
	}
	if c.pinger != nil {
		hooks.Ping = c.pinger.Ping
	}
	if loader.Path() != "" {
		hooks.Reload = func() error { return c.reloadConfig(loader, log) }
	}

	srv := localserver.New(path, localserver.NewHandler(hooks), log)
	if err := srv.Listen(); err != nil {
		return nil, err
	}
	go func() {
		if err := srv.Serve(); err != nil {
			log.Error("local management socket failed", "error", err)
		}
	}()
	return srv, nil
}

// run starts the server and blocks until a signal arrives or ctx ends.
func run(ctx context.Context, cfg *config.ServerConfig, loader *confloader.Loader) error {
	log, err := logger.Install(cfg.LoggerConfig())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	log.Info("starting streamgate-server",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"config", loader.Path())
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	comps, err := initComponents(cfg, log)
	if err != nil {
		return err
	}

	httpCfg := httpserver.Config{
		Addr:              cfg.Server.HTTP.Addr,
		ReadHeaderTimeout: cfg.Server.HTTP.ReadHeaderTimeout,
		Logger:            log,
	}
	if cfg.Server.HTTP.TLSCertFile != "" {
		comps.certs, err = tlsroots.NewCertReloader(cfg.Server.HTTP.TLSCertFile, cfg.Server.HTTP.TLSKeyFile, tlsroots.WithLogger(log))
		if err != nil {
			comps.store.Close()
			return err
		}
		httpCfg.TLSConfig = tlsroots.ServerConfig(comps.certs)
	}

	ln, err := net.Listen("tcp", cfg.Server.HTTP.Addr)
	if err != nil {
		comps.store.Close()
		return fmt.Errorf("listen %s: %w", cfg.Server.HTTP.Addr, err)
	}
	httpSrv := httpserver.New(httpCfg, comps.router)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	sh := shutdown.NewHandler(cfg.Server.HTTP.ShutdownTimeout, log)

	// Hooks run in reverse order: HTTP first, the store last.
	sh.OnShutdown("storage", func(context.Context) error {
		return comps.store.Close()
	})

	bgCtx, stopBackground := context.WithCancel(context.Background())
	waitBackground := comps.startBackground(bgCtx, cfg, log)
	sh.OnShutdown("background", func(context.Context) error {
		stopBackground()
		waitBackground()
		return nil
	})

	if path := loader.Path(); path != "" {
		watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
		if err != nil {
			log.Warn("config watcher disabled", "error", err)
		} else if err := watcher.Watch(path); err != nil {
			log.Warn("config watcher disabled", "path", path, "error", err)
			watcher.Stop()
		} else {
			watcher.OnChange(func(string) {
				if err := comps.reloadConfig(loader, log); err != nil {
					log.Error("configuration reload rejected", "error", err)
				}
			})
			watcher.StartAsync()
			sh.OnShutdown("config-watcher", func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	if path := cfg.Server.Local.SocketPath; path != "" {
		local, err := comps.startLocal(path, loader, cancelRun, log)
		if err != nil {
			log.Warn("local management socket disabled", "path", path, "error", err)
		} else {
			sh.OnShutdown("local", local.Shutdown)
		}
	}

	sh.OnShutdown("http", httpSrv.Shutdown)

	serveErr := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil {
			log.Error("http server failed", "error", err)
			serveErr <- fmt.Errorf("http server: %w", err)
		}
		cancelRun()
	}()

	log.Info("server started, press Ctrl+C to stop")
	err = sh.Wait(runCtx)
	select {
	case e := <-serveErr:
		err = errors.Join(e, err)
	default:
	}
	if err != nil {
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}
