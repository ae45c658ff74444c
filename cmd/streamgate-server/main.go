package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/streamgate-go/internal/core/domain"
	"github.com/yndnr/streamgate-go/internal/identity"
	"github.com/yndnr/streamgate-go/internal/infra/buildinfo"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "streamgate-server",
		Usage:   "StreamGate stream token service",
		Version: buildinfo.String(),
		Flags:   serveFlags(),
		Action:  serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the server (default)",
				Flags:  serveFlags(),
				Action: serveAction,
			},
			{
				Name:  "version",
				Usage: "Show version information",
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, "streamgate-server", buildinfo.String())
					return nil
				},
			},
			{
				Name:  "token",
				Usage: "Sign a bearer JWT with the configured secret (development)",
				Flags: append(serveFlags(),
					&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "Subject user ID", Required: true},
					&cli.StringFlag{Name: "tier", Usage: "Tier claim (default tier when empty)"},
					&cli.DurationFlag{Name: "ttl", Value: time.Hour, Usage: "JWT lifetime"},
				),
				Action: tokenAction,
			},
		},
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			EnvVars: []string{"STREAMGATE_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "addr",
			Usage: "HTTP listen address (overrides server.http.addr)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "storage-engine",
			Usage: "Storage engine: memory, badger",
		},
	}
}

// flagOverrides maps set flags onto config keys.
func flagOverrides(c *cli.Context) map[string]any {
	keys := map[string]string{
		"addr":           "server.http.addr",
		"log-level":      "log.level",
		"storage-engine": "storage.engine",
	}
	out := make(map[string]any)
	for flag, key := range keys {
		if c.IsSet(flag) {
			out[key] = c.String(flag)
		}
	}
	return out
}

func serveAction(c *cli.Context) error {
	cfg, loader, err := loadConfig(c.String("config"), flagOverrides(c))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return run(c.Context, cfg, loader)
}

func tokenAction(c *cli.Context) error {
	cfg, _, err := loadConfig(c.String("config"), flagOverrides(c))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	tier := c.String("tier")
	if tier == "" {
		tier = cfg.Quota.DefaultTier
	}
	signed, err := identity.Sign(cfg.IdentityConfig(), domain.Identity{
		UserID: c.String("user"),
		Tier:   domain.Tier(tier),
	}, c.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, signed)
	return nil
}
