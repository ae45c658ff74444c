package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/streamgate-go/internal/core/domain"
	"github.com/yndnr/streamgate-go/internal/identity"
	"github.com/yndnr/streamgate-go/internal/server/config"
	"github.com/yndnr/streamgate-go/internal/telemetry/logger"
)

const testSecret = "0123456789abcdef0123"

var discardLogger = slog.New(slog.DiscardHandler)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "streamgate.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "`+testSecret+`"
storage:
  engine: memory
log:
  level: warn
`)

	cfg, loader, err := loadConfig(path, map[string]any{"server.http.addr": "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Server.HTTP.Addr != "127.0.0.1:0" {
		t.Errorf("addr = %q, override not applied", cfg.Server.HTTP.Addr)
	}
	if cfg.Log.Level != "warn" || cfg.Storage.Engine != "memory" {
		t.Errorf("file values not applied: %+v %+v", cfg.Log, cfg.Storage)
	}
	if loader.Path() != path {
		t.Errorf("Path() = %q", loader.Path())
	}
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	path := writeConfig(t, "storage:\n  engine: memory\n")
	if _, _, err := loadConfig(path, nil); err == nil || !strings.Contains(err.Error(), "jwt_secret") {
		t.Errorf("error = %v, want jwt_secret failure", err)
	}
}

func testConfig() *config.ServerConfig {
	cfg := config.Default()
	cfg.Storage.Engine = "memory"
	cfg.Auth.JWTSecret = testSecret
	cfg.RateLimit.RPS = 0
	return cfg
}

func TestInitComponents_ServesAPI(t *testing.T) {
	cfg := testConfig()
	comps, err := initComponents(cfg, discardLogger)
	if err != nil {
		t.Fatalf("initComponents() error = %v", err)
	}
	defer comps.store.Close()

	srv := httptest.NewServer(comps.router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/health status = %d", resp.StatusCode)
	}

	jwt, err := identity.Sign(cfg.IdentityConfig(), domain.Identity{UserID: "alice", Tier: "pro"}, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/quota", nil)
	req.Header.Set("Authorization", "Bearer "+jwt)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/v1/quota status = %d", resp.StatusCode)
	}
	var env struct {
		Data struct {
			Tier string `json:"tier"`
		} `json:"data"`
	}
	json.NewDecoder(resp.Body).Decode(&env)
	if env.Data.Tier != "pro" {
		t.Errorf("tier = %q", env.Data.Tier)
	}

	resp, err = http.Get(srv.URL + cfg.Metrics.Path)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d", resp.StatusCode)
	}
}

func TestReloadConfig(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "`+testSecret+`"
storage:
  engine: memory
`)
	cfg, loader, err := loadConfig(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	comps, err := initComponents(cfg, discardLogger)
	if err != nil {
		t.Fatal(err)
	}
	defer comps.store.Close()
	t.Cleanup(func() { logger.SetLevel("info") })

	os.WriteFile(path, []byte(`
auth:
  jwt_secret: "`+testSecret+`"
storage:
  engine: memory
log:
  level: debug
quota:
  default_tier: basic
  tiers:
    basic: {max_per_hour: 1, max_per_day: 1, max_concurrent: 1}
`), 0o600)

	if err := comps.reloadConfig(loader, discardLogger); err != nil {
		t.Fatalf("reloadConfig() error = %v", err)
	}
	if logger.Level() != "debug" {
		t.Errorf("level = %q, want debug", logger.Level())
	}
	tier, policy := comps.policies.Resolve("unknown")
	if tier != "basic" || policy.MaxPerDay != 1 {
		t.Errorf("Resolve() = %q %+v", tier, policy)
	}

	t.Run("invalid file keeps current settings", func(t *testing.T) {
		os.WriteFile(path, []byte("token:\n  min_ttl: 1h\n  max_ttl: 1m\n"), 0o600)
		if err := comps.reloadConfig(loader, discardLogger); err == nil {
			t.Fatal("expected reload error")
		}
		if tier, _ := comps.policies.Resolve("unknown"); tier != "basic" {
			t.Errorf("policies changed after rejected reload: %q", tier)
		}
	})
}

func TestTokenCommand(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: \""+testSecret+"\"\nstorage:\n  engine: memory\n")
	app := newApp()
	var out strings.Builder
	app.Writer = &out

	if err := app.Run([]string{"streamgate-server", "token", "--config", path, "--user", "bob", "--tier", "pro"}); err != nil {
		t.Fatalf("token error = %v", err)
	}
	cfg, _, _ := loadConfig(path, nil)
	v, err := identity.NewVerifier(cfg.IdentityConfig())
	if err != nil {
		t.Fatal(err)
	}
	id, err := v.Verify(strings.TrimSpace(out.String()))
	if err != nil || id.UserID != "bob" || id.Tier != "pro" {
		t.Errorf("Verify() = %+v, %v", id, err)
	}
}
