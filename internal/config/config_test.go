package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadReadsYAML(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("REDIS_ADDR", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: "9090"
redis:
  addr: localhost:6379
  channel: quiz-events
game:
  pendingDelay: 2s
  streamBuffer: 32
auth:
  secret: from-file
  tokenTtl: 2h
websocket:
  rate: 2.5
  burst: 4
metrics:
  enabled: false
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Redis.Addr != "localhost:6379" || cfg.Redis.Channel != "quiz-events" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if Duration(cfg.Game.PendingDelay, time.Second) != 2*time.Second || cfg.Game.StreamBuffer != 32 {
		t.Fatalf("unexpected game config %+v", cfg.Game)
	}
	if cfg.Websocket.Rate != 2.5 || cfg.Websocket.Burst != 4 || cfg.Metrics.Enabled {
		t.Fatalf("unexpected websocket/metrics config %+v %+v", cfg.Websocket, cfg.Metrics)
	}
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("DATABASE_URL", "postgres://quiz@localhost/quiz")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7070" || cfg.Auth.Secret != "from-env" || cfg.Postgres.URL == "" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if !cfg.Metrics.Enabled {
		t.Fatalf("metrics should default to enabled")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	cfg := Config{}
	cfg.Redis.Addr = "file:6379"
	env := map[string]string{"REDIS_ADDR": "env:6379", "REDIS_DB": "3"}
	applyEnv(&cfg, func(k string) string { return env[k] })
	if cfg.Redis.Addr != "env:6379" || cfg.Redis.DB != 3 {
		t.Fatalf("unexpected redis config %+v", cfg.Redis)
	}
}

func TestDuration(t *testing.T) {
	if got := Duration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %s", got)
	}
	if got := Duration("bogus", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for invalid input, got %s", got)
	}
	if got := Duration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %s", got)
	}
}
