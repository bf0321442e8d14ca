package main

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pkrouting/pkg/config"
	"pkrouting/pkg/dberrors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInitConfig_MissingFileFallsBackToDefault(t *testing.T) {
	cfg, err := initConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("initConfig: %v", err)
	}
	if cfg.Server.Port != config.Default().Server.Port {
		t.Fatalf("port = %d, want default", cfg.Server.Port)
	}
}

func TestInitConfig_ParsesYAML(t *testing.T) {
	path := writeConfig(t, `
logger:
  level: DEBUG
  json: true
http-server:
  port: 9090
  read_header_timeout: 2s
routing:
  source: static
  static:
    users:
      - {id: "a", min: "", max: "20"}
      - {id: "b", min: "20", max: "FF"}
containers:
  users:
    paths: ["/id"]
    kind: Hash
`)

	cfg, err := initConfig(path)
	if err != nil {
		t.Fatalf("initConfig: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Server.ReadHeaderTimeout != 2*time.Second {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if !cfg.Logger.JSON || parseLevel(cfg.Logger.Level) != slog.LevelDebug {
		t.Fatalf("logger = %+v", cfg.Logger)
	}
	parts, err := cfg.StaticPartitions()
	if err != nil {
		t.Fatal(err)
	}
	if len(parts["users"]) != 2 {
		t.Fatalf("users partitions = %v", parts["users"])
	}
}

func TestInitConfig_RejectsInvalid(t *testing.T) {
	path := writeConfig(t, `
routing:
  source: http
`)
	if _, err := initConfig(path); !errors.Is(err, dberrors.ErrInvalidArgument) {
		t.Fatalf("initConfig = %v, want ErrInvalidArgument", err)
	}
}
