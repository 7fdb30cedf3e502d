package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/moneta-bot/moneta/internal/moneta/config"
)

const validConfig = `
matrix:
  homeserver: https://matrix.example.org
  userId: "@moneta:example.org"
  accessToken: secret
store:
  backend: sqlite
  path: /var/lib/moneta/moneta.db
  pruneInterval: 5m
payments:
  baseUrl: https://payments.example.org
  apiKey: pk_test
  timeout: 15s
admins:
  - "@op:example.org"
limits:
  message:
    window: 1m
    maxPerUser: 30
    maxPerGroup: 120
  payment:
    window: 1m
    maxPerUser: 5
    blockDuration: 10m
confirm:
  ttl: 300s
logging:
  level: debug
  format: json
`

func TestParseValid(t *testing.T) {
	cfg, err := config.Parse([]byte(validConfig))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Matrix.UserID != "@moneta:example.org" {
		t.Errorf("userId = %q", cfg.Matrix.UserID)
	}
	if cfg.Store.Backend != "sqlite" || cfg.Store.Path != "/var/lib/moneta/moneta.db" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if got := cfg.Store.PruneInterval.Std(); got != 5*time.Minute {
		t.Errorf("pruneInterval = %v", got)
	}
	if got := cfg.Payments.Timeout.Std(); got != 15*time.Second {
		t.Errorf("timeout = %v", got)
	}
	if got := cfg.Confirm.TTL.Std(); got != 300*time.Second {
		t.Errorf("confirm ttl = %v", got)
	}
	if limit := cfg.Limits["payment"]; limit.MaxPerUser != 5 ||
		limit.BlockDuration.Std() != 10*time.Minute {
		t.Errorf("payment limit = %+v", limit)
	}
	if len(cfg.Admins) != 1 || cfg.Admins[0] != "@op:example.org" {
		t.Errorf("admins = %v", cfg.Admins)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := config.Parse([]byte(`
matrix:
  homeserver: https://matrix.example.org
  userId: "@moneta:example.org"
payments:
  baseUrl: https://payments.example.org
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Store.Backend != "sqlite" || cfg.Store.Path == "" {
		t.Errorf("store defaults = %+v", cfg.Store)
	}
	if cfg.Confirm.TTL.Std() != 300*time.Second {
		t.Errorf("confirm ttl default = %v", cfg.Confirm.TTL.Std())
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("logging defaults = %+v", cfg.Logging)
	}
}

func TestParseRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "missing payments",
			mutate:  func(s string) string { return strings.ReplaceAll(s, "payments:", "paymentsX:") },
			wantErr: "invalid",
		},
		{
			name:    "bad backend",
			mutate:  func(s string) string { return strings.ReplaceAll(s, "backend: sqlite", "backend: etcd") },
			wantErr: "invalid",
		},
		{
			name:    "bad duration",
			mutate:  func(s string) string { return strings.ReplaceAll(s, "timeout: 15s", "timeout: soon") },
			wantErr: "invalid",
		},
		{
			name:    "bad admin",
			mutate:  func(s string) string { return strings.ReplaceAll(s, `"@op:example.org"`, `"op"`) },
			wantErr: "must be a Matrix user id",
		},
		{
			name:    "unknown field",
			mutate:  func(s string) string { return s + "\nextra: true\n" },
			wantErr: "invalid",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tc.mutate(validConfig)))
			if err == nil {
				t.Fatal("Parse accepted a bad config")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tc.wantErr)
			}
		})
	}
}

func TestRedisBackendRequiresURL(t *testing.T) {
	_, err := config.Parse([]byte(`
matrix:
  homeserver: https://matrix.example.org
  userId: "@moneta:example.org"
store:
  backend: redis
payments:
  baseUrl: https://payments.example.org
`))
	if err == nil || !strings.Contains(err.Error(), "store.url") {
		t.Errorf("error = %v, want store.url requirement", err)
	}
}
