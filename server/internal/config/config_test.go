package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	p := writeConfig(t, "log_level: info\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.Server.HTTPPort, DefaultHTTPPort)
	}
	if cfg.Server.Upload.MaxBytes != DefaultMaxUploadBytes {
		t.Errorf("upload.max_bytes: got %d, want %d", cfg.Server.Upload.MaxBytes, DefaultMaxUploadBytes)
	}
	if cfg.Server.Stream.Interval != DefaultStreamInterval {
		t.Errorf("stream.interval: got %v, want %v", cfg.Server.Stream.Interval, DefaultStreamInterval)
	}
	if len(cfg.Server.CORS.AllowedOrigins) != 2 {
		t.Errorf("cors.allowed_origins: got %v, want the two local dev origins", cfg.Server.CORS.AllowedOrigins)
	}
	if cfg.Data.Refresh != DefaultRefresh {
		t.Errorf("data.refresh: got %v, want %v", cfg.Data.Refresh, DefaultRefresh)
	}
}

func TestLoad_Full(t *testing.T) {
	p := writeConfig(t, `log_level: debug
server:
  http_port: 9091
  auth:
    mode: apikey
    key_env: MY_KEY
    header: X-Trialdash-Key
  cors:
    allowed_origins: ["https://dash.example.com"]
  upload:
    max_bytes: 2048
  stream:
    interval: 2s
data:
  path: /data/trials.xlsx
  watch: true
alerts:
  rules:
    - name: overloaded
      condition: "status == overloaded"
      severity: critical
      cooldown: 1h
  webhooks:
    - type: slack
      url_env: SLACK_URL
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != 9091 {
		t.Errorf("http_port: got %d, want 9091", cfg.Server.HTTPPort)
	}
	if cfg.Server.Auth.EffectiveHeader() != "X-Trialdash-Key" {
		t.Errorf("header: got %q", cfg.Server.Auth.EffectiveHeader())
	}
	if got := cfg.Server.CORS.AllowedOrigins; len(got) != 1 || got[0] != "https://dash.example.com" {
		t.Errorf("cors: got %v", got)
	}
	if cfg.Server.Stream.Interval != 2*time.Second {
		t.Errorf("stream.interval: got %v, want 2s", cfg.Server.Stream.Interval)
	}
	if !cfg.Data.Watch || cfg.Data.Path != "/data/trials.xlsx" {
		t.Errorf("data: got %+v", cfg.Data)
	}
	if len(cfg.Alerts.Rules) != 1 || cfg.Alerts.Rules[0].Cooldown != time.Hour {
		t.Errorf("alerts.rules: got %+v", cfg.Alerts.Rules)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("Level: got %v, want debug", cfg.Level())
	}
}

func TestLoad_DefaultHeader(t *testing.T) {
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: K
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h := cfg.Server.Auth.EffectiveHeader(); h != "X-API-Key" {
		t.Errorf("EffectiveHeader: got %q, want X-API-Key", h)
	}
}

func TestLoad_EnvResolution(t *testing.T) {
	t.Setenv("TEST_SERVER_KEY", "supersecret")
	t.Setenv("TEST_DATA_TOKEN", "tok")
	t.Setenv("TEST_HOOK", "https://hooks.example.com/x")
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: TEST_SERVER_KEY
data:
  url: https://example.com/data.json
  auth:
    mode: bearer
    token_env: TEST_DATA_TOKEN
alerts:
  webhooks:
    - type: http
      url_env: TEST_HOOK
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if k := cfg.Server.Auth.Key(); k != "supersecret" {
		t.Errorf("Key(): got %q, want supersecret", k)
	}
	if tok := cfg.Data.Auth.Token(); tok != "tok" {
		t.Errorf("Token(): got %q, want tok", tok)
	}
	if u := cfg.Alerts.Webhooks[0].URL(); u != "https://hooks.example.com/x" {
		t.Errorf("URL(): got %q", u)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown auth mode", "server:\n  auth:\n    mode: oauth2\n"},
		{"port out of range", "server:\n  http_port: 70000\n"},
		{"unknown log level", "log_level: loud\n"},
		{"watch without path", "data:\n  watch: true\n"},
		{"unknown data auth", "data:\n  url: http://x\n  auth:\n    mode: kerberos\n"},
		{"rule without name", "alerts:\n  rules:\n    - condition: \"net < 0\"\n"},
		{"malformed condition", "alerts:\n  rules:\n    - name: r\n      condition: \"net<0\"\n"},
		{"unknown webhook", "alerts:\n  webhooks:\n    - type: carrier-pigeon\n"},
		{"bad yaml", "server: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.content)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	p := writeConfig(t, "log_level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, p, func(c *Config) { got <- c })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(p, []byte("log_level: debug\n"), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	// A truncate and a write may arrive as separate events; wait for the
	// reload that sees the new content.
	timeout := time.After(3 * time.Second)
	for reloaded := false; !reloaded; {
		select {
		case c := <-got:
			reloaded = c.Level() == slog.LevelDebug
		case <-timeout:
			t.Fatal("timed out waiting for reload with log_level debug")
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch returned %v, want nil", err)
	}
}
