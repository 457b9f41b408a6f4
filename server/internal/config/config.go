package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort       = 8000
	DefaultMaxUploadBytes = 10 << 20
	DefaultStreamInterval = 5 * time.Second
	DefaultRefresh        = 5 * time.Minute
)

// DefaultAllowedOrigins are the local UI dev servers.
var DefaultAllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// Config is the top-level trialdash configuration.
type Config struct {
	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	Server ServerConfig `yaml:"server"`
	Data   DataConfig   `yaml:"data"`
	Alerts AlertsConfig `yaml:"alerts"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API and WebSocket hub listen on (default 8000).
	HTTPPort int `yaml:"http_port"`

	// Auth configures how dataset uploads are authenticated.
	Auth AuthConfig `yaml:"auth"`

	CORS   CORSConfig   `yaml:"cors"`
	Upload UploadConfig `yaml:"upload"`
	Stream StreamConfig `yaml:"stream"`
}

// AuthConfig controls client authentication on mutating endpoints.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header to read the key from. Defaults to "X-API-Key".
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "X-API-Key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "X-API-Key"
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// UploadConfig bounds dataset uploads.
type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

// StreamConfig controls the WebSocket dashboard stream.
type StreamConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// DataConfig describes where the server loads its dataset from besides uploads.
type DataConfig struct {
	// Path is a .json or .xlsx dataset loaded at startup.
	Path string `yaml:"path"`

	// Watch reloads Path whenever the file changes.
	Watch bool `yaml:"watch"`

	// URL is fetched at startup and every Refresh when set.
	URL string `yaml:"url"`

	// Refresh is the polling interval for URL (default 5m).
	Refresh time.Duration `yaml:"refresh"`

	// Auth configures how the server authenticates to URL.
	Auth SourceAuthConfig `yaml:"auth"`

	// TLS holds optional TLS dial options for URL.
	TLS TLSConfig `yaml:"tls"`
}

// SourceAuthConfig specifies how to authenticate to a remote dataset.
type SourceAuthConfig struct {
	// Mode is one of: apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// Header is the HTTP header name to send the key in (apikey mode).
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`

	// TokenEnv is the name of the environment variable that holds the bearer token.
	TokenEnv string `yaml:"token_env"`

	// Username is the literal basic-auth username.
	Username string `yaml:"username"`
	// PasswordEnv is the name of the environment variable that holds the password.
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
func (a SourceAuthConfig) Key() string { return env(a.KeyEnv) }

// Token returns the bearer token value resolved from the environment.
func (a SourceAuthConfig) Token() string { return env(a.TokenEnv) }

// Password returns the basic-auth password resolved from the environment.
func (a SourceAuthConfig) Password() string { return env(a.PasswordEnv) }

// TLSConfig holds TLS dial options for remote datasets.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based alert condition.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression evaluated per area and quarter:
	// "net < -1", "demand > 4", "status == overloaded".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | pagerduty | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string { return env(w.URLEnv) }

func env(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

// Level maps LogLevel to a slog.Level, defaulting to info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads and parses the config file at path.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config pre-populated with default values.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			CORS: CORSConfig{
				AllowedOrigins: append([]string(nil), DefaultAllowedOrigins...),
			},
			Upload: UploadConfig{MaxBytes: DefaultMaxUploadBytes},
			Stream: StreamConfig{Interval: DefaultStreamInterval},
		},
		Data: DataConfig{Refresh: DefaultRefresh},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		return fmt.Errorf("log_level %q unknown: want debug|info|warn|error", cfg.LogLevel)
	}
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	switch cfg.Server.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", cfg.Server.Auth.Mode)
	}
	if cfg.Server.Upload.MaxBytes <= 0 {
		return fmt.Errorf("server.upload.max_bytes must be positive")
	}
	if cfg.Server.Stream.Interval <= 0 {
		return fmt.Errorf("server.stream.interval must be positive")
	}
	if cfg.Data.Watch && cfg.Data.Path == "" {
		return fmt.Errorf("data.watch requires data.path")
	}
	if cfg.Data.URL != "" && cfg.Data.Refresh <= 0 {
		return fmt.Errorf("data.refresh must be positive when data.url is set")
	}
	switch cfg.Data.Auth.Mode {
	case "apikey", "bearer", "basic", "none", "":
	default:
		return fmt.Errorf("data.auth.mode %q unknown: want apikey|bearer|basic|none", cfg.Data.Auth.Mode)
	}
	for i, r := range cfg.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("alerts.rules[%d]: name is required", i)
		}
		if len(strings.Fields(r.Condition)) != 3 {
			return fmt.Errorf("alerts.rules[%d] %q: condition %q must be \"field op value\"", i, r.Name, r.Condition)
		}
		switch r.Severity {
		case "critical", "warning", "info", "":
		default:
			return fmt.Errorf("alerts.rules[%d] %q: unknown severity %q", i, r.Name, r.Severity)
		}
	}
	for i, w := range cfg.Alerts.Webhooks {
		switch w.Type {
		case "teams", "slack", "pagerduty", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: unknown type %q", i, w.Type)
		}
	}
	return nil
}
