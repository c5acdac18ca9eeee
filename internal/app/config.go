package app

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// UpstreamAPIBase has no default on purpose: the relay answers a fixed
	// 500 for every endpoint until it is configured.
	UpstreamAPIBase   string        `envconfig:"UPSTREAM_API_BASE"`
	UpstreamClientTag string        `envconfig:"UPSTREAM_CLIENT_TAG" default:"autospec-v2"`
	UpstreamTimeout   time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"10s"`

	DashTimeZone string        `envconfig:"DASH_TZ" default:"Australia/Perth"`
	DashCacheTTL time.Duration `envconfig:"DASH_CACHE_TTL" default:"1m"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	cfg.UpstreamAPIBase = NormalizeBaseURL(cfg.UpstreamAPIBase)
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// NormalizeBaseURL trims whitespace, strips trailing slashes and prepends
// https:// when no scheme is present. Empty input stays empty, which the
// relay treats as "not configured".
func NormalizeBaseURL(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	trimmed = strings.TrimRight(trimmed, "/")
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "http") {
		return trimmed
	}
	return "https://" + trimmed
}
