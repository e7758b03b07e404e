// Package config loads service configuration from the environment and the
// optional views file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	perrors "github.com/p-blackswan/allocation-timeline/internal/errors"
)

// Auth modes accepted by AUTH_MODE.
const (
	AuthNone   = "none"
	AuthAPIKey = "api-key"
	AuthJWT    = "jwt"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Calendar
	Timezone  string `envconfig:"TIMEZONE" default:"Local"`
	WeekStart string `envconfig:"WEEK_START" default:"sunday"`
	ViewsFile string `envconfig:"VIEWS_FILE"`

	// Storage
	DBPath            string        `envconfig:"DB_PATH" default:"timeline.db"`
	AuditRetention    time.Duration `envconfig:"AUDIT_RETENTION" default:"720h"`
	RetentionInterval time.Duration `envconfig:"RETENTION_INTERVAL" default:"1h"`

	// API
	ListenAddr     string `envconfig:"LISTEN_ADDR" default:":8080"`
	AuthMode       string `envconfig:"AUTH_MODE" default:"api-key"`
	APIKey         string `envconfig:"API_KEY"`
	JWTSecret      string `envconfig:"JWT_SECRET"`
	RateLimitRPS   int    `envconfig:"RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst int    `envconfig:"RATE_LIMIT_BURST" default:"200"`
	CORSOrigins    string `envconfig:"CORS_ORIGINS"`
	TLSCert        string `envconfig:"TLS_CERT"`
	TLSKey         string `envconfig:"TLS_KEY"`
	ViewCacheSize  int    `envconfig:"VIEW_CACHE_SIZE" default:"256"`
	GridCacheSize  int    `envconfig:"GRID_CACHE_SIZE" default:"128"`

	// Remote data service. Empty URL serves allocations from the local store.
	DataServiceURL     string        `envconfig:"DATA_SERVICE_URL"`
	DataServiceToken   string        `envconfig:"DATA_SERVICE_TOKEN"`
	DataServiceTimeout time.Duration `envconfig:"DATA_SERVICE_TIMEOUT" default:"10s"`
	DataServiceRetries int           `envconfig:"DATA_SERVICE_RETRIES" default:"3"`

	// Slack notices for failed data service calls (optional)
	SlackBotToken string `envconfig:"SLACK_BOT_TOKEN"`
	SlackChannel  string `envconfig:"SLACK_CHANNEL"`
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.WeekStartDay(); err != nil {
		return err
	}
	switch c.AuthMode {
	case AuthNone:
	case AuthAPIKey:
		if c.APIKey == "" {
			return perrors.Invalid("API_KEY is required when AUTH_MODE=%s", AuthAPIKey)
		}
	case AuthJWT:
		if c.JWTSecret == "" {
			return perrors.Invalid("JWT_SECRET is required when AUTH_MODE=%s", AuthJWT)
		}
	default:
		return perrors.Invalid("unknown AUTH_MODE %q", c.AuthMode)
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return perrors.Invalid("TLS_CERT and TLS_KEY must be set together")
	}
	return nil
}

// Location resolves TIMEZONE. Calendar dates and the wire date encoding are
// computed in this zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, perrors.Invalid("unknown TIMEZONE %q", c.Timezone)
	}
	return loc, nil
}

// WeekStartDay resolves WEEK_START.
func (c *Config) WeekStartDay() (time.Weekday, error) {
	return ParseWeekday(c.WeekStart)
}

// ParseWeekday accepts a full or three-letter English day name.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return time.Sunday, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return time.Sunday, perrors.Invalid("unknown week start %q", s)
}

// SlackEnabled returns true if Slack notices are configured.
func (c *Config) SlackEnabled() bool {
	return c.SlackBotToken != "" && c.SlackChannel != ""
}

// RemoteDataService returns true when allocations come from DATA_SERVICE_URL.
func (c *Config) RemoteDataService() bool {
	return c.DataServiceURL != ""
}

// CORSOriginList returns the parsed CORS origins.
func (c *Config) CORSOriginList() []string {
	if c.CORSOrigins == "" {
		return nil
	}
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// LoadWithPrefix reads configuration with a prefix.
func LoadWithPrefix(prefix string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("loading config with prefix %s: %w", prefix, err)
	}
	return &cfg, nil
}
