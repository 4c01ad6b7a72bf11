// Package config loads server and operator CLI configuration from the
// environment and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Server holds biosync-server configuration.
type Server struct {
	// HTTPAddr is the listen address of the API (e.g. :8081).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// DatabaseURL is the Postgres DSN. When empty the API answers 503 and no worker runs.
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	MigrateOnStart bool   `mapstructure:"MIGRATE_ON_START"`

	// SyncEnabled mirrors the attendance settings switch: when false, runs complete without contacting devices.
	SyncEnabled bool `mapstructure:"SYNC_ENABLED"`
	// SyncInterval is how often a scheduled run is enqueued; 0 disables the schedule.
	SyncInterval     time.Duration `mapstructure:"SYNC_INTERVAL"`
	SyncPollInterval time.Duration `mapstructure:"SYNC_POLL_INTERVAL"`
	SyncMaxRuntime   time.Duration `mapstructure:"SYNC_MAX_RUNTIME"`
	// DeviceTimeout bounds a single device pull.
	DeviceTimeout time.Duration `mapstructure:"DEVICE_TIMEOUT"`
	SyncWorkers   int           `mapstructure:"SYNC_WORKERS"`

	// KafkaBrokers is a comma-separated broker list; sync events are only published when set.
	KafkaBrokers    string `mapstructure:"KAFKA_BROKERS"`
	SyncEventsTopic string `mapstructure:"SYNC_EVENTS_TOPIC"`
}

// LoadServer reads .env (if present) and the environment into a Server config.
func LoadServer() (*Server, error) {
	v := newViper()

	v.SetDefault("HTTP_ADDR", ":8081")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("MIGRATE_ON_START", true)
	v.SetDefault("SYNC_ENABLED", true)
	v.SetDefault("SYNC_INTERVAL", "15m")
	v.SetDefault("SYNC_POLL_INTERVAL", "1s")
	v.SetDefault("SYNC_MAX_RUNTIME", "10m")
	v.SetDefault("DEVICE_TIMEOUT", "30s")
	v.SetDefault("SYNC_WORKERS", 4)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("SYNC_EVENTS_TOPIC", "biosync-sync-events")

	var cfg Server
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.SyncInterval < 0 {
		return nil, errors.New("config: SYNC_INTERVAL must not be negative")
	}
	if cfg.SyncWorkers < 0 {
		return nil, errors.New("config: SYNC_WORKERS must not be negative")
	}
	return &cfg, nil
}

// KafkaBrokersList returns the broker addresses from the comma-separated config.
func (c *Server) KafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.KafkaBrokers)
}

// Client holds configuration of the biosync operator CLI.
type Client struct {
	// APIURL is the base URL of biosync-server.
	APIURL string `mapstructure:"BIOSYNC_API_URL"`
	// Timezone is an IANA zone name used to display timestamps; "Local" uses the host zone.
	Timezone    string        `mapstructure:"BIOSYNC_TIMEZONE"`
	TimeFormat  string        `mapstructure:"BIOSYNC_TIME_FORMAT"`
	HTTPTimeout time.Duration `mapstructure:"BIOSYNC_HTTP_TIMEOUT"`
	LogLevel    string        `mapstructure:"BIOSYNC_LOG_LEVEL"`
	// LogFile receives CLI logs; empty discards them.
	LogFile string `mapstructure:"BIOSYNC_LOG_FILE"`
}

// LoadClient builds a Client config from v, which callers may have bound to
// command-line flags. A nil v reads only .env and the environment.
func LoadClient(v *viper.Viper) (*Client, error) {
	if v == nil {
		v = newViper()
	}

	v.SetDefault("BIOSYNC_API_URL", "http://localhost:8081")
	v.SetDefault("BIOSYNC_TIMEZONE", "Local")
	v.SetDefault("BIOSYNC_TIME_FORMAT", "02-01-2006 15:04:05")
	v.SetDefault("BIOSYNC_HTTP_TIMEOUT", "10s")
	v.SetDefault("BIOSYNC_LOG_LEVEL", "info")
	v.SetDefault("BIOSYNC_LOG_FILE", "")

	var cfg Client
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	u, err := url.Parse(strings.TrimSpace(cfg.APIURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("config: BIOSYNC_API_URL must be an absolute URL (got %q)", cfg.APIURL)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	return &cfg, nil
}

// Location resolves Timezone.
func (c *Client) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("config: BIOSYNC_TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

// NewViper returns a Viper instance reading .env and the environment, for
// callers that want to bind flags before LoadClient.
func NewViper() *viper.Viper {
	return newViper()
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // missing .env is fine

	v.AutomaticEnv()
	return v
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
