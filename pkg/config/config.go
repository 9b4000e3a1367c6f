// Package config loads stemplan's TOML configuration file.
//
// The file lives at $XDG_CONFIG_HOME/stemplan/config.toml (falling back to
// ~/.config/stemplan/config.toml) unless a path is given explicitly. Every
// field can be overridden from the environment with a STEMPLAN_ variable
// named after its section and key:
//
//	[orchestrator]
//	max_attempts = 3        # STEMPLAN_ORCHESTRATOR_MAX_ATTEMPTS
//
//	[cache]
//	backend = "redis"       # STEMPLAN_CACHE_BACKEND
//	redis_url = "${REDIS_URL}"
//
// String values may reference environment variables with ${NAME}.
package config

import (
	"time"

	"github.com/matzehuels/stemplan/pkg/cache"
	"github.com/matzehuels/stemplan/pkg/errors"
	"github.com/matzehuels/stemplan/pkg/layout"
	"github.com/matzehuels/stemplan/pkg/orchestrator"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STEMPLAN_"

// Config is the complete configuration.
type Config struct {
	Canvas       CanvasConfig        `toml:"canvas"`
	Orchestrator orchestrator.Config `toml:"orchestrator"`
	Cache        CacheConfig         `toml:"cache"`
	Store        StoreConfig         `toml:"store"`
	Archive      ArchiveConfig       `toml:"archive"`
	Notify       NotifyConfig        `toml:"notify"`
	Server       ServerConfig        `toml:"server"`
}

// CanvasConfig sets the default drawing area.
type CanvasConfig struct {
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
	Margin float64 `toml:"margin"`
}

// Layout returns the canvas with defaults filled in.
func (c CanvasConfig) Layout() layout.Canvas {
	return layout.Canvas{Width: c.Width, Height: c.Height, Margin: c.Margin}.WithDefaults()
}

// CacheConfig selects the plan and result cache.
type CacheConfig struct {
	Backend  string   `toml:"backend"` // file, redis or none
	Dir      string   `toml:"dir"`
	RedisURL string   `toml:"redis_url"`
	TTL      Duration `toml:"ttl"`
	// Prefix scopes every key, e.g. "staging:" when deployments share Redis.
	Prefix string `toml:"prefix"`
}

// Options converts the section to cache options.
func (c CacheConfig) Options() cache.Options {
	return cache.Options{Backend: c.Backend, Dir: c.Dir, RedisURL: c.RedisURL}
}

// Keyer returns the cache keyer, scoped when a prefix is set.
func (c CacheConfig) Keyer() cache.Keyer {
	if c.Prefix == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(cache.NewDefaultKeyer(), c.Prefix)
}

// StoreConfig points at the attempt-history database.
type StoreConfig struct {
	DSN string `toml:"dsn"` // sqlite://path or postgres://...
}

// ArchiveConfig points at the MongoDB result archive.
type ArchiveConfig struct {
	MongoURI string `toml:"mongo_uri"`
	Database string `toml:"database"`
}

// NotifyConfig configures MQTT result notifications.
type NotifyConfig struct {
	MQTTURL  string `toml:"mqtt_url"`
	Topic    string `toml:"topic"`
	ClientID string `toml:"client_id"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Duration is a time.Duration written as a string such as "24h".
type Duration struct{ time.Duration }

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults used when the file and the environment leave a field unset.
const (
	DefaultCacheTTL     = 24 * time.Hour
	DefaultServerAddr   = ":8080"
	DefaultArchiveDB    = "stemplan"
	DefaultNotifyTopic  = "stemplan/results"
	DefaultMQTTClientID = "stemplan"
	DefaultCacheBackend = cache.BackendFile
)

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{
		Canvas: CanvasConfig{
			Width:  layout.DefaultCanvas().Width,
			Height: layout.DefaultCanvas().Height,
			Margin: layout.DefaultCanvas().Margin,
		},
		Orchestrator: orchestrator.DefaultConfig(),
	}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills zero fields.
func (c *Config) applyDefaults() {
	c.Orchestrator = c.Orchestrator.WithDefaults()
	if c.Cache.Backend == "" {
		c.Cache.Backend = DefaultCacheBackend
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = defaultCacheDir()
	}
	if c.Cache.TTL.Duration == 0 {
		c.Cache.TTL.Duration = DefaultCacheTTL
	}
	if c.Archive.Database == "" {
		c.Archive.Database = DefaultArchiveDB
	}
	if c.Notify.Topic == "" {
		c.Notify.Topic = DefaultNotifyTopic
	}
	if c.Notify.ClientID == "" {
		c.Notify.ClientID = DefaultMQTTClientID
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
}

// Validate checks thresholds, the cache backend and service URLs.
func (c *Config) Validate() error {
	if err := c.Orchestrator.Validate(); err != nil {
		return err
	}
	canvas := c.Canvas.Layout()
	if canvas.Width <= 2*canvas.Margin || canvas.Height <= 2*canvas.Margin {
		return errors.New(errors.ErrCodeInvalidConfig, "canvas %gx%g leaves no room inside margin %g",
			canvas.Width, canvas.Height, canvas.Margin)
	}
	switch c.Cache.Backend {
	case cache.BackendFile, cache.BackendNone:
	case cache.BackendRedis:
		if err := errors.ValidateURL(c.Cache.RedisURL, "redis", "rediss"); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "cache.redis_url")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q (must be one of: file, redis, none)", c.Cache.Backend)
	}
	if c.Store.DSN != "" {
		if err := errors.ValidateURL(c.Store.DSN, "sqlite", "postgres", "postgresql"); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "store.dsn")
		}
	}
	if c.Archive.MongoURI != "" {
		if err := errors.ValidateURL(c.Archive.MongoURI, "mongodb", "mongodb+srv"); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "archive.mongo_uri")
		}
	}
	if c.Notify.MQTTURL != "" {
		if err := errors.ValidateURL(c.Notify.MQTTURL, "tcp", "ssl", "ws", "wss", "mqtt", "mqtts"); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "notify.mqtt_url")
		}
	}
	return nil
}
