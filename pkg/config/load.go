package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/stemplan/pkg/errors"
	"github.com/matzehuels/stemplan/pkg/solver"
)

// Path returns the default config file location.
func Path() string {
	return filepath.Join(configHome(), "stemplan", "config.toml")
}

func configHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config")
	}
	return "."
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "stemplan")
	}
	return filepath.Join(os.TempDir(), "stemplan-cache")
}

// Load reads the file at path, applies environment overrides and defaults
// and validates the result. An empty path means Path(). A missing file at
// the default location is not an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = Path()
	}

	cfg := &Config{}
	md, err := toml.DecodeFile(path, cfg)
	switch {
	case err == nil:
		if keys := md.Undecoded(); len(keys) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown key %s", path, keys[0])
		}
	case os.IsNotExist(err) && !explicit:
		cfg = &Config{}
	case os.IsNotExist(err):
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file")
	default:
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.interpolate()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode parses TOML text without reading the environment.
func Decode(data string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.Decode(data, cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// binding ties one environment variable to one field.
type binding struct {
	name string
	set  func(string) error
}

func (c *Config) bindings() []binding {
	return []binding{
		{"CANVAS_WIDTH", floatVar(&c.Canvas.Width)},
		{"CANVAS_HEIGHT", floatVar(&c.Canvas.Height)},
		{"CANVAS_MARGIN", floatVar(&c.Canvas.Margin)},
		{"ORCHESTRATOR_SIMPLE_THRESHOLD", floatVar(&c.Orchestrator.SimpleThreshold)},
		{"ORCHESTRATOR_COMPLEX_THRESHOLD", floatVar(&c.Orchestrator.ComplexThreshold)},
		{"ORCHESTRATOR_MAX_ATTEMPTS", intVar(&c.Orchestrator.MaxAttempts)},
		{"ORCHESTRATOR_DISABLED", kindsVar(&c.Orchestrator.Disabled)},
		{"CACHE_BACKEND", stringVar(&c.Cache.Backend)},
		{"CACHE_DIR", stringVar(&c.Cache.Dir)},
		{"CACHE_REDIS_URL", stringVar(&c.Cache.RedisURL)},
		{"CACHE_TTL", durationVar(&c.Cache.TTL.Duration)},
		{"CACHE_PREFIX", stringVar(&c.Cache.Prefix)},
		{"STORE_DSN", stringVar(&c.Store.DSN)},
		{"ARCHIVE_MONGO_URI", stringVar(&c.Archive.MongoURI)},
		{"ARCHIVE_DATABASE", stringVar(&c.Archive.Database)},
		{"NOTIFY_MQTT_URL", stringVar(&c.Notify.MQTTURL)},
		{"NOTIFY_TOPIC", stringVar(&c.Notify.Topic)},
		{"NOTIFY_CLIENT_ID", stringVar(&c.Notify.ClientID)},
		{"SERVER_ADDR", stringVar(&c.Server.Addr)},
	}
}

// EnvNames lists every supported override variable.
func EnvNames() []string {
	var c Config
	bs := c.bindings()
	names := make([]string, len(bs))
	for i, b := range bs {
		names[i] = EnvPrefix + b.name
	}
	return names
}

// applyEnv overrides fields from STEMPLAN_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, b := range c.bindings() {
		v, ok := lookup(EnvPrefix + b.name)
		if !ok {
			continue
		}
		if err := b.set(v); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s%s", EnvPrefix, b.name)
		}
	}
	return nil
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// expand replaces ${NAME} with the value of NAME. Unset variables are left
// as written.
func expand(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(m string) string {
		if v, ok := os.LookupEnv(m[2 : len(m)-1]); ok {
			return v
		}
		return m
	})
}

func (c *Config) interpolate() {
	for _, p := range []*string{
		&c.Cache.Dir, &c.Cache.RedisURL, &c.Store.DSN,
		&c.Archive.MongoURI, &c.Notify.MQTTURL, &c.Server.Addr,
	} {
		*p = expand(*p)
	}
}

func stringVar(p *string) func(string) error {
	return func(v string) error { *p = v; return nil }
}

func floatVar(p *float64) func(string) error {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			*p = f
		}
		return err
	}
}

func intVar(p *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err == nil {
			*p = n
		}
		return err
	}
}

func durationVar(p *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err == nil {
			*p = d
		}
		return err
	}
}

// kindsVar parses a comma-separated back-end list.
func kindsVar(p *[]solver.Kind) func(string) error {
	return func(v string) error {
		*p = nil
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				*p = append(*p, solver.Kind(s))
			}
		}
		return nil
	}
}
