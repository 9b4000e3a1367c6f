package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/matzehuels/stemplan/pkg/cache"
	"github.com/matzehuels/stemplan/pkg/errors"
	"github.com/matzehuels/stemplan/pkg/layout"
	"github.com/matzehuels/stemplan/pkg/solver"
)

const sample = `
[canvas]
width = 1024
height = 768

[orchestrator]
simple_threshold = 0.25
complex_threshold = 0.7
max_attempts = 2
disabled = ["geometry"]

[cache]
backend = "redis"
redis_url = "redis://localhost:6379/0"
ttl = "1h"
prefix = "staging:"

[store]
dsn = "sqlite:///tmp/stemplan.db"

[notify]
mqtt_url = "tcp://localhost:1883"
`

func TestDecode(t *testing.T) {
	cfg, err := Decode(sample)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if c := cfg.Canvas.Layout(); c.Width != 1024 || c.Height != 768 || c.Margin != layout.DefaultMargin {
		t.Errorf("canvas = %+v", c)
	}
	o := cfg.Orchestrator
	if o.SimpleThreshold != 0.25 || o.ComplexThreshold != 0.7 || o.MaxAttempts != 2 {
		t.Errorf("orchestrator = %+v", o)
	}
	if !slices.Equal(o.Disabled, []solver.Kind{solver.KindGeometry}) {
		t.Errorf("disabled = %v", o.Disabled)
	}
	if cfg.Cache.TTL.Duration != time.Hour || cfg.Cache.Options().Backend != "redis" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Cache.Prefix != "staging:" {
		t.Errorf("cache prefix = %q", cfg.Cache.Prefix)
	}
	if cfg.Server.Addr != DefaultServerAddr || cfg.Notify.Topic != DefaultNotifyTopic {
		t.Errorf("defaults not applied: server %q topic %q", cfg.Server.Addr, cfg.Notify.Topic)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Cache.Backend != DefaultCacheBackend || cfg.Cache.TTL.Duration != DefaultCacheTTL {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Orchestrator.MaxAttempts != 3 {
		t.Errorf("max_attempts = %d", cfg.Orchestrator.MaxAttempts)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"InvertedThresholds", "[orchestrator]\nsimple_threshold = 0.8\ncomplex_threshold = 0.4\n"},
		{"UnknownBackend", "[cache]\nbackend = \"memcached\"\n"},
		{"RedisWithoutURL", "[cache]\nbackend = \"redis\"\n"},
		{"BadDSN", "[store]\ndsn = \"mysql://x\"\n"},
		{"BadMongo", "[archive]\nmongo_uri = \"http://x\"\n"},
		{"BadMQTT", "[notify]\nmqtt_url = \"http://x\"\n"},
		{"NoRoom", "[canvas]\nwidth = 80\nmargin = 50\n"},
		{"UnknownKind", "[orchestrator]\ndisabled = [\"quantum\"]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.toml)
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Decode() error = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"STEMPLAN_ORCHESTRATOR_MAX_ATTEMPTS": "5",
		"STEMPLAN_ORCHESTRATOR_DISABLED":     "smt, symbolic",
		"STEMPLAN_CACHE_TTL":                 "90m",
		"STEMPLAN_CACHE_PREFIX":              "team-a:",
		"STEMPLAN_SERVER_ADDR":               "127.0.0.1:9000",
		"STEMPLAN_CANVAS_WIDTH":              "640",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := &Config{}
	if err := cfg.applyEnv(lookup); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.Orchestrator.MaxAttempts != 5 || cfg.Canvas.Width != 640 || cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.Cache.TTL.Duration != 90*time.Minute {
		t.Errorf("ttl = %v", cfg.Cache.TTL)
	}
	if cfg.Cache.Prefix != "team-a:" {
		t.Errorf("prefix = %q", cfg.Cache.Prefix)
	}
	if !slices.Equal(cfg.Orchestrator.Disabled, []solver.Kind{solver.KindSMT, solver.KindSymbolic}) {
		t.Errorf("disabled = %v", cfg.Orchestrator.Disabled)
	}

	env = map[string]string{"STEMPLAN_ORCHESTRATOR_MAX_ATTEMPTS": "many"}
	if err := (&Config{}).applyEnv(lookup); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("bad int error = %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := "[cache]\nbackend = \"file\"\ndir = \"${STEMPLAN_TEST_CACHE}/plans\"\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STEMPLAN_TEST_CACHE", dir)
	t.Setenv("STEMPLAN_ORCHESTRATOR_MAX_ATTEMPTS", "4")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.Dir != filepath.Join(dir, "plans") {
		t.Errorf("cache dir = %q", cfg.Cache.Dir)
	}
	if cfg.Orchestrator.MaxAttempts != 4 {
		t.Errorf("max_attempts = %d, want env override", cfg.Orchestrator.MaxAttempts)
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing explicit file error = %v", err)
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("[cache]\nbakend = \"file\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("unknown key error = %v", err)
	}
}

func TestLoadDefaultLocation(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load without a file: %v", err)
	}
	if cfg.Server.Addr != DefaultServerAddr {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if filepath.Base(Path()) != "config.toml" {
		t.Errorf("Path() = %q", Path())
	}
}

func TestEnvNames(t *testing.T) {
	names := EnvNames()
	if !slices.Contains(names, "STEMPLAN_CACHE_REDIS_URL") || !slices.Contains(names, "STEMPLAN_STORE_DSN") {
		t.Errorf("EnvNames() = %v", names)
	}
}

func TestCacheKeyer(t *testing.T) {
	opts := cache.PlanKeyOpts{}
	plain := CacheConfig{}.Keyer().PlanKey("abc", opts)
	tests := []struct {
		prefix string
		want   string
	}{
		{"", plain},
		{"staging:", "staging:" + plain},
	}
	for _, tt := range tests {
		if got := (CacheConfig{Prefix: tt.prefix}).Keyer().PlanKey("abc", opts); got != tt.want {
			t.Errorf("prefix %q: PlanKey = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}
