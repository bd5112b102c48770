package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"lazyresolve/internal/engine/storage"
)

const (
	RetentionStrong = "strong"
	RetentionSoft   = "soft"
)

type Config struct {
	Version       int           `toml:"version"`
	Sources       Sources       `toml:"sources"`
	Resolve       Resolve       `toml:"resolve"`
	DB            Database      `toml:"db"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
	Log           Log           `toml:"log"`
}

type Sources struct {
	Roots    []string `toml:"roots"`
	Include  []string `toml:"include"`
	Exclude  Exclude  `toml:"exclude"`
	GoModule string   `toml:"go_module"`
}

// Exclude patterns match base names; dirs prune the walk.
type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Resolve struct {
	Builtins       []string `toml:"builtins"`
	DefaultImports []string `toml:"default_imports"`
	Retention      string   `toml:"retention"`
	SoftCapacity   int      `toml:"soft_capacity"`
	ForceResolve   *bool    `toml:"force_resolve"`
	ParseWorkers   int      `toml:"parse_workers"`
}

type Database struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
	ProjectKey  string        `toml:"project_key"`
	KeepRuns    int           `toml:"keep_runs"`
}

type Watch struct {
	Enabled           bool          `toml:"enabled"`
	Debounce          time.Duration `toml:"debounce"`
	RebuildsPerSecond float64       `toml:"rebuilds_per_second"`
	RebuildBurst      int           `toml:"rebuild_burst"`
}

type Observability struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	ServiceName  string `toml:"service_name"`
}

type Log struct {
	Level string `toml:"level"`
}

// ShouldForceResolve defaults to true when force_resolve is absent.
func (r Resolve) ShouldForceResolve() bool {
	return r.ForceResolve == nil || *r.ForceResolve
}

func (r Resolve) RetentionMode() storage.Retention {
	if strings.EqualFold(strings.TrimSpace(r.Retention), RetentionSoft) {
		return storage.Soft
	}
	return storage.Strong
}

// DefaultConfig is the configuration used when no file is given.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	applyDefaults(&cfg)
	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, errs[0]
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if len(cfg.Sources.Roots) == 0 {
		cfg.Sources.Roots = []string{"."}
	}
	if cfg.Sources.Exclude.Dirs == nil {
		cfg.Sources.Exclude.Dirs = []string{".git", "node_modules", "vendor", "testdata", "__pycache__", ".venv"}
	}

	if strings.TrimSpace(cfg.Resolve.Retention) == "" {
		cfg.Resolve.Retention = RetentionStrong
	}
	if cfg.Resolve.SoftCapacity <= 0 {
		cfg.Resolve.SoftCapacity = storage.DefaultSoftCapacity
	}
	if cfg.Resolve.ParseWorkers <= 0 {
		cfg.Resolve.ParseWorkers = 4
	}

	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = ".lazyresolve/symbols.db"
	}
	if cfg.DB.BusyTimeout <= 0 {
		cfg.DB.BusyTimeout = 5 * time.Second
	}
	if strings.TrimSpace(cfg.DB.ProjectKey) == "" {
		cfg.DB.ProjectKey = "default"
	}
	if cfg.DB.KeepRuns <= 0 {
		cfg.DB.KeepRuns = 5
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.RebuildsPerSecond <= 0 {
		cfg.Watch.RebuildsPerSecond = 1
	}
	if cfg.Watch.RebuildBurst <= 0 {
		cfg.Watch.RebuildBurst = 1
	}

	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "lazyresolve"
	}

	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
}
