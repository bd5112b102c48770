package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gobwas/glob"

	"lazyresolve/internal/engine/syntax"
)

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d", cfg.Version)
	}
	return nil
}

func validateSources(cfg *Config) error {
	for i, root := range cfg.Sources.Roots {
		if strings.TrimSpace(root) == "" {
			return fmt.Errorf("sources.roots[%d] must not be empty", i)
		}
	}
	for i, pattern := range cfg.Sources.Include {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return fmt.Errorf("sources.include[%d] %q: %w", i, pattern, err)
		}
	}
	for i, pattern := range cfg.Sources.Exclude.Dirs {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("sources.exclude.dirs[%d] %q: %w", i, pattern, err)
		}
	}
	for i, pattern := range cfg.Sources.Exclude.Files {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("sources.exclude.files[%d] %q: %w", i, pattern, err)
		}
	}
	if strings.ContainsAny(cfg.Sources.GoModule, " \t\\") {
		return fmt.Errorf("sources.go_module %q is not a module path", cfg.Sources.GoModule)
	}
	return nil
}

func validateResolve(cfg *Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Resolve.Retention)) {
	case RetentionStrong, RetentionSoft:
	default:
		return fmt.Errorf("resolve.retention must be %q or %q, got %q", RetentionStrong, RetentionSoft, cfg.Resolve.Retention)
	}
	if cfg.Resolve.SoftCapacity < 1 {
		return fmt.Errorf("resolve.soft_capacity must be >= 1")
	}
	if cfg.Resolve.ParseWorkers < 1 {
		return fmt.Errorf("resolve.parse_workers must be >= 1")
	}
	for i, path := range cfg.Resolve.DefaultImports {
		if _, err := syntax.ParseImportPath(path); err != nil {
			return fmt.Errorf("resolve.default_imports[%d]: %w", i, err)
		}
	}
	for i, builtin := range cfg.Resolve.Builtins {
		if strings.TrimSpace(builtin) == "" || strings.Contains(builtin, ".") {
			return fmt.Errorf("resolve.builtins[%d] %q must be a simple name", i, builtin)
		}
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	if !cfg.DB.Enabled {
		return nil
	}
	if strings.TrimSpace(cfg.DB.Path) == "" {
		return fmt.Errorf("db.path must not be empty when db.enabled is true")
	}
	if cfg.DB.BusyTimeout <= 0 {
		return fmt.Errorf("db.busy_timeout must be > 0")
	}
	if cfg.DB.KeepRuns < 1 {
		return fmt.Errorf("db.keep_runs must be >= 1")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if cfg.Watch.RebuildsPerSecond <= 0 {
		return fmt.Errorf("watch.rebuilds_per_second must be > 0")
	}
	if cfg.Watch.RebuildBurst < 1 {
		return fmt.Errorf("watch.rebuild_burst must be >= 1")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	addr := strings.TrimSpace(cfg.Observability.MetricsAddr)
	if addr != "" && !strings.Contains(addr, ":") {
		return fmt.Errorf("observability.metrics_addr %q must be host:port", addr)
	}
	return nil
}

func validateLog(cfg *Config) error {
	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// ParseLevel maps a config level name onto slog.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo, err
	}
	return l, nil
}

// Validate runs every section check and returns all failures.
func Validate(cfg *Config) []error {
	var errs []error
	for _, check := range []func(*Config) error{
		validateVersion,
		validateSources,
		validateResolve,
		validateDatabase,
		validateWatch,
		validateObservability,
		validateLog,
	} {
		if err := check(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
