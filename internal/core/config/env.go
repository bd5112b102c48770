package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: LAZYRESOLVE_[SECTION]_[KEY] (e.g., LAZYRESOLVE_DB_PATH).
func ApplyEnvOverrides(cfg *Config) {
	// Sources
	setEnvList(&cfg.Sources.Roots, "LAZYRESOLVE_SOURCES_ROOTS")
	setEnvString(&cfg.Sources.GoModule, "LAZYRESOLVE_SOURCES_GO_MODULE")

	// Resolve
	setEnvString(&cfg.Resolve.Retention, "LAZYRESOLVE_RESOLVE_RETENTION")
	setEnvInt(&cfg.Resolve.SoftCapacity, "LAZYRESOLVE_RESOLVE_SOFT_CAPACITY")
	setEnvInt(&cfg.Resolve.ParseWorkers, "LAZYRESOLVE_RESOLVE_PARSE_WORKERS")
	setEnvList(&cfg.Resolve.DefaultImports, "LAZYRESOLVE_RESOLVE_DEFAULT_IMPORTS")
	if val, ok := os.LookupEnv("LAZYRESOLVE_RESOLVE_FORCE_RESOLVE"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			slog.Info("applying env override", "key", "LAZYRESOLVE_RESOLVE_FORCE_RESOLVE", "value", val)
			cfg.Resolve.ForceResolve = &b
		}
	}

	// Database
	setEnvBool(&cfg.DB.Enabled, "LAZYRESOLVE_DB_ENABLED")
	setEnvString(&cfg.DB.Path, "LAZYRESOLVE_DB_PATH")
	setEnvDuration(&cfg.DB.BusyTimeout, "LAZYRESOLVE_DB_BUSY_TIMEOUT")
	setEnvString(&cfg.DB.ProjectKey, "LAZYRESOLVE_DB_PROJECT_KEY")
	setEnvInt(&cfg.DB.KeepRuns, "LAZYRESOLVE_DB_KEEP_RUNS")

	// Watch
	setEnvBool(&cfg.Watch.Enabled, "LAZYRESOLVE_WATCH_ENABLED")
	setEnvDuration(&cfg.Watch.Debounce, "LAZYRESOLVE_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.RebuildsPerSecond, "LAZYRESOLVE_WATCH_REBUILDS_PER_SECOND")
	setEnvInt(&cfg.Watch.RebuildBurst, "LAZYRESOLVE_WATCH_REBUILD_BURST")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddr, "LAZYRESOLVE_OBSERVABILITY_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "LAZYRESOLVE_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvString(&cfg.Observability.ServiceName, "LAZYRESOLVE_OBSERVABILITY_SERVICE_NAME")

	setEnvString(&cfg.Log.Level, "LAZYRESOLVE_LOG_LEVEL")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Info("applying env override", "key", key, "value", val)
		*target = val
	}
}

// setEnvList splits a comma separated value; blank entries are dropped.
func setEnvList(target *[]string, key string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	slog.Info("applying env override", "key", key, "value", val)
	*target = out
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Info("applying env override", "key", key, "value", i)
			*target = i
		} else {
			slog.Warn("invalid env override", "key", key, "value", val, "error", err)
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			slog.Info("applying env override", "key", key, "value", b)
			*target = b
		} else {
			slog.Warn("invalid env override", "key", key, "value", val, "error", err)
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Info("applying env override", "key", key, "value", f)
			*target = f
		} else {
			slog.Warn("invalid env override", "key", key, "value", val, "error", err)
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Info("applying env override", "key", key, "value", d)
			*target = d
		} else {
			slog.Warn("invalid env override", "key", key, "value", val, "error", err)
		}
	}
}
