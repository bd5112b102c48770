package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	coreapp "lazyresolve/internal/core/app"
	"lazyresolve/internal/core/config"
	"lazyresolve/internal/shared/observability"
	"lazyresolve/internal/shared/util"
	"lazyresolve/internal/ui/report"
)

func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args)
	if err != nil {
		return 2
	}

	if opts.version {
		fmt.Fprintf(stdout, "lazyresolve v%s\n", versionString)
		return 0
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "failed to detect working directory: %v\n", err)
		return 1
	}

	cfg, cfgPath, err := loadConfig(opts.configPath, cwd)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}
	config.ApplyEnvOverrides(cfg)
	if err := applyModeOptions(&opts, cfg); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}

	logger, err := configureLogging(stderr, cfg.Log.Level, opts.verbose)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}

	baseDir := cwd
	if cfgPath != "" {
		baseDir = filepath.Dir(cfgPath)
	}

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint, cfg.Observability.ServiceName)
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}
	}()

	app, err := coreapp.New(cfg, baseDir, logger)
	if err != nil {
		logger.Error("failed to initialize app", "error", err)
		return 1
	}
	defer app.Close()

	if addr := strings.TrimSpace(cfg.Observability.MetricsAddr); addr != "" {
		server := NewObservabilityServer(addr, app)
		if err := server.Start(ctx); err != nil {
			logger.Error("failed to start observability server", "error", err)
			return 1
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Stop(shutdownCtx)
		}()
	}

	if opts.runs {
		runs, err := app.Runs(ctx)
		if err != nil {
			logger.Error("failed to list runs", "error", err)
			return 1
		}
		fmt.Fprint(stdout, report.RunsTSV(runs))
		return 0
	}

	if _, err := app.Build(ctx); err != nil {
		logger.Error("initial build failed", "error", err)
		return 1
	}
	if code := writeOutputs(app, opts, stdout, logger); code != 0 {
		return code
	}

	if opts.once || !(opts.watch || cfg.Watch.Enabled) {
		return 0
	}
	return runWatchMode(ctx, app, opts, cfgPath, stdout, logger)
}

// applyModeOptions checks flag combinations and applies positional source roots to cfg.
func applyModeOptions(opts *cliOptions, cfg *config.Config) error {
	if opts.once && opts.watch {
		return fmt.Errorf("--once and --watch cannot be combined")
	}
	if opts.depth < 0 {
		return fmt.Errorf("--depth must be >= 0")
	}
	if (opts.members || opts.depth > 0) && !opts.tree && opts.inject == "" {
		return fmt.Errorf("--members and --depth require --tree or --inject")
	}
	if opts.recordsTSV != "" && opts.lookup == "" {
		return fmt.Errorf("--records-tsv requires --lookup")
	}
	if (opts.runs || opts.recordsTSV != "") && !cfg.DB.Enabled {
		return fmt.Errorf("--runs and --records-tsv require db.enabled")
	}
	if opts.inject != "" {
		if _, _, err := parseInject(opts.inject); err != nil {
			return err
		}
	}
	if len(opts.args) > 0 {
		cfg.Sources.Roots = append([]string(nil), opts.args...)
	}
	return nil
}

func parseInject(raw string) (string, string, error) {
	idx := strings.LastIndex(raw, ":")
	if idx <= 0 || idx == len(raw)-1 {
		return "", "", fmt.Errorf("--inject must be <file>:<marker>")
	}
	return raw[:idx], raw[idx+1:], nil
}

// loadConfig loads path. The default path is also searched for in parent directories;
// when no file is found the built-in defaults are used and the returned path is empty.
func loadConfig(path, cwd string) (*config.Config, string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(cwd, path)
	}
	path = filepath.Clean(path)
	isDefault := path == filepath.Join(cwd, defaultConfigPath)
	if isDefault {
		if found, ok := config.FindUpward(cwd, filepath.Base(defaultConfigPath)); ok {
			path = found
		}
	}
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, path, nil
	}
	if isDefault && errors.Is(err, os.ErrNotExist) {
		return config.DefaultConfig(), "", nil
	}
	return nil, "", err
}

func configureLogging(out io.Writer, level string, verbose bool) (*slog.Logger, error) {
	logLevel, err := config.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return logger, nil
}

func writeOutputs(app *coreapp.App, opts cliOptions, stdout io.Writer, logger *slog.Logger) int {
	treeOpts := report.TreeOptions{MaxDepth: opts.depth, Members: opts.members}

	if opts.lookup != "" {
		found, err := app.Lookup(opts.lookup)
		if err != nil {
			fmt.Fprintf(stdout, "%s: %v\n", opts.lookup, err)
			return 1
		}
		fmt.Fprint(stdout, report.FormatLookup(opts.lookup, found))
		if opts.recordsTSV != "" {
			data := report.RecordsTSV(app.StoredLookup(opts.lookup))
			if err := util.WriteFileWithDirs(opts.recordsTSV, []byte(data), 0o644); err != nil {
				logger.Error("failed to write records", "path", opts.recordsTSV, "error", err)
				return 1
			}
		}
		return 0
	}

	if opts.tree {
		fmt.Fprintln(stdout, report.RenderTree(app.Session().RootPackage(), treeOpts))
	}

	if opts.inject != "" {
		file, marker, _ := parseInject(opts.inject)
		plain := treeOpts
		plain.Plain = true
		block := report.FencedBlock(report.RenderTree(app.Session().RootPackage(), plain))
		if err := report.InjectBlock(file, marker, block); err != nil {
			logger.Error("failed to inject tree", "path", file, "error", err)
			return 1
		}
	}

	unresolved, err := app.UnresolvedImports()
	if err != nil {
		logger.Error("failed to check imports", "error", err)
		return 1
	}
	if opts.unresolvedTSV != "" {
		if err := util.WriteFileWithDirs(opts.unresolvedTSV, []byte(report.UnresolvedImportsTSV(unresolved)), 0o644); err != nil {
			logger.Error("failed to write unresolved imports", "path", opts.unresolvedTSV, "error", err)
			return 1
		}
	}

	sum, err := app.Summary()
	if err != nil {
		logger.Error("failed to summarize session", "error", err)
		return 1
	}
	fmt.Fprint(stdout, report.FormatSummary(sum, unresolved))
	return 0
}

func runWatchMode(ctx context.Context, app *coreapp.App, opts cliOptions, cfgPath string, stdout io.Writer, logger *slog.Logger) int {
	app.SetUpdateHandler(func(u coreapp.Update) {
		if u.Err != nil {
			fmt.Fprintf(stdout, "rebuild failed after %d changes: %v\n", len(u.Changed), u.Err)
			return
		}
		fmt.Fprintf(stdout, "rebuilt session %s (%d files, %d changed, %s)\n",
			u.Snapshot.Session.ID(), len(u.Snapshot.Files), len(u.Changed), u.Snapshot.Duration.Round(time.Millisecond))
	})

	if cfgPath != "" {
		cw := config.NewWatcher(cfgPath, logger, func(next *config.Config) {
			if err := applyModeOptions(&opts, next); err != nil {
				logger.Warn("reloaded configuration conflicts with flags", "error", err)
				return
			}
			if _, err := app.Reconfigure(ctx, next); err != nil {
				logger.Warn("failed to apply reloaded configuration", "error", err)
			}
		})
		if err := cw.Start(ctx); err != nil {
			logger.Warn("config watcher unavailable", "error", err)
		} else {
			defer cw.Stop()
		}
	}

	if err := app.Watch(ctx); err != nil {
		logger.Error("watch failed", "error", err)
		return 1
	}
	return 0
}
