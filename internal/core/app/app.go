// Package app wires configuration, parsing, the lazy session and persistence together.
// Each build produces a fresh Snapshot; readers always see a complete one.
package app

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"lazyresolve/internal/core/config"
	"lazyresolve/internal/core/watcher"
	"lazyresolve/internal/data/symbols"
	"lazyresolve/internal/engine/lazy"
	"lazyresolve/internal/engine/parser"
	"lazyresolve/internal/engine/syntax"
	"lazyresolve/internal/shared/util"
)

// Snapshot is the result of one build. It is never mutated after it is published.
type Snapshot struct {
	Session     *lazy.Session
	Files       []*syntax.File
	ParseErrors map[string]error
	// Languages counts parsed files per language.
	Languages map[string]int
	GoModule  string
	BuiltAt   time.Time
	Duration  time.Duration
	// RunID is the persisted run, empty when persistence is off or failed.
	RunID string
}

// Update is delivered to the update handler after every watch-triggered rebuild.
type Update struct {
	Changed  []string
	Snapshot *Snapshot
	Err      error
}

type App struct {
	Config *config.Config
	Paths  config.ResolvedPaths

	logger  *slog.Logger
	module  string
	parser  *parser.Parser
	filter  *watcher.Filter
	store   *symbols.Store
	limiter *util.Limiter

	// buildMu serializes builds; readers use current without locking.
	buildMu sync.Mutex
	current atomic.Pointer[Snapshot]

	updateMu sync.RWMutex
	onUpdate func(Update)
}

// New prepares an App for cfg. Relative paths in cfg are anchored at baseDir.
func New(cfg *config.Config, baseDir string, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	paths, err := config.ResolvePaths(cfg, baseDir)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Paths:   paths,
		logger:  logger,
		limiter: util.NewLimiter(cfg.Watch.RebuildsPerSecond, cfg.Watch.RebuildBurst),
	}
	if err := a.initParser(); err != nil {
		return nil, err
	}
	if err := a.initSymbolStore(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) initParser() error {
	module := a.Config.Sources.GoModule
	if module == "" {
		module = detectGoModule(a.Paths.Roots)
	}
	a.module = module
	a.parser = parser.NewParser(parser.DefaultFrontends(module)...)

	filter, err := watcher.NewFilter(
		a.Config.Sources.Include,
		a.Config.Sources.Exclude.Dirs,
		a.Config.Sources.Exclude.Files,
		a.parser.SupportedExtensions(),
	)
	if err != nil {
		return fmt.Errorf("source filter: %w", err)
	}
	if a.Config.DB.Enabled {
		filter.Ignore(a.Paths.DBPath)
	}
	a.filter = filter
	return nil
}

// goModule is the module path stripped from Go import paths, possibly empty.
func (a *App) goModule() string { return a.module }

// Snapshot returns the latest published build, or nil before the first one.
func (a *App) Snapshot() *Snapshot {
	return a.current.Load()
}

// Session returns the session of the latest build, or nil.
func (a *App) Session() *lazy.Session {
	if snap := a.current.Load(); snap != nil {
		return snap.Session
	}
	return nil
}

// SetUpdateHandler registers fn to be called after every watch-triggered rebuild.
func (a *App) SetUpdateHandler(fn func(Update)) {
	a.updateMu.Lock()
	defer a.updateMu.Unlock()
	a.onUpdate = fn
}

func (a *App) emitUpdate(u Update) {
	a.updateMu.RLock()
	fn := a.onUpdate
	a.updateMu.RUnlock()
	if fn != nil {
		fn(u)
	}
}

// Close releases the symbol store. A running Watch should be stopped first.
func (a *App) Close() error {
	if a.store != nil {
		err := a.store.Close()
		a.store = nil
		return err
	}
	return nil
}
