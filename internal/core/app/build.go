package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"lazyresolve/internal/core/errors"
	"lazyresolve/internal/engine/declarations"
	"lazyresolve/internal/engine/lazy"
	"lazyresolve/internal/engine/resolver"
	"lazyresolve/internal/engine/storage"
	"lazyresolve/internal/engine/syntax"
	"lazyresolve/internal/shared/observability"
	"lazyresolve/internal/shared/util"
)

// Build discovers and parses every source file, creates a new session over them and
// publishes it. Files that fail to read or parse are reported in the snapshot and left out.
func (a *App) Build(ctx context.Context) (*Snapshot, error) {
	a.buildMu.Lock()
	defer a.buildMu.Unlock()
	return a.buildLocked(ctx)
}

func (a *App) buildLocked(ctx context.Context) (*Snapshot, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Build")
	defer span.End()
	start := time.Now()

	paths, err := a.filter.Discover(a.Paths.Roots)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Wrap(err, errors.CodeInternal, "discover sources")
	}

	files, languages, parseErrs, err := a.parseFiles(ctx, paths)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("files", len(files)), attribute.Int("parse_errors", len(parseErrs)))

	session, err := a.newSession(files, languages)
	if err != nil {
		return nil, err
	}
	if a.Config.Resolve.ShouldForceResolve() {
		if err := forceResolve(ctx, session); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	snap := &Snapshot{
		Session:     session,
		Files:       files,
		ParseErrors: parseErrs,
		Languages:   languages,
		GoModule:    a.goModule(),
		BuiltAt:     time.Now(),
	}
	if a.store != nil {
		runID, err := a.persist(ctx, snap)
		if err != nil {
			a.logger.Warn("failed to persist snapshot", "error", err)
		}
		snap.RunID = runID
	}
	snap.Duration = time.Since(start)
	a.current.Store(snap)

	observability.AnalysisDuration.WithLabelValues("build").Observe(snap.Duration.Seconds())
	a.logger.Info("session built",
		"session", session.ID(),
		"files", len(files),
		"parse_errors", len(parseErrs),
		"duration", snap.Duration,
		"heap_mb", util.HeapAllocMB(),
	)
	return snap, nil
}

// forceResolve is the request boundary for invariant violations raised while forcing.
func forceResolve(ctx context.Context, s *lazy.Session) (err error) {
	defer errors.Recover(&err)
	return s.ForceResolveAll(ctx)
}

type parsed struct {
	file *syntax.File
	lang string
}

// parseFiles parses paths with at most Resolve.ParseWorkers goroutines. The returned
// files keep the order of paths.
func (a *App) parseFiles(ctx context.Context, paths []string) ([]*syntax.File, map[string]int, map[string]error, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.parseFiles")
	defer span.End()
	start := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues("parse").Observe(time.Since(start).Seconds())
	}()

	results := make([]parsed, len(paths))
	var (
		errMu  sync.Mutex
		failed = make(map[string]error)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.Config.Resolve.ParseWorkers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			file, lang, err := a.parseOne(path)
			if err != nil {
				a.logger.Warn("failed to process file", "path", path, "error", err)
				errMu.Lock()
				failed[path] = err
				errMu.Unlock()
				return nil
			}
			results[i] = parsed{file: file, lang: lang}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	files := make([]*syntax.File, 0, len(results))
	languages := make(map[string]int)
	for _, r := range results {
		if r.file == nil {
			continue
		}
		files = append(files, r.file)
		languages[r.lang]++
	}
	return files, languages, failed, nil
}

func (a *App) parseOne(path string) (*syntax.File, string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, "", errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "read source"), errors.CtxPath, path)
	}
	rel := a.relativePath(path)
	file, err := a.parser.ParseFile(rel, content)
	if err != nil {
		return nil, "", errors.AddContext(err, errors.CtxPath, path)
	}
	return file, a.parser.Language(rel), nil
}

// relativePath is path relative to the deepest source root containing it.
func (a *App) relativePath(path string) string {
	best := ""
	for _, root := range a.Paths.Roots {
		if util.HasPathPrefix(path, root) && len(root) > len(best) {
			best = root
		}
	}
	if best == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(best, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (a *App) newSession(files []*syntax.File, languages map[string]int) (*lazy.Session, error) {
	builtins := dedupe(resolver.DefaultBuiltins, a.parser.Builtins(), a.Config.Resolve.Builtins)
	types := resolver.NewTypeResolver(
		resolver.WithBuiltins(builtins...),
		resolver.WithTypeLogger(a.logger),
	)

	imports := append([]string(nil), a.Config.Resolve.DefaultImports...)
	langs := util.SortedStringKeys(languages)
	for _, lang := range langs {
		imports = append(imports, a.parser.DefaultImports(lang)...)
	}
	var defaults []*syntax.ImportDirective
	for _, path := range dedupe(imports) {
		dir, err := syntax.ParseImportPath(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeValidationError, fmt.Sprintf("default import %q", path))
		}
		defaults = append(defaults, dir)
	}

	manager := storage.NewManager(
		storage.WithSoftCapacity(a.Config.Resolve.SoftCapacity),
		storage.WithLogger(a.logger),
	)
	return lazy.NewSession(declarations.NewFileFactory(files),
		lazy.WithLogger(a.logger),
		lazy.WithStorageManager(manager),
		lazy.WithTypeResolver(types),
		lazy.WithDefaultImports(defaults...),
		lazy.WithScopeRetention(a.Config.Resolve.RetentionMode()),
		lazy.WithModuleName(a.moduleName()),
	), nil
}

func (a *App) moduleName() string {
	if m := a.goModule(); m != "" {
		return m
	}
	return filepath.Base(a.Paths.BaseDir)
}

// dedupe concatenates lists, keeping the first occurrence of each entry.
func dedupe(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}
