package app

import (
	"context"
	"fmt"

	"lazyresolve/internal/core/config"
	"lazyresolve/internal/core/watcher"
	"lazyresolve/internal/shared/observability"
)

// Watch rebuilds the session whenever sources change, until ctx is done. Rebuilds are
// rate limited; batches that arrive while a rebuild waits for a token are folded into it.
// The previous session is dropped once the new one is published.
func (a *App) Watch(ctx context.Context) error {
	changes := make(chan []string, 16)
	w, err := watcher.NewWatcher(a.Config.Watch.Debounce, a.filter, a.logger, func(paths []string) {
		select {
		case changes <- paths:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Close()
	if err := w.Watch(a.Paths.Roots); err != nil {
		return fmt.Errorf("watch sources: %w", err)
	}
	a.logger.Info("watching sources", "roots", a.Paths.Roots, "debounce", a.Config.Watch.Debounce)

	for {
		select {
		case <-ctx.Done():
			return nil
		case changed := <-changes:
			if err := a.limiter.Wait(ctx); err != nil {
				return nil
			}
			changed = append(changed, drain(changes)...)
			a.rebuild(ctx, changed)
		}
	}
}

func drain(ch <-chan []string) []string {
	var out []string
	for {
		select {
		case paths := <-ch:
			out = append(out, paths...)
		default:
			return out
		}
	}
}

func (a *App) rebuild(ctx context.Context, changed []string) {
	a.logger.Info("sources changed", "files", len(changed))
	snap, err := a.Build(ctx)
	if err != nil {
		observability.RebuildsTotal.WithLabelValues("error").Inc()
		a.logger.Error("rebuild failed", "error", err)
	} else {
		observability.RebuildsTotal.WithLabelValues("ok").Inc()
	}
	a.emitUpdate(Update{Changed: changed, Snapshot: snap, Err: err})
}

// Reconfigure applies cfg and rebuilds. Source roots, filters and resolve options take
// effect at once; database settings stay as they were when the app was created, and a
// running Watch keeps its roots until it is restarted.
func (a *App) Reconfigure(ctx context.Context, cfg *config.Config) (*Snapshot, error) {
	a.buildMu.Lock()
	defer a.buildMu.Unlock()

	next := *cfg
	next.DB = a.Config.DB
	paths, err := config.ResolvePaths(&next, a.Paths.BaseDir)
	if err != nil {
		return nil, err
	}

	prevConfig, prevPaths := a.Config, a.Paths
	prevModule, prevParser, prevFilter := a.module, a.parser, a.filter
	a.Config, a.Paths = &next, paths
	if err := a.initParser(); err != nil {
		a.Config, a.Paths = prevConfig, prevPaths
		a.module, a.parser, a.filter = prevModule, prevParser, prevFilter
		return nil, err
	}
	a.logger.Info("configuration applied", "roots", paths.Roots)
	return a.buildLocked(ctx)
}
