package app

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"lazyresolve/internal/core/errors"
	"lazyresolve/internal/data/symbols"
	"lazyresolve/internal/shared/observability"
)

func (a *App) initSymbolStore() error {
	if !a.Config.DB.Enabled {
		return nil
	}
	store, err := symbols.Open(a.Paths.DBPath, a.Config.DB.ProjectKey, a.Config.DB.BusyTimeout)
	if err != nil {
		return fmt.Errorf("open sqlite symbol store: %w", err)
	}
	a.store = store
	return nil
}

// persist writes every descriptor of snap as a new run and prunes old runs.
func (a *App) persist(ctx context.Context, snap *Snapshot) (runID string, err error) {
	ctx, span := observability.Tracer.Start(ctx, "app.persist")
	defer span.End()
	start := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues("persist").Observe(time.Since(start).Seconds())
	}()
	defer errors.Recover(&err)

	records := symbols.Collect(snap.Session.RootPackage())
	span.SetAttributes(attribute.Int("records", len(records)))
	run, err := a.store.SaveSnapshot(ctx, records)
	if err != nil {
		return "", err
	}
	if err := a.store.Prune(ctx, a.Config.DB.KeepRuns); err != nil {
		a.logger.Warn("failed to prune symbol runs", "error", err)
	}
	a.logger.Debug("snapshot persisted", "run", run.ID, "records", len(records))
	return run.ID, nil
}

// StoredLookup reads fq from the newest persisted run. It returns nil when persistence
// is disabled.
func (a *App) StoredLookup(fq string) []symbols.Record {
	if a.store == nil {
		return nil
	}
	return a.store.Lookup(fq)
}

// Runs lists the persisted runs of the project, newest first.
func (a *App) Runs(ctx context.Context) ([]symbols.Run, error) {
	if a.store == nil {
		return nil, errors.New(errors.CodeNotSupported, "symbol store is disabled")
	}
	return a.store.Runs(ctx)
}
