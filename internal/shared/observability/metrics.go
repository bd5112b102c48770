package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lazyresolve_parsing_seconds",
		Help:    "Time spent parsing a source file into declarations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	StorageComputations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lazyresolve_storage_computations_total",
		Help: "Total number of first-time computations performed by storage managers.",
	}, []string{"kind"})

	StorageRecursions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lazyresolve_storage_recursions_total",
		Help: "Total number of reentrant requests for a value whose computation was in flight.",
	}, []string{"kind"})

	StorageSoftEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lazyresolve_storage_soft_evictions_total",
		Help: "Total number of memoized entries dropped by soft retention.",
	})

	IndexBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lazyresolve_declaration_index_builds_total",
		Help: "Total number of declaration indices built.",
	}, []string{"owner"})

	SupertypeEdgesRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lazyresolve_supertype_edges_removed_total",
		Help: "Total number of supertype edges dropped to keep the supertype graph acyclic.",
	})

	ImportRecursionGuardHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lazyresolve_import_recursion_guard_total",
		Help: "Total number of lookups short-circuited by the import recursion guard.",
	}, []string{"query"})

	PackagesMaterialized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lazyresolve_packages_materialized_total",
		Help: "Total number of package descriptors created.",
	})

	ClassesMaterialized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lazyresolve_classes_materialized_total",
		Help: "Total number of class descriptors created.",
	})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lazyresolve_analysis_seconds",
		Help:    "Time spent on high-level tasks (load, build, force-resolve, persist).",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lazyresolve_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	RebuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lazyresolve_rebuilds_total",
		Help: "Total number of session rebuilds by outcome.",
	}, []string{"outcome"})
)
