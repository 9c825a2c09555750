package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal tracks the total number of clustering runs by outcome
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clustering_runs_total",
			Help: "The total number of clustering runs",
		},
		[]string{"strategy", "outcome"},
	)

	// RunDuration tracks the duration of clustering runs
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clustering_run_duration_seconds",
			Help:    "The duration of clustering runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // From 100ms to ~3.5m
		},
		[]string{"strategy"},
	)

	// StoresMoved tracks how many stores each balancing pass relocated
	StoresMoved = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clustering_stores_moved",
			Help:    "The number of stores moved by the size balancer per run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// CohortFailures tracks per-cohort pipeline failures
	CohortFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clustering_cohort_failures_total",
			Help: "The total number of failed cohort pipelines",
		},
		[]string{"stage"},
	)

	// CohortMerges tracks too-small cohorts merged into a neighbor band
	CohortMerges = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clustering_cohort_merges_total",
			Help: "The total number of temperature cohorts merged into a neighbor",
		},
	)

	// RunSilhouette reports the run-level silhouette of the last run
	RunSilhouette = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clustering_run_silhouette",
			Help: "The run-level silhouette score of the most recent run",
		},
		[]string{"strategy"},
	)
)
