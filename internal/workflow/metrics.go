package workflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storybook_workflow_runs_started_total",
			Help: "Total number of workflow runs started, partitioned by kind.",
		},
		[]string{"kind"},
	)
	runsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storybook_workflow_runs_completed_total",
			Help: "Total number of workflow runs finished, partitioned by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storybook_workflow_run_duration_seconds",
			Help:    "Histogram of workflow run durations.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"kind"},
	)
	illustrationsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storybook_illustrations_generated_total",
			Help: "Total number of page illustrations generated and stored.",
		},
	)
	illustrationsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storybook_illustrations_failed_total",
			Help: "Total number of page illustrations that failed after retries.",
		},
	)
)
