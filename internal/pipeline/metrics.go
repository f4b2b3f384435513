package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "omniscore_pipeline_stage_duration_seconds",
		Help:    "Duration of pipeline stage runs in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	}, []string{"stage", "outcome"})

	stageRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omniscore_pipeline_stage_runs_total",
		Help: "Total number of finished pipeline stage runs",
	}, []string{"stage", "outcome"})

	stageRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omniscore_pipeline_stage_rejections_total",
		Help: "Stage invocations rejected before any external call",
	}, []string{"stage", "reason"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "omniscore_pipeline_sessions",
		Help: "Number of open composer sessions",
	})

	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "omniscore_pipeline_events_dropped_total",
		Help: "Session events dropped because a subscriber was not keeping up",
	})
)
