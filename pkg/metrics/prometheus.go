package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetchTotal   *prometheus.CounterVec
	fetchLatency *prometheus.HistogramVec
	cacheTotal   *prometheus.CounterVec
	buildLatency *prometheus.HistogramVec
	missingTotal *prometheus.CounterVec
	publishTotal *prometheus.CounterVec
}

// New creates a recorder registered on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		fetchTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropull_source_fetch_total",
				Help: "Upstream series fetches by source and result",
			},
			[]string{"source", "result"},
		),
		fetchLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "macropull_source_fetch_duration_seconds",
				Help:    "Duration of upstream series fetches",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 12},
			},
			[]string{"source"},
		),
		cacheTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropull_series_cache_total",
				Help: "Series cache lookups by result",
			},
			[]string{"result"},
		),
		buildLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "macropull_dashboard_build_duration_seconds",
				Help:    "Duration of dashboard builds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 25},
			},
			[]string{"period"},
		),
		missingTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropull_missing_indicators_total",
				Help: "Indicators reported missing by reason",
			},
			[]string{"reason"},
		),
		publishTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropull_snapshot_publish_total",
				Help: "Dashboard snapshot publications by result",
			},
			[]string{"result"},
		),
	}
}

// RecordFetch records one upstream fetch outcome.
func (r *Recorder) RecordFetch(source, result string, seconds float64) {
	r.fetchTotal.WithLabelValues(source, result).Inc()
	r.fetchLatency.WithLabelValues(source).Observe(seconds)
}

// RecordCache records a cache hit, miss or negative hit.
func (r *Recorder) RecordCache(result string) {
	r.cacheTotal.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordBuild(period string, seconds float64) {
	r.buildLatency.WithLabelValues(period).Observe(seconds)
}

func (r *Recorder) RecordMissing(reason string) {
	r.missingTotal.WithLabelValues(reason).Inc()
}

func (r *Recorder) RecordPublish(result string) {
	r.publishTotal.WithLabelValues(result).Inc()
}

// Nop discards all observations.
type Nop struct{}

func (Nop) RecordFetch(string, string, float64) {}
func (Nop) RecordCache(string)                  {}
func (Nop) RecordBuild(string, float64)         {}
func (Nop) RecordMissing(string)                {}
func (Nop) RecordPublish(string)                {}
