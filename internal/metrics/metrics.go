// Package metrics records per-run counters for node-exporter's textfile
// collector.
package metrics

import (
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weekly_summary"

// Run holds the metrics of one report run on a private registry.
type Run struct {
	registry *prometheus.Registry

	fetched        *prometheus.CounterVec
	sourceErrors   *prometheus.CounterVec
	reportActivity prometheus.Gauge
	lastRun        prometheus.Gauge
}

func NewRun() *Run {
	r := &Run{
		registry: prometheus.NewRegistry(),
		fetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activities_fetched_total",
			Help:      "Activities accepted from each source.",
		}, []string{"source"}),
		sourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_errors_total",
			Help:      "Source failures grouped by stage (init, fetch, range).",
		}, []string{"source", "stage"}),
		reportActivity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "report_activities",
			Help:      "Activities included in the last generated report.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix timestamp of the last completed run.",
		}),
	}
	r.registry.MustRegister(r.fetched, r.sourceErrors, r.reportActivity, r.lastRun)
	return r
}

// Fetched implements aggregate.Observer.
func (r *Run) Fetched(source string, count int) {
	r.fetched.WithLabelValues(source).Add(float64(count))
}

// Failed implements aggregate.Observer.
func (r *Run) Failed(source, stage string) {
	r.sourceErrors.WithLabelValues(source, stage).Inc()
}

// Completed records the size of the written report.
func (r *Run) Completed(activities int, at time.Time) {
	r.reportActivity.Set(float64(activities))
	r.lastRun.Set(float64(at.Unix()))
}

func (r *Run) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the registry in text exposition format. The file is
// replaced atomically.
func (r *Run) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
