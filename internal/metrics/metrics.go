// Package metrics keeps in-process counters for the forecast pipeline and
// serves them in the Prometheus exposition format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Outcomes of a pipeline run.
const (
	OutcomeSuccess   = "success"
	OutcomeNoData    = "no_data"
	OutcomeError     = "error"
	OutcomeTimeout   = "timeout"
	OutcomeCancelled = "cancelled"
)

// Upstream stages.
const (
	StageListing = "listing"
	StageArchive = "archive"
)

// Registry holds the pipeline collectors on a private prometheus registry,
// so tests and multiple services never collide on the global one.
type Registry struct {
	reg *prometheus.Registry

	runs        *prometheus.CounterVec
	upstream    *prometheus.CounterVec
	duration    prometheus.Summary
	lastRows    prometheus.Gauge
	lastSuccess prometheus.Gauge
}

// New returns a registry with every collector registered.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nemfeed_pipeline_runs_total",
			Help: "Forecast pipeline runs by outcome.",
		}, []string{"outcome"}),
		upstream: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nemfeed_upstream_requests_total",
			Help: "Requests to NEMweb by stage and result.",
		}, []string{"stage", "result"}),
		duration: prometheus.NewSummary(prometheus.SummaryOpts{
			Name: "nemfeed_pipeline_duration_seconds",
			Help: "Time spent per pipeline run.",
		}),
		lastRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nemfeed_last_rows",
			Help: "Rows served by the last successful run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nemfeed_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run, 0 if none.",
		}),
	}

	r.reg.MustRegister(r.runs, r.upstream, r.duration, r.lastRows, r.lastSuccess)
	return r
}

// ObserveRun records one finished pipeline run.
func (r *Registry) ObserveRun(outcome string, elapsed time.Duration, rows int) {
	r.runs.WithLabelValues(outcome).Inc()
	r.duration.Observe(elapsed.Seconds())
	if outcome == OutcomeSuccess {
		r.lastRows.Set(float64(rows))
		r.lastSuccess.SetToCurrentTime()
	}
}

// ObserveUpstream records one request to NEMweb.
func (r *Registry) ObserveUpstream(stage, result string) {
	r.upstream.WithLabelValues(stage, result).Inc()
}

// Runs returns the number of runs recorded with outcome.
func (r *Registry) Runs(outcome string) uint64 {
	var m dto.Metric
	if err := r.runs.WithLabelValues(outcome).Write(&m); err != nil {
		return 0
	}
	return uint64(m.GetCounter().GetValue())
}

// Handler serves the registry in the text (or negotiated) exposition format.
// Compression is left to the router's middleware.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{DisableCompression: true})
}
