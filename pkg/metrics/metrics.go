// Package metrics exposes Prometheus metrics for rendering, previews and lint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/models"
)

// Metrics holds the Janus collectors and the registry they live in. A nil
// *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RendersTotal   *prometheus.CounterVec
	StepsTotal     *prometheus.CounterVec
	RenderDuration prometheus.Histogram
	PreviewsTotal  *prometheus.CounterVec
	LintFindings   *prometheus.CounterVec
}

// New creates the collectors in a fresh registry together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RendersTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "janus_renders_total",
				Help: "Render runs by final status",
			},
			[]string{"status"},
		),
		StepsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "janus_steps_total",
				Help: "Rendered steps by step kind and outcome",
			},
			[]string{"step", "outcome"},
		),
		RenderDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "janus_render_duration_seconds",
			Help:    "Duration of render runs",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		}),
		PreviewsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "janus_previews_total",
				Help: "Script previews by cache result",
			},
			[]string{"cache"},
		),
		LintFindings: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "janus_lint_findings_total",
				Help: "Lint findings by rule and severity",
			},
			[]string{"rule", "severity"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRun records a finished render run.
func (m *Metrics) ObserveRun(run *models.RenderRun) {
	if m == nil || run == nil {
		return
	}
	m.RendersTotal.WithLabelValues(string(run.Status)).Inc()
	for _, o := range run.Outcomes {
		m.StepsTotal.WithLabelValues(o.Step, string(o.Status)).Inc()
	}
	if run.CompletedAt != nil {
		m.RenderDuration.Observe(run.CompletedAt.Sub(run.StartedAt).Seconds())
	}
}

// ObservePreview records whether a preview was served from the cache.
func (m *Metrics) ObservePreview(cached bool) {
	if m == nil {
		return
	}
	result := "miss"
	if cached {
		result = "hit"
	}
	m.PreviewsTotal.WithLabelValues(result).Inc()
}

// ObserveLint records the findings of a lint report.
func (m *Metrics) ObserveLint(report *models.LintReport) {
	if m == nil || report == nil {
		return
	}
	for _, f := range report.Findings {
		m.LintFindings.WithLabelValues(f.Rule, string(f.Severity)).Inc()
	}
}
