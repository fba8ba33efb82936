package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/models"
)

func TestObserveRun(t *testing.T) {
	m := New()
	started := time.Now()
	completed := started.Add(50 * time.Millisecond)
	m.ObserveRun(&models.RenderRun{
		Status:      models.RunStatusPartial,
		StartedAt:   started,
		CompletedAt: &completed,
		Outcomes: []models.StepOutcome{
			{Step: "dump-pgstats", Status: models.OutcomeWritten},
			{Step: "dump-pgstats", Status: models.OutcomeWritten},
			{Step: "dump-mysqltablestatus", Status: models.OutcomeFailed},
		},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RendersTotal.WithLabelValues("partial")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StepsTotal.WithLabelValues("dump-pgstats", "written")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StepsTotal.WithLabelValues("dump-mysqltablestatus", "failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RenderDuration))
}

func TestObservePreviewAndLint(t *testing.T) {
	m := New()
	m.ObservePreview(false)
	m.ObservePreview(true)
	m.ObservePreview(true)
	m.ObserveLint(&models.LintReport{Findings: []models.Finding{
		{Rule: "k8s-name", Severity: models.SeverityError},
	}})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PreviewsTotal.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PreviewsTotal.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LintFindings.WithLabelValues("k8s-name", "error")))
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRun(&models.RenderRun{})
		m.ObservePreview(true)
		m.ObserveLint(&models.LintReport{})
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObservePreview(true)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `janus_previews_total{cache="hit"} 1`)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
