package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/maintenance"
	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/cache"
	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/config"
	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/metrics"
)

const testKey = "0123456789abcdef"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router   *gin.Engine
	dataPath string
}

func newTestServer(t *testing.T, middleware ...gin.HandlerFunc) *testServer {
	t.Helper()
	dataPath := t.TempDir()
	src := filepath.Join("..", "internal", "maintenance", "testdata", "m1")
	dst := filepath.Join(dataPath, "m1")
	require.NoError(t, os.MkdirAll(dst, 0755))
	for _, name := range []string{maintenance.ResourceFile, maintenance.OperatorFile, maintenance.PlanFile} {
		data, err := os.ReadFile(filepath.Join(src, name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dst, name), data, 0644))
	}

	cfg := &config.Config{DataPath: dataPath, Render: config.RenderConfig{Workers: 2}}
	m := maintenance.NewManager(cfg, nil)
	m.SetCache(cache.NewMemory(), time.Minute)
	mt := metrics.New()
	m.SetMetrics(mt)

	r := gin.New()
	h := NewHandler(m, "test", nil)
	h.SetMetrics(mt)
	h.RegisterRoutes(r, middleware...)
	return &testServer{router: r, dataPath: dataPath}
}

func (s *testServer) do(t *testing.T, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestServiceHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "janus", body["service"])
}

func TestListSteps(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/v1/steps", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(12), decode(t, w)["count"])
}

func TestAPIKeyAuth(t *testing.T) {
	s := newTestServer(t, APIKeyAuth(testKey))

	tests := []struct {
		name   string
		header []string
		want   int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"short", []string{apiKeyHeader, "short"}, http.StatusUnauthorized},
		{"wrong", []string{apiKeyHeader, "fedcba9876543210"}, http.StatusUnauthorized},
		{"valid", []string{apiKeyHeader, testKey}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodGet, "/api/v1/steps", "", tt.header...)
			assert.Equal(t, tt.want, w.Code)
		})
	}

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", "").Code, "health is public")
}

func TestMaintenanceEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/maintenances/m1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(4), decode(t, w)["steps"])

	w = s.do(t, http.MethodGet, "/api/v1/maintenances/m1/operators", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["count"])

	w = s.do(t, http.MethodGet, "/api/v1/maintenances/m1/lint", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "passed", decode(t, w)["status"])

	w = s.do(t, http.MethodGet, "/api/v1/maintenances/nope/lint", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSchemaErrorIs422(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.dataPath, "m1", maintenance.PlanFile), []byte("steps:\n  - step: reboot\n"), 0644))

	w := s.do(t, http.MethodGet, "/api/v1/maintenances/m1", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRenderMaintenance(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/maintenances/m1/render", `{"operators":["alice"],"range":"0,2"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	run := decode(t, w)
	assert.Equal(t, "completed", run["status"])
	assert.Equal(t, float64(2), run["written"])
	runID := run["id"].(string)

	_, err := os.Stat(filepath.Join(s.dataPath, "m1", "dist", "alice-2-dump-pgstats.sh"))
	assert.NoError(t, err)

	w = s.do(t, http.MethodGet, "/api/v1/runs/"+runID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, runID, decode(t, w)["id"])

	w = s.do(t, http.MethodGet, "/api/v1/runs?maintenance=m1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{"operators":`, http.StatusBadRequest},
		{"bad range", `{"range":"a-b"}`, http.StatusBadRequest},
		{"oversized range", `{"range":"0-2000000000"}`, http.StatusBadRequest},
		{"unknown operator", `{"operators":["carol"]}`, http.StatusNotFound},
		{"step out of range", `{"steps":[42]}`, http.StatusNotFound},
		{"publish disabled", `{"publish":true}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/v1/maintenances/m1/render", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/runs/nope", "").Code)
}

func TestPreviewStep(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/maintenances/m1/operators/alice/steps/0", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, shellScriptType, w.Header().Get("Content-Type"))
	assert.Equal(t, "MISS", w.Header().Get(cacheHeader))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "alice-0-update-ecs-task-count-ZERO.sh")
	assert.True(t, strings.HasPrefix(w.Body.String(), "#!/bin/bash\n\n"))

	w = s.do(t, http.MethodGet, "/api/v1/maintenances/m1/operators/alice/steps/0", "")
	assert.Equal(t, "HIT", w.Header().Get(cacheHeader))

	w = s.do(t, http.MethodGet, "/api/v1/maintenances/m1/operators/bob/steps/0", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/v1/maintenances/m1/operators/alice/steps/x", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/maintenances/m1/operators/alice/steps/9", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/maintenances/m1/operators/carol/steps/0", "").Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, RateLimit(cache.NewMemory(), 2, time.Minute, nil))

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/steps", "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/steps", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(t, http.MethodGet, "/api/v1/steps", "").Code)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://ops.example.com"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://ops.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, APIKeyAuth("0123456789abcdef"))

	w := s.do(t, http.MethodGet, "/api/v1/maintenances/m1/operators/alice/steps/0", "", apiKeyHeader, "0123456789abcdef")
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `janus_previews_total{cache="miss"} 1`)
}
