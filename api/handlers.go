// Package api implements the HTTP API of Janus.
//
// All endpoints except /health are versioned under /api/v1. Handlers delegate
// to the maintenance manager and return JSON, except script previews which
// are served as shell scripts.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/history"
	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/maintenance"
	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/steps"
	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/topology"
	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/logging"
	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/metrics"
	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/strutil"
)

const (
	cacheHeader     = "X-Janus-Cache"
	shellScriptType = "text/x-shellscript"
)

// Handler serves the API on top of a maintenance manager.
type Handler struct {
	manager   *maintenance.Manager
	logger    *zap.Logger
	version   string
	startTime time.Time
	metrics   *metrics.Metrics
}

// NewHandler creates a Handler.
func NewHandler(manager *maintenance.Manager, version string, logger *zap.Logger) *Handler {
	return &Handler{
		manager:   manager,
		logger:    logging.Named(logger, "api"),
		version:   version,
		startTime: time.Now().UTC(),
	}
}

// SetMetrics exposes mt on /metrics.
func (h *Handler) SetMetrics(mt *metrics.Metrics) { h.metrics = mt }

// RegisterRoutes sets up all API routes on r. The v1 group runs the given
// middleware (authentication, rate limiting) before every handler.
func (h *Handler) RegisterRoutes(r *gin.Engine, middleware ...gin.HandlerFunc) {
	r.GET("/health", h.ServiceHealth)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	v1 := r.Group("/api/v1")
	v1.Use(middleware...)
	{
		v1.GET("/steps", h.ListSteps)

		m := v1.Group("/maintenances/:id")
		{
			m.GET("", h.GetMaintenance)
			m.GET("/operators", h.ListOperators)
			m.GET("/lint", h.LintMaintenance)
			m.POST("/render", h.RenderMaintenance)
			m.GET("/operators/:operator/steps/:no", h.PreviewStep)
		}

		v1.GET("/runs", h.ListRuns)
		v1.GET("/runs/:id", h.GetRun)
	}
}

// respondError maps domain errors to HTTP status codes.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, topology.ErrNotFound), errors.Is(err, history.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, topology.ErrSchema):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, maintenance.ErrPublishDisabled):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// ServiceHealth reports that the service is up.
func (h *Handler) ServiceHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "janus",
		"version": h.version,
		"uptime":  time.Since(h.startTime).String(),
	})
}

// ListSteps returns every step kind that can appear in a plan.
func (h *Handler) ListSteps(c *gin.Context) {
	defs := steps.Definitions()
	c.JSON(http.StatusOK, gin.H{"steps": defs, "count": len(defs)})
}

// GetMaintenance returns the regions, operators and plan size of a maintenance.
func (h *Handler) GetMaintenance(c *gin.Context) {
	summary, err := h.manager.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ListOperators returns the operators of a maintenance.
func (h *Handler) ListOperators(c *gin.Context) {
	summary, err := h.manager.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"operators": summary.Operators, "count": len(summary.Operators)})
}

// LintMaintenance checks the documents of a maintenance.
func (h *Handler) LintMaintenance(c *gin.Context) {
	report, err := h.manager.Lint(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type renderRequest struct {
	Operators []string `json:"operators"`
	Steps     []int    `json:"steps"`
	// Range selects steps with the CLI syntax, e.g. "0-3,7".
	Range   string `json:"range"`
	Publish bool   `json:"publish"`
}

// RenderMaintenance renders scripts into the configured dist directory.
func (h *Handler) RenderMaintenance(c *gin.Context) {
	var req renderRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}
	numbers := req.Steps
	if req.Range != "" {
		expanded, err := strutil.ExpandRange(req.Range)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		numbers = append(numbers, expanded...)
	}

	run, err := h.manager.Render(c.Request.Context(), c.Param("id"), maintenance.RenderOptions{
		Operators: req.Operators,
		Steps:     numbers,
		Publish:   req.Publish,
	})
	if err != nil {
		if run != nil {
			// Scripts were written; only publishing failed.
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "run": run})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, run)
}

// PreviewStep renders one step for one operator and returns the script.
// Steps that do not apply to the operator return 204.
func (h *Handler) PreviewStep(c *gin.Context) {
	no, err := strconv.Atoi(c.Param("no"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "step number must be an integer"})
		return
	}

	p, err := h.manager.Preview(c.Request.Context(), c.Param("id"), c.Param("operator"), no)
	if err != nil {
		respondError(c, err)
		return
	}

	if p.Cached {
		c.Header(cacheHeader, "HIT")
	} else {
		c.Header(cacheHeader, "MISS")
	}
	if !p.Eligible {
		c.Status(http.StatusNoContent)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+p.Filename+`"`)
	c.Data(http.StatusOK, shellScriptType, []byte(p.Script))
}

// ListRuns returns render runs, optionally filtered by ?maintenance=.
func (h *Handler) ListRuns(c *gin.Context) {
	runs, err := h.manager.ListRuns(c.Request.Context(), c.Query("maintenance"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// GetRun returns a single render run.
func (h *Handler) GetRun(c *gin.Context) {
	run, err := h.manager.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}
