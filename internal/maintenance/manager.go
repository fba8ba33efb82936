// Package maintenance ties the loaders, the step renderer, the lint engine,
// run history and publishing together for one maintenance directory.
//
// A maintenance lives in <data_path>/<id>/ and holds resource.yaml,
// operator.yaml and an optional plan.yaml. Rendering writes one script per
// plan step per operator into the dist directory and records the outcome of
// every step as a RenderRun.
package maintenance

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/history"
	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/lint"
	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/operator"
	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/publish"
	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/steps"
	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/cache"
	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/config"
	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/logging"
	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/metrics"
	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/models"
)

// ErrPublishDisabled is returned when publishing is requested but no
// publish backend is configured.
var ErrPublishDisabled = errors.New("maintenance: publishing is not configured")

// RenderOptions selects what a render covers. Empty Operators means every
// operator; empty Steps means every step of the plan.
type RenderOptions struct {
	Operators []string `json:"operators"`
	Steps     []int    `json:"steps"`
	DistDir   string   `json:"-"`
	Publish   bool     `json:"publish"`
}

// Preview is one script rendered in memory.
type Preview struct {
	Operator string `json:"operator"`
	StepNo   int    `json:"step_no"`
	Step     string `json:"step"`
	Filename string `json:"filename"`
	Eligible bool   `json:"eligible"`
	Script   string `json:"script,omitempty"`
	Cached   bool   `json:"cached"`
}

// Manager renders maintenances found under the configured data path.
type Manager struct {
	cfg     *config.Config
	logger  *zap.Logger
	lint    *lint.Engine
	workers int

	store     history.RunStore
	publisher publish.Backend
	cache     cache.ScriptCache
	cacheTTL  time.Duration
	metrics   *metrics.Metrics

	mu   sync.RWMutex
	runs map[string]*models.RenderRun

	newID func() string
	now   func() time.Time
}

// NewManager creates a Manager. Runs are kept in memory until a store is
// attached with SetStore.
func NewManager(cfg *config.Config, logger *zap.Logger) *Manager {
	logger = logging.OrNop(logger)
	workers := cfg.Render.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Manager{
		cfg:     cfg,
		logger:  logging.Named(logger, "maintenance"),
		lint:    lint.NewEngine(logger),
		workers: workers,
		runs:    make(map[string]*models.RenderRun),
		newID:   uuid.NewString,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetStore attaches a persistent run store.
func (m *Manager) SetStore(s history.RunStore) { m.store = s }

// SetPublisher attaches the backend rendered scripts are published to.
func (m *Manager) SetPublisher(b publish.Backend) { m.publisher = b }

// SetCache attaches a cache for script previews.
func (m *Manager) SetCache(c cache.ScriptCache, ttl time.Duration) {
	m.cache = c
	m.cacheTTL = ttl
}

// SetMetrics attaches Prometheus collectors for renders, previews and lint.
func (m *Manager) SetMetrics(mt *metrics.Metrics) { m.metrics = mt }

// LintEngine returns the engine used by Lint so callers can disable rules.
func (m *Manager) LintEngine() *lint.Engine { return m.lint }

// Load reads the documents of a maintenance.
func (m *Manager) Load(ctx context.Context, id string) (*Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return loadBundle(id, m.cfg.MaintenanceDir(id))
}

// Summary describes the regions, operators and plan size of a maintenance.
func (m *Manager) Summary(ctx context.Context, id string) (*models.MaintenanceSummary, error) {
	b, err := m.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	s := &models.MaintenanceSummary{
		ID:        id,
		Regions:   make([]string, 0),
		Operators: make([]models.OperatorSummary, 0, len(b.Operators)),
		Steps:     b.Plan.Len(),
	}
	for _, r := range b.Topology.Regions() {
		s.Regions = append(s.Regions, r.Name())
	}
	for _, op := range b.Operators {
		s.Operators = append(s.Operators, models.OperatorSummary{
			ID:           op.ID(),
			Databases:    len(operator.Unique(op.Databases())),
			ECSServices:  len(operator.Unique(op.ECSServices())),
			Deployments:  len(operator.Unique(op.Deployments())),
			StatefulSets: len(operator.Unique(op.StatefulSets())),
		})
	}
	return s, nil
}

// Lint checks the documents of a maintenance.
func (m *Manager) Lint(ctx context.Context, id string) (*models.LintReport, error) {
	b, err := m.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	report, err := m.lint.Evaluate(ctx, id, &lint.Input{Topology: b.Topology, Operators: b.Operators})
	if err != nil {
		return nil, err
	}
	m.metrics.ObserveLint(report)
	return report, nil
}

func (m *Manager) selectOperators(b *Bundle, ids []string) ([]*operator.Operator, error) {
	if len(ids) == 0 {
		return b.Operators, nil
	}
	ops := make([]*operator.Operator, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		op, err := b.Operator(id)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// Render writes the selected steps for the selected operators. Operators are
// rendered concurrently; a failing step is recorded in the run and does not
// stop the other steps. Selection errors are returned before anything is
// written.
func (m *Manager) Render(ctx context.Context, id string, opts RenderOptions) (*models.RenderRun, error) {
	if opts.Publish && m.publisher == nil {
		return nil, ErrPublishDisabled
	}

	b, err := m.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	ops, err := m.selectOperators(b, opts.Operators)
	if err != nil {
		return nil, err
	}

	distDir := opts.DistDir
	if distDir == "" {
		distDir = m.cfg.DistDir(id)
	}

	numbers := operator.Unique(opts.Steps)
	jobs := make([][]steps.Job, len(ops))
	for i, op := range ops {
		if jobs[i], err = b.Plan.Jobs(op, distDir, numbers); err != nil {
			return nil, err
		}
	}

	run := &models.RenderRun{
		ID:            m.newID(),
		MaintenanceID: id,
		Operators:     make([]string, len(ops)),
		Steps:         numbers,
		DistDir:       distDir,
		Status:        models.RunStatusRunning,
		StartedAt:     m.now(),
	}
	for i, op := range ops {
		run.Operators[i] = op.ID()
	}

	pending := *run
	m.mu.Lock()
	m.runs[run.ID] = &pending
	m.mu.Unlock()

	m.logger.Info("render started",
		zap.String("run", run.ID),
		zap.String("maintenance", id),
		zap.Strings("operators", run.Operators),
		zap.String("dist", distDir))

	outcomes := make([][]models.StepOutcome, len(ops))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i := range ops {
		i := i
		g.Go(func() error {
			outcomes[i] = m.renderJobs(gctx, jobs[i])
			return nil
		})
	}
	_ = g.Wait()

	final := make([]models.StepOutcome, 0)
	var written []string
	for _, list := range outcomes {
		sort.SliceStable(list, func(a, b int) bool { return list[a].StepNo < list[b].StepNo })
		for _, o := range list {
			final = append(final, o)
			if o.Status == models.OutcomeWritten {
				written = append(written, filepath.Join(distDir, o.Filename))
			}
		}
	}
	run.Outcomes = final
	run.Tally()

	var publishErr error
	if opts.Publish && len(written) > 0 {
		run.Published, publishErr = publish.Files(ctx, m.publisher, publish.Key(id, run.ID, ""), written)
		if publishErr != nil {
			run.ErrorMessage = publishErr.Error()
			if run.Status == models.RunStatusCompleted {
				run.Status = models.RunStatusPartial
			}
		}
	}

	completedAt := m.now()
	run.CompletedAt = &completedAt

	m.mu.Lock()
	m.runs[run.ID] = run
	m.mu.Unlock()

	if m.store != nil {
		logStoreErr(m.logger, "save run", m.store.SaveRun(ctx, run))
	}
	m.metrics.ObserveRun(run)

	m.logger.Info("render finished",
		zap.String("run", run.ID),
		zap.String("status", string(run.Status)),
		zap.Int("written", run.Written),
		zap.Int("skipped", run.Skipped),
		zap.Int("failed", run.Failed),
		zap.Int("published", len(run.Published)),
		zap.Duration("duration", completedAt.Sub(run.StartedAt)))

	if publishErr != nil {
		return run, fmt.Errorf("maintenance: publish run %s: %w", run.ID, publishErr)
	}
	return run, nil
}

func (m *Manager) renderJobs(ctx context.Context, jobs []steps.Job) []models.StepOutcome {
	out := make([]models.StepOutcome, 0, len(jobs))
	for _, job := range jobs {
		o := models.StepOutcome{
			Operator: job.Operator.ID(),
			StepNo:   job.No,
			Step:     job.Step.Name(),
			Filename: job.Filename(),
		}
		res, err := job.WriteFile(ctx)
		switch {
		case err != nil:
			o.Status = models.OutcomeFailed
			o.Error = err.Error()
			m.logger.Warn("step failed",
				zap.String("operator", o.Operator),
				zap.Int("step", o.StepNo),
				zap.Error(err))
		case res == nil:
			o.Status = models.OutcomeSkipped
			m.logger.Debug("step skipped", zap.String("operator", o.Operator), zap.Int("step", o.StepNo))
		default:
			o.Status = models.OutcomeWritten
			o.SHA256 = res.SHA256
			o.Size = res.Size
			m.logger.Debug("step written", zap.String("path", res.Path))
		}
		out = append(out, o)
	}
	return out
}

// Preview renders one step for one operator without writing a file. Rendered
// scripts are cached per document fingerprint when a cache is attached.
func (m *Manager) Preview(ctx context.Context, id, operatorID string, stepNo int) (*Preview, error) {
	b, err := m.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	op, err := b.Operator(operatorID)
	if err != nil {
		return nil, err
	}
	jobs, err := b.Plan.Jobs(op, m.cfg.DistDir(id), []int{stepNo})
	if err != nil {
		return nil, err
	}
	job := jobs[0]

	p := &Preview{
		Operator: operatorID,
		StepNo:   stepNo,
		Step:     job.Step.Name(),
		Filename: job.Filename(),
	}

	key := cache.ScriptKey(id, b.Fingerprint, operatorID, stepNo)
	if m.cache != nil {
		script, ok, err := m.cache.Get(ctx, key)
		if err != nil {
			m.logger.Warn("preview cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			p.Script = script
			p.Eligible = script != ""
			p.Cached = true
			m.metrics.ObservePreview(true)
			return p, nil
		}
	}

	var buf bytes.Buffer
	switch err := job.Render(&buf); {
	case errors.Is(err, steps.ErrNotEligible):
	case err != nil:
		return nil, err
	default:
		p.Eligible = true
		p.Script = buf.String()
	}

	if m.cache != nil {
		if err := m.cache.Set(ctx, key, p.Script, m.cacheTTL); err != nil {
			m.logger.Warn("preview cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	m.metrics.ObservePreview(false)
	return p, nil
}

// GetRun returns a run by id, looking in memory first and then in the store.
func (m *Manager) GetRun(ctx context.Context, runID string) (*models.RenderRun, error) {
	m.mu.RLock()
	run, ok := m.runs[runID]
	m.mu.RUnlock()
	if ok {
		return run, nil
	}
	if m.store != nil {
		return m.store.GetRun(ctx, runID)
	}
	return nil, fmt.Errorf("%w: %s", history.ErrRunNotFound, runID)
}

// ListRuns returns runs newest first, from the store when one is attached.
// An empty maintenanceID lists every run.
func (m *Manager) ListRuns(ctx context.Context, maintenanceID string) ([]*models.RenderRun, error) {
	if m.store != nil {
		return m.store.ListRuns(ctx, maintenanceID)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	runs := make([]*models.RenderRun, 0, len(m.runs))
	for _, run := range m.runs {
		if maintenanceID == "" || run.MaintenanceID == maintenanceID {
			runs = append(runs, run)
		}
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs, nil
}

// logStoreErr logs a store persistence error without failing the operation.
func logStoreErr(logger *zap.Logger, operation string, err error) {
	if err != nil {
		logger.Warn("store operation failed", zap.String("operation", operation), zap.Error(err))
	}
}
