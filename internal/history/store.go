// Package history persists render runs so the API and CLI can show what was
// rendered, when, and with which outcome.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/models"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("history: run not found")

// RunStore defines the persistence interface for render runs.
// Implementations must be safe for concurrent use.
type RunStore interface {
	SaveRun(ctx context.Context, run *models.RenderRun) error
	GetRun(ctx context.Context, id string) (*models.RenderRun, error)
	// ListRuns returns runs newest first. An empty maintenanceID lists all runs.
	ListRuns(ctx context.Context, maintenanceID string) ([]*models.RenderRun, error)
}

// MemoryStore keeps runs in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*models.RenderRun
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*models.RenderRun)}
}

func copyRun(run *models.RenderRun) *models.RenderRun {
	cp := *run
	cp.Operators = append([]string(nil), run.Operators...)
	cp.Steps = append([]int(nil), run.Steps...)
	cp.Published = append([]string(nil), run.Published...)
	cp.Outcomes = append([]models.StepOutcome(nil), run.Outcomes...)
	return &cp
}

func (s *MemoryStore) SaveRun(_ context.Context, run *models.RenderRun) error {
	if run.ID == "" {
		return fmt.Errorf("history: run id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = copyRun(run)
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (*models.RenderRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return copyRun(run), nil
}

func (s *MemoryStore) ListRuns(_ context.Context, maintenanceID string) ([]*models.RenderRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := make([]*models.RenderRun, 0, len(s.runs))
	for _, run := range s.runs {
		if maintenanceID == "" || run.MaintenanceID == maintenanceID {
			runs = append(runs, copyRun(run))
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

// Connect opens a connection pool for run history and verifies it with a
// ping.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("history: failed to parse connection URL: %w", err)
	}
	poolConfig.MaxConns = 5
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("history: failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: failed to ping database: %w", err)
	}
	return pool, nil
}

// scannable is satisfied by both pgx.Row and pgx.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// PgStore implements RunStore using PostgreSQL via pgxpool. Outcomes are
// stored as JSONB.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PostgreSQL-backed run store.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS render_runs (
	id             TEXT PRIMARY KEY,
	maintenance_id TEXT NOT NULL,
	operators      TEXT[] NOT NULL DEFAULT '{}',
	steps          INTEGER[] NOT NULL DEFAULT '{}',
	dist_dir       TEXT NOT NULL,
	status         TEXT NOT NULL,
	written        INTEGER NOT NULL DEFAULT 0,
	skipped        INTEGER NOT NULL DEFAULT 0,
	failed         INTEGER NOT NULL DEFAULT 0,
	published      TEXT[] NOT NULL DEFAULT '{}',
	outcomes       JSONB NOT NULL DEFAULT '[]',
	error_message  TEXT NOT NULL DEFAULT '',
	started_at     TIMESTAMPTZ NOT NULL,
	completed_at   TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS render_runs_maintenance_idx
	ON render_runs (maintenance_id, started_at DESC);
`

// Migrate creates the render_runs table if it does not exist.
func (s *PgStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("pgstore: migrate: %w", err)
	}
	return nil
}

const runCols = `id, maintenance_id, operators, steps, dist_dir, status,
	written, skipped, failed, published, outcomes, error_message,
	started_at, completed_at`

// SaveRun inserts or updates a render run.
func (s *PgStore) SaveRun(ctx context.Context, r *models.RenderRun) error {
	outcomes := r.Outcomes
	if outcomes == nil {
		outcomes = []models.StepOutcome{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO render_runs (`+runCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (id) DO UPDATE SET
			status=$6, written=$7, skipped=$8, failed=$9, published=$10,
			outcomes=$11, error_message=$12, completed_at=$14`,
		r.ID, r.MaintenanceID, nonNil(r.Operators), nonNilInts(r.Steps), r.DistDir,
		string(r.Status), r.Written, r.Skipped, r.Failed, nonNil(r.Published),
		outcomes, r.ErrorMessage, r.StartedAt, r.CompletedAt)
	if err != nil {
		return fmt.Errorf("pgstore: save run: %w", err)
	}
	return nil
}

// GetRun retrieves a render run by ID.
func (s *PgStore) GetRun(ctx context.Context, id string) (*models.RenderRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+runCols+` FROM render_runs WHERE id = $1`, id)
	return scanRun(row)
}

// ListRuns returns runs newest first, optionally for one maintenance.
func (s *PgStore) ListRuns(ctx context.Context, maintenanceID string) ([]*models.RenderRun, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+runCols+` FROM render_runs
		WHERE $1 = '' OR maintenance_id = $1
		ORDER BY started_at DESC, id DESC`, maintenanceID)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.RenderRun
	for rows.Next() {
		run, scanErr := scanRun(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(s scannable) (*models.RenderRun, error) {
	var r models.RenderRun
	var status string
	err := s.Scan(
		&r.ID, &r.MaintenanceID, &r.Operators, &r.Steps, &r.DistDir, &status,
		&r.Written, &r.Skipped, &r.Failed, &r.Published, &r.Outcomes,
		&r.ErrorMessage, &r.StartedAt, &r.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("pgstore: scan run: %w", err)
	}
	r.Status = models.RunStatus(status)
	return &r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilInts(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}
