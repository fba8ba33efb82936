package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/models"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	runs := []*models.RenderRun{
		{ID: "r1", MaintenanceID: "m1", StartedAt: base},
		{ID: "r2", MaintenanceID: "m2", StartedAt: base.Add(time.Minute)},
		{ID: "r3", MaintenanceID: "m1", StartedAt: base.Add(2 * time.Minute),
			Outcomes: []models.StepOutcome{{Operator: "alice", Status: models.OutcomeWritten}}},
	}
	for _, r := range runs {
		require.NoError(t, s.SaveRun(ctx, r))
	}

	t.Run("get", func(t *testing.T) {
		got, err := s.GetRun(ctx, "r3")
		require.NoError(t, err)
		assert.Equal(t, "m1", got.MaintenanceID)
		require.Len(t, got.Outcomes, 1)

		_, err = s.GetRun(ctx, "nope")
		assert.ErrorIs(t, err, ErrRunNotFound)
	})

	t.Run("list newest first", func(t *testing.T) {
		all, err := s.ListRuns(ctx, "")
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "r3", all[0].ID)
		assert.Equal(t, "r1", all[2].ID)

		m1, err := s.ListRuns(ctx, "m1")
		require.NoError(t, err)
		require.Len(t, m1, 2)
		assert.Equal(t, "r3", m1[0].ID)
	})

	t.Run("stored runs are copies", func(t *testing.T) {
		runs[2].Outcomes[0].Status = models.OutcomeFailed
		got, err := s.GetRun(ctx, "r3")
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeWritten, got.Outcomes[0].Status)
	})

	t.Run("update", func(t *testing.T) {
		runs[0].Status = models.RunStatusCompleted
		require.NoError(t, s.SaveRun(ctx, runs[0]))
		got, err := s.GetRun(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, models.RunStatusCompleted, got.Status)
	})

	assert.Error(t, s.SaveRun(ctx, &models.RenderRun{}))
}
