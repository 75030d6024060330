package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossrail/internal/rails"
	"crossrail/internal/transfer/models"
	"crossrail/pkg/platform/sentinel"
)

func finalizedOutcome(t *testing.T, requestID string, steps ...models.StepResult) *models.TransferOutcome {
	t.Helper()
	o := models.NewOutcome(requestID)
	for _, s := range steps {
		o.AppendStep(s)
	}
	require.NoError(t, o.Finalize(models.TransferCompleted))
	return o
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemory()
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryStore_FinalizeAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	o := finalizedOutcome(t, "req-1", models.StepResult{Step: models.StepDebit, Status: rails.StatusCompleted})
	require.NoError(t, s.Finalize(ctx, o))

	got, err := s.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, models.TransferCompleted, got.Status)
	assert.Len(t, got.Steps, 1)
}

func TestMemoryStore_FinalizeTwiceConflicts(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Finalize(ctx, finalizedOutcome(t, "req-1")))
	err := s.Finalize(ctx, finalizedOutcome(t, "req-1"))
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Finalize(ctx, finalizedOutcome(t, "req-1",
		models.StepResult{Step: models.StepDebit, Status: rails.StatusCompleted})))

	first, err := s.Get(ctx, "req-1")
	require.NoError(t, err)
	first.Steps[0].Status = rails.StatusFailed

	second, err := s.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, rails.StatusCompleted, second.Steps[0].Status, "callers cannot mutate the record")
}

func TestMemoryStore_PendingTracking(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Finalize(ctx, finalizedOutcome(t, "req-pending",
		models.StepResult{Step: models.StepPayout, Status: rails.StatusPending})))
	require.NoError(t, s.Finalize(ctx, finalizedOutcome(t, "req-done",
		models.StepResult{Step: models.StepPayout, Status: rails.StatusCompleted})))

	ids, err := s.ListPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"req-pending"}, ids)

	require.NoError(t, s.UpdateStepStatus(ctx, "req-pending", models.StepPayout, rails.StatusCompleted))

	ids, err = s.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMemoryStore_UpdateStepStatusMissing(t *testing.T) {
	s := NewMemory()
	err := s.UpdateStepStatus(context.Background(), "missing", models.StepDebit, rails.StatusCompleted)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
