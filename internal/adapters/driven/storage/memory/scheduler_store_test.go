package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docscan/internal/core/domain"
)

func TestSchedulerStore_Tasks(t *testing.T) {
	ctx := context.Background()
	s := NewSchedulerStore()

	got, err := s.GetTask(ctx, domain.TaskIDTempCleanup)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.SaveTask(ctx, &domain.ScheduledTask{ID: domain.TaskIDTempCleanup, Interval: time.Hour}))
	require.NoError(t, s.SaveTask(ctx, &domain.ScheduledTask{ID: domain.TaskIDStaleRunRecovery}))
	assert.ErrorIs(t, s.SaveTask(ctx, nil), domain.ErrInvalidInput)

	tasks, err := s.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, domain.TaskIDStaleRunRecovery, tasks[0].ID)

	require.NoError(t, s.DeleteTask(ctx, domain.TaskIDTempCleanup))
	got, _ = s.GetTask(ctx, domain.TaskIDTempCleanup)
	assert.Nil(t, got)
}

func TestSchedulerStore_History(t *testing.T) {
	ctx := context.Background()
	s := NewSchedulerStore()

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.RecordResult(ctx, &domain.TaskResult{TaskID: "t", ItemsProcessed: i}))
	}

	h, err := s.GetTaskHistory(ctx, "t", 2)
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Equal(t, 3, h[0].ItemsProcessed)

	require.NoError(t, s.PruneHistory(ctx, 1))
	h, _ = s.GetTaskHistory(ctx, "t", 0)
	require.Len(t, h, 1)
	assert.Equal(t, 3, h[0].ItemsProcessed)
}
