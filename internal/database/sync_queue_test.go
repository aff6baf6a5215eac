package database

import (
	"context"
	"testing"
	"time"

	"agenda/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncQueueCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	task := &models.SyncTask{
		TaskType: models.SyncUpsert,
		ShowID:   100,
		Payload:  `{"id":100}`,
	}
	require.NoError(t, db.CreateSyncTask(ctx, task))
	assert.Equal(t, models.SyncStatusPending, task.Status)

	tasks, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, int64(100), tasks[0].ShowID)

	require.NoError(t, db.UpdateSyncTaskStatus(ctx, tasks[0].ID, models.SyncStatusCompleted, "", nil))
	tasks, err = db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	errMsg := "sheets unavailable"
	require.NoError(t, db.CreateSyncTask(ctx, &models.SyncTask{
		TaskType: models.SyncDelete, ShowID: 101, Status: models.SyncStatusFailed, LastError: &errMsg,
	}))
	failed, err := db.GetFailedSyncTasks(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, errMsg, *failed[0].LastError)

	retry := &models.SyncTask{TaskType: models.SyncUpsert, ShowID: 102}
	require.NoError(t, db.CreateSyncTask(ctx, retry))

	future := time.Now().Add(time.Hour)
	require.NoError(t, db.UpdateSyncTaskStatus(ctx, retry.ID, "retry", "temporary error", &future))
	tasks, err = db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, db.UpdateSyncTaskStatus(ctx, retry.ID, "retry", "temporary error", &past))
	tasks, err = db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 2, tasks[0].RetryCount)

	purged, err := db.PurgeSyncTasks(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}
