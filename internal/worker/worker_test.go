package worker

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"agenda/internal/database"
	"agenda/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func testShow(id int64) *models.Show {
	return &models.Show{ID: id, Location: "Bar do Zé", Date: "2025-11-12", StartTime: "20:00", EndTime: "22:00", Fee: 1500, Status: models.ShowScheduled}
}

func TestProcessTaskSuccess(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{}
	worker := NewSheetsWorker(db, sheets, nil, RetryPolicy{}, nil)

	ctx := context.Background()
	if err := worker.EnqueueUpsert(ctx, testShow(1)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	task, ok := worker.tryLocalQueue()
	if !ok {
		t.Fatalf("expected task in local queue")
	}
	worker.processTask(ctx, &task)

	status, retryCount, nextRetry := loadTaskStatus(t, db, task.ID)
	if status != models.SyncStatusCompleted {
		t.Fatalf("expected status=completed, got %s", status)
	}
	if retryCount != 0 {
		t.Fatalf("expected retry_count=0, got %d", retryCount)
	}
	if nextRetry.Valid {
		t.Fatalf("expected next_retry_at NULL on success")
	}
	if sheets.upsertCalls != 1 {
		t.Fatalf("expected upsert call, got %d", sheets.upsertCalls)
	}
	if sheets.lastShow == nil || sheets.lastShow.Location != "Bar do Zé" {
		t.Fatalf("show payload not delivered: %+v", sheets.lastShow)
	}
}

func TestProcessTaskRetry(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{err: errors.New("boom")}
	worker := NewSheetsWorker(db, sheets, nil, RetryPolicy{MaxRetries: 3, InitialDelay: time.Second}, nil)

	ctx := context.Background()
	if err := worker.EnqueueUpsert(ctx, testShow(2)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	task, ok := worker.tryLocalQueue()
	if !ok {
		t.Fatalf("expected task in local queue")
	}
	worker.processTask(ctx, &task)

	status, retryCount, nextRetry := loadTaskStatus(t, db, task.ID)
	if status != models.SyncStatusRetry {
		t.Fatalf("expected status=retry, got %s", status)
	}
	if retryCount != 1 {
		t.Fatalf("expected retry_count=1, got %d", retryCount)
	}
	if !nextRetry.Valid || nextRetry.Time.Before(time.Now()) {
		t.Fatalf("expected next_retry_at in future, got %v", nextRetry)
	}
}

func TestProcessTaskFail(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{err: errors.New("fatal")}
	worker := NewSheetsWorker(db, sheets, nil, RetryPolicy{MaxRetries: 1}, nil)

	ctx := context.Background()
	if err := worker.EnqueueDelete(ctx, 3); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	task, _ := worker.tryLocalQueue()
	worker.processTask(ctx, &task)

	status, _, _ := loadTaskStatus(t, db, task.ID)
	if status != models.SyncStatusFailed {
		t.Fatalf("expected status=failed, got %s", status)
	}
	failed, err := db.GetFailedSyncTasks(ctx)
	if err != nil || len(failed) != 1 {
		t.Fatalf("expected 1 failed task, got %d (%v)", len(failed), err)
	}
}

func TestProcessTaskBadPayload(t *testing.T) {
	db := newTestDB(t)
	worker := NewSheetsWorker(db, &fakeSheets{}, nil, RetryPolicy{}, nil)
	ctx := context.Background()

	task := models.SyncTask{TaskType: models.SyncUpsert, ShowID: 4, Payload: "not json"}
	if err := db.CreateSyncTask(ctx, &task); err != nil {
		t.Fatalf("create: %v", err)
	}
	worker.processTask(ctx, &task)

	status, _, _ := loadTaskStatus(t, db, task.ID)
	if status != models.SyncStatusFailed {
		t.Fatalf("expected status=failed, got %s", status)
	}
}

func TestSheetsWorker_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	db := newTestDB(t)
	sheets := &fakeSheets{err: errors.New("sheets down")}
	worker := NewSheetsWorker(db, sheets, client, RetryPolicy{MaxRetries: 1}, nil)
	ctx := context.Background()

	if err := worker.EnqueueUpsert(ctx, testShow(5)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, ok := worker.tryLocalQueue(); ok {
		t.Fatalf("task should go to redis, not the memory queue")
	}
	if n, _ := client.LLen(ctx, "sheets:queue").Result(); n != 1 {
		t.Fatalf("expected 1 task in redis queue, got %d", n)
	}

	task, ok := worker.tryRedis(ctx)
	if !ok {
		t.Fatalf("expected task from redis")
	}
	if task.ShowID != 5 {
		t.Fatalf("expected show 5, got %d", task.ShowID)
	}
	worker.processTask(ctx, &task)

	if n, _ := client.LLen(ctx, "sheets:deadletter").Result(); n != 1 {
		t.Fatalf("expected failed task in deadletter, got %d", n)
	}
}

func TestSheetsWorker_Start(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{}
	worker := NewSheetsWorker(db, sheets, nil, RetryPolicy{}, nil)
	worker.pollInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	if err := worker.EnqueueUpsert(ctx, testShow(6)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := worker.EnqueueDelete(ctx, 6); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		pending, _ := db.GetPendingSyncTasks(context.Background(), 10)
		if len(pending) == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not stop")
	}
	if sheets.Upserts() != 1 || sheets.Deletes() != 1 {
		t.Fatalf("expected 1 upsert and 1 delete, got %d/%d", sheets.Upserts(), sheets.Deletes())
	}
}

func TestSheetsWorker_HandleSheetTask(t *testing.T) {
	sheets := &fakeSheets{}
	worker := NewSheetsWorker(nil, sheets, nil, RetryPolicy{MaxRetries: 3}, nil)
	ctx := context.Background()

	if err := worker.handleSheetTask(ctx, models.SyncUpsert, showTaskPayload{Show: testShow(1)}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := worker.handleSheetTask(ctx, models.SyncDelete, showTaskPayload{ShowID: 123}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := worker.handleSheetTask(ctx, models.SyncUpsert, showTaskPayload{ShowID: 1}); err == nil {
		t.Fatalf("expected error for missing show")
	}
	if err := worker.handleSheetTask(ctx, "rename", showTaskPayload{ShowID: 1}); err == nil {
		t.Fatalf("expected error for unknown task type")
	}
	if sheets.upsertCalls != 1 || sheets.deleteCalls != 1 {
		t.Fatalf("unexpected calls: %d upserts, %d deletes", sheets.upsertCalls, sheets.deleteCalls)
	}
}

func TestSheetsWorker_EnqueueValidation(t *testing.T) {
	worker := NewSheetsWorker(newTestDB(t), &fakeSheets{}, nil, RetryPolicy{}, nil)
	ctx := context.Background()

	if err := worker.EnqueueUpsert(ctx, nil); err == nil {
		t.Fatalf("expected error for nil show")
	}
	if err := worker.EnqueueUpsert(ctx, &models.Show{}); err == nil {
		t.Fatalf("expected error for unsaved show")
	}
	if err := worker.EnqueueDelete(ctx, 0); err == nil {
		t.Fatalf("expected error for missing show id")
	}
}

func TestSheetsWorker_DecodePayload(t *testing.T) {
	worker := NewSheetsWorker(nil, nil, nil, RetryPolicy{}, nil)

	decoded, err := worker.decodePayload(`{"show_id":123,"show":{"id":123,"location":"Bar"}}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ShowID != 123 || decoded.Show == nil || decoded.Show.Location != "Bar" {
		t.Fatalf("unexpected decoded payload: %+v", decoded)
	}

	if _, err := worker.decodePayload(`invalid json`); err == nil {
		t.Fatalf("expected error for invalid json")
	}
}

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2, MaxDelay: 5 * time.Second}

	if d := policy.NextDelay(1); d != time.Second {
		t.Fatalf("attempt1 expected 1s, got %s", d)
	}
	if d := policy.NextDelay(2); d != 2*time.Second {
		t.Fatalf("attempt2 expected 2s, got %s", d)
	}
	if d := policy.NextDelay(5); d != 5*time.Second {
		t.Fatalf("attempt5 expected capped 5s, got %s", d)
	}
	if d := (RetryPolicy{}).NextDelay(0); d != time.Second {
		t.Fatalf("zero policy expected 1s, got %s", d)
	}
}

func TestRetryPolicyExhausted(t *testing.T) {
	def := DefaultRetryPolicy()
	if def.MaxRetries != 5 || def.InitialDelay != 2*time.Second || def.MaxDelay != 5*time.Minute {
		t.Fatalf("unexpected default policy: %+v", def)
	}
	if d := def.NextDelay(3); d != 8*time.Second {
		t.Fatalf("attempt3 expected 8s, got %s", d)
	}
	if d := def.NextDelay(200); d != 5*time.Minute {
		t.Fatalf("huge attempt expected cap, got %s", d)
	}

	cases := []struct {
		policy  RetryPolicy
		attempt int
		want    bool
	}{
		{RetryPolicy{MaxRetries: 1}, 1, true},
		{RetryPolicy{MaxRetries: 3}, 2, false},
		{RetryPolicy{MaxRetries: 3}, 3, true},
		{RetryPolicy{}, 4, false},
		{RetryPolicy{}, 5, true},
	}
	for _, tc := range cases {
		if got := tc.policy.Exhausted(tc.attempt); got != tc.want {
			t.Fatalf("Exhausted(%d) with %+v = %v, want %v", tc.attempt, tc.policy, got, tc.want)
		}
	}
}

// Helpers

type fakeSheets struct {
	mu          sync.Mutex
	err         error
	upsertCalls int
	deleteCalls int
	lastShow    *models.Show
}

func (f *fakeSheets) UpsertShow(_ context.Context, s *models.Show) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	f.lastShow = s
	return f.err
}

func (f *fakeSheets) DeleteShowRow(_ context.Context, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	return f.err
}

func (f *fakeSheets) Upserts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upsertCalls
}

func (f *fakeSheets) Deletes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteCalls
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worker.db")
	logger := zerolog.Nop()
	db, err := database.NewDB(path, &logger)
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func loadTaskStatus(t *testing.T, db *database.DB, id int64) (status string, retryCount int, nextRetry sql.NullTime) {
	t.Helper()
	row := db.QueryRowContext(context.Background(), `SELECT status, retry_count, next_retry_at FROM sync_queue WHERE id = ?`, id)
	if err := row.Scan(&status, &retryCount, &nextRetry); err != nil {
		t.Fatalf("scan task: %v", err)
	}
	return status, retryCount, nextRetry
}
