package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"agenda/internal/domain"
	"agenda/internal/metrics"
	"agenda/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SyncQueue is the durable side of the worker: the sync_queue table.
type SyncQueue interface {
	domain.SyncQueueRepository
	PurgeSyncTasks(ctx context.Context, cutoff time.Time) (int64, error)
}

// showTaskPayload is persisted in SyncTask.Payload as JSON.
type showTaskPayload struct {
	ShowID int64        `json:"show_id"`
	Show   *models.Show `json:"show,omitempty"`
}

// SheetsWorker consumes sync_queue tasks and mirrors shows into Google Sheets.
type SheetsWorker struct {
	queueRepo     SyncQueue
	sheets        domain.SheetsWriter
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.SyncTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	retention     time.Duration
	logger        zerolog.Logger
}

// NewSheetsWorker builds a worker with sane defaults.
func NewSheetsWorker(queueRepo SyncQueue, sheets domain.SheetsWriter, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *SheetsWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "sheets_worker").Logger()
	}

	return &SheetsWorker{
		queueRepo:     queueRepo,
		sheets:        sheets,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan models.SyncTask, 128),
		redisQueueKey: "sheets:queue",
		deadLetterKey: "sheets:deadletter",
		pollInterval:  2 * time.Second,
		batchSize:     20,
		retention:     7 * 24 * time.Hour,
		logger:        l,
	}
}

func (w *SheetsWorker) EnqueueUpsert(ctx context.Context, show *models.Show) error {
	if show == nil || show.ID == 0 {
		return errors.New("show id is required")
	}
	return w.enqueue(ctx, models.SyncUpsert, showTaskPayload{ShowID: show.ID, Show: show})
}

func (w *SheetsWorker) EnqueueDelete(ctx context.Context, showID int64) error {
	if showID == 0 {
		return errors.New("show id is required")
	}
	return w.enqueue(ctx, models.SyncDelete, showTaskPayload{ShowID: showID})
}

// enqueue persists the task and schedules it via redis or the in-memory queue.
func (w *SheetsWorker) enqueue(ctx context.Context, taskType string, payload showTaskPayload) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	task := models.SyncTask{
		TaskType:  taskType,
		ShowID:    payload.ShowID,
		Payload:   string(payloadBytes),
		Status:    models.SyncStatusPending,
		CreatedAt: time.Now(),
	}
	if err := w.queueRepo.CreateSyncTask(ctx, &task); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, w.redisQueueKey, task); err != nil {
			w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("redis push failed, fallback to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
	default:
		// the task stays in the DB and the poller picks it up
		w.logger.Warn().Int64("task_id", task.ID).Msg("in-memory queue full, task left to polling")
	}
	return nil
}

// Start launches the main loop; stops when ctx is done.
func (w *SheetsWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("started")
	defer w.logger.Info().Msg("stopped")

	purge := time.NewTicker(time.Hour)
	defer purge.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-purge.C:
			w.purge(ctx)
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		tasks, err := w.queueRepo.GetPendingSyncTasks(ctx, w.batchSize)
		if err != nil {
			w.logger.Error().Err(err).Msg("fetch pending tasks")
		}
		if err != nil || len(tasks) == 0 {
			if !w.sleep(ctx) {
				return
			}
			continue
		}

		for i := range tasks {
			w.processTask(ctx, &tasks[i])
		}
	}
}

func (w *SheetsWorker) sleep(ctx context.Context) bool {
	timer := time.NewTimer(w.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (w *SheetsWorker) purge(ctx context.Context) {
	removed, err := w.queueRepo.PurgeSyncTasks(ctx, time.Now().Add(-w.retention))
	if err != nil {
		w.logger.Error().Err(err).Msg("purge completed tasks")
		return
	}
	if removed > 0 {
		w.logger.Debug().Int64("removed", removed).Msg("completed tasks purged")
	}
}

func (w *SheetsWorker) tryLocalQueue() (models.SyncTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.SyncTask{}, false
	}
}

func (w *SheetsWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	if w.redis == nil {
		return models.SyncTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) && !errors.Is(err, redis.Nil) {
			w.logger.Error().Err(err).Msg("redis BRPOP error")
		}
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}
	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("decode redis task")
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *SheetsWorker) processTask(ctx context.Context, task *models.SyncTask) {
	payload, err := w.decodePayload(task.Payload)
	if err != nil {
		w.failTask(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}

	if err := w.handleSheetTask(ctx, task.TaskType, payload); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	metrics.IncSheetsSync("success")
	if err := w.queueRepo.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusCompleted, "", nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark completed")
	}
}

func (w *SheetsWorker) handleSheetTask(ctx context.Context, taskType string, payload showTaskPayload) error {
	switch taskType {
	case models.SyncUpsert:
		if payload.Show == nil {
			return errors.New("show payload missing")
		}
		return w.sheets.UpsertShow(ctx, payload.Show)
	case models.SyncDelete:
		if payload.ShowID == 0 {
			return errors.New("show id missing")
		}
		return w.sheets.DeleteShowRow(ctx, payload.ShowID)
	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}
}

func (w *SheetsWorker) retryOrFail(ctx context.Context, task *models.SyncTask, cause error) {
	attempt := task.RetryCount + 1
	if w.retryPolicy.Exhausted(attempt) {
		w.failTask(ctx, task, cause)
		return
	}

	metrics.IncSheetsSync("retry")
	nextTime := time.Now().Add(w.retryPolicy.NextDelay(attempt))
	if err := w.queueRepo.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusRetry, cause.Error(), &nextTime); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark retry")
	}
}

func (w *SheetsWorker) failTask(ctx context.Context, task *models.SyncTask, cause error) {
	metrics.IncSheetsSync("failed")
	w.logger.Error().Err(cause).Int64("task_id", task.ID).Int64("show_id", task.ShowID).Msg("sync task failed")
	if err := w.queueRepo.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusFailed, cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark failed")
	}
	if w.redis != nil {
		if err := w.pushRedis(ctx, w.deadLetterKey, *task); err != nil {
			w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("deadletter push")
		}
	}
}

func (w *SheetsWorker) decodePayload(raw string) (showTaskPayload, error) {
	var payload showTaskPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}

func (w *SheetsWorker) pushRedis(ctx context.Context, key string, task models.SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}
