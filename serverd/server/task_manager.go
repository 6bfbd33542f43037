package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seq2func/seq2func/internals/schemas"
)

const (
	taskRetention   = time.Hour
	janitorInterval = 5 * time.Minute
)

var ErrTaskNotFound = errors.New("task not found")

type taskRunner func(ctx context.Context, report func(schemas.ProgressInfo)) (*schemas.SearchResponse, error)

type taskManager struct {
	store  *taskStore
	logger *slog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func newTaskManager(store *taskStore, logger *slog.Logger) *taskManager {
	return &taskManager{
		store:   store,
		logger:  logger,
		cancels: make(map[string]context.CancelFunc),
	}
}

// Start creates a task record and immediately launches the runner in a
// goroutine. The returned response always reports the pending status the
// caller observed, even if the runner has already advanced past it.
func (m *taskManager) Start(taskType string, payload any, runner taskRunner) (*schemas.TaskStartResponse, error) {
	taskID := uuid.NewString()
	record, err := m.store.newRecord(taskID, taskType, payload)
	if err != nil {
		return nil, err
	}
	if err := m.store.create(context.Background(), record); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.cancels[taskID] = cancel
	m.mu.Unlock()

	go m.run(runCtx, taskID, record, runner)

	return &schemas.TaskStartResponse{TaskID: taskID, Status: schemas.TaskStatusPending}, nil
}

func (m *taskManager) run(ctx context.Context, taskID string, record taskRecord, runner taskRunner) {
	defer func() {
		m.mu.Lock()
		if cancel, ok := m.cancels[taskID]; ok {
			cancel()
			delete(m.cancels, taskID)
		}
		m.mu.Unlock()
	}()

	record.Status = schemas.TaskStatusRunning
	record.StartedAt = time.Now().UTC().Format(time.RFC3339Nano)
	if err := m.store.update(context.Background(), record); err != nil {
		m.logger.Error("Failed to mark task running", "task_id", taskID, "error", err)
	}

	report := func(info schemas.ProgressInfo) {
		data, err := json.Marshal(info)
		if err != nil {
			m.logger.Error("Failed to encode task progress", "task_id", taskID, "error", err)
			return
		}
		if err := m.store.setProgress(context.Background(), taskID, string(data)); err != nil {
			m.logger.Error("Failed to persist task progress", "task_id", taskID, "error", err)
		}
	}

	result, runErr := runner(ctx, report)

	record.FinishedAt = time.Now().UTC().Format(time.RFC3339Nano)
	resultJSON, err := m.store.marshalResult(result)
	if err != nil {
		m.logger.Error("Failed to encode task result", "task_id", taskID, "error", err)
	}
	record.ResultJSON = resultJSON

	switch {
	case runErr == nil:
		record.Status = schemas.TaskStatusCompleted
	case errors.Is(runErr, context.Canceled):
		// Partial results survive cancellation.
		record.Status = schemas.TaskStatusCancelled
	default:
		record.Status = schemas.TaskStatusFailed
		record.Error = runErr.Error()
	}

	if err := m.store.update(context.Background(), record); err != nil {
		m.logger.Error("Failed to finalize task", "task_id", taskID, "error", err)
	}
}

// Cancel signals the task's context. It is advisory: the workflow stops at
// its next cancellation checkpoint and the final status flip happens in run.
func (m *taskManager) Cancel(taskID string) (*schemas.TaskStatusResponse, error) {
	response, err := m.Get(taskID)
	if err != nil {
		return nil, err
	}
	if response.Status.Terminal() {
		return response, nil
	}

	m.mu.Lock()
	cancel, ok := m.cancels[taskID]
	m.mu.Unlock()
	if ok {
		cancel()
	}
	return response, nil
}

func (m *taskManager) Get(taskID string) (*schemas.TaskStatusResponse, error) {
	record, err := m.store.get(context.Background(), taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return recordToResponse(record)
}

// Janitor purges finished tasks older than the retention window, mirroring
// the periodic cleanup of long-dead tasks. Blocks until ctx is done.
func (m *taskManager) Janitor(ctx context.Context) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := m.store.purgeFinished(ctx, time.Now().Add(-taskRetention))
			if err != nil {
				m.logger.Error("Failed to purge finished tasks", "error", err)
				continue
			}
			if purged > 0 {
				m.logger.Debug("Purged finished tasks", "count", purged)
			}
		}
	}
}

func recordToResponse(record *taskRecord) (*schemas.TaskStatusResponse, error) {
	response := &schemas.TaskStatusResponse{
		TaskID:     record.ID,
		Status:     record.Status,
		CreatedAt:  record.CreatedAt,
		StartedAt:  record.StartedAt,
		FinishedAt: record.FinishedAt,
		Error:      record.Error,
	}
	if record.ProgressJSON != "" {
		var progress schemas.ProgressInfo
		if err := json.Unmarshal([]byte(record.ProgressJSON), &progress); err != nil {
			return nil, err
		}
		response.Progress = &progress
	}
	if record.ResultJSON != "" {
		var result schemas.SearchResponse
		if err := json.Unmarshal([]byte(record.ResultJSON), &result); err != nil {
			return nil, err
		}
		response.Result = &result
	}
	return response, nil
}
