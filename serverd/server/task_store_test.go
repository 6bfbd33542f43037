package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/seq2func/seq2func/internals/schemas"
	"github.com/seq2func/seq2func/internals/testutil"
)

func TestNewTaskStoreInitializesSchema(t *testing.T) {
	store, err := newTaskStore(testutil.TempDBPath(t))
	if err != nil {
		t.Fatalf("newTaskStore: %v", err)
	}

	row := store.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='tasks'")
	var name string
	if err := row.Scan(&name); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if name != "tasks" {
		t.Fatalf("expected tasks table, got %q", name)
	}
}

func TestTaskStoreRecordRoundTrip(t *testing.T) {
	store, err := newTaskStore(testutil.TempDBPath(t))
	if err != nil {
		t.Fatalf("newTaskStore: %v", err)
	}

	record, err := store.newRecord("task1", taskTypeGeneSearch, map[string]string{"gene_symbol": "NRF2"})
	if err != nil {
		t.Fatalf("newRecord: %v", err)
	}
	if err := store.create(context.Background(), record); err != nil {
		t.Fatalf("create: %v", err)
	}

	update := record
	update.Status = schemas.TaskStatusRunning
	update.StartedAt = "now"
	if err := store.update(context.Background(), update); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.get(context.Background(), "task1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != schemas.TaskStatusRunning {
		t.Fatalf("expected status running, got %s", got.Status)
	}
	if got.StartedAt == "" {
		t.Fatalf("expected started_at to be set")
	}

	var decoded map[string]string
	if err := json.Unmarshal([]byte(got.PayloadJSON), &decoded); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if decoded["gene_symbol"] != "NRF2" {
		t.Fatalf("unexpected payload %v", decoded)
	}
}

func TestTaskStoreSetProgress(t *testing.T) {
	store, err := newTaskStore(testutil.TempDBPath(t))
	if err != nil {
		t.Fatalf("newTaskStore: %v", err)
	}

	record, err := store.newRecord("task1", taskTypeGeneSearch, nil)
	if err != nil {
		t.Fatalf("newRecord: %v", err)
	}
	if err := store.create(context.Background(), record); err != nil {
		t.Fatalf("create: %v", err)
	}

	progress, _ := json.Marshal(schemas.ProgressInfo{CurrentStep: "Searching PubMed", StepNumber: 2, TotalSteps: 7})
	if err := store.setProgress(context.Background(), "task1", string(progress)); err != nil {
		t.Fatalf("setProgress: %v", err)
	}

	got, err := store.get(context.Background(), "task1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var decoded schemas.ProgressInfo
	if err := json.Unmarshal([]byte(got.ProgressJSON), &decoded); err != nil {
		t.Fatalf("unmarshal progress: %v", err)
	}
	if decoded.CurrentStep != "Searching PubMed" || decoded.StepNumber != 2 {
		t.Fatalf("unexpected progress %+v", decoded)
	}
}

func TestTaskStorePurgeFinished(t *testing.T) {
	store, err := newTaskStore(testutil.TempDBPath(t))
	if err != nil {
		t.Fatalf("newTaskStore: %v", err)
	}

	old := time.Now().Add(-2 * time.Hour).UTC().Format(time.RFC3339Nano)
	recent := time.Now().UTC().Format(time.RFC3339Nano)

	records := []taskRecord{
		{ID: "old-done", Type: taskTypeGeneSearch, Status: schemas.TaskStatusCompleted, CreatedAt: old, FinishedAt: old},
		{ID: "old-failed", Type: taskTypeGeneSearch, Status: schemas.TaskStatusFailed, CreatedAt: old, FinishedAt: old},
		{ID: "fresh-done", Type: taskTypeGeneSearch, Status: schemas.TaskStatusCompleted, CreatedAt: recent, FinishedAt: recent},
		{ID: "still-running", Type: taskTypeGeneSearch, Status: schemas.TaskStatusRunning, CreatedAt: old},
	}
	for _, record := range records {
		if err := store.create(context.Background(), record); err != nil {
			t.Fatalf("create %s: %v", record.ID, err)
		}
	}

	purged, err := store.purgeFinished(context.Background(), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("purgeFinished: %v", err)
	}
	if purged != 2 {
		t.Fatalf("expected 2 purged, got %d", purged)
	}

	for _, id := range []string{"fresh-done", "still-running"} {
		if _, err := store.get(context.Background(), id); err != nil {
			t.Fatalf("expected %s to survive: %v", id, err)
		}
	}
	if _, err := store.get(context.Background(), "old-done"); err == nil {
		t.Fatalf("expected old-done to be purged")
	}
}
