package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/seq2func/seq2func/internals/schemas"
)

// pollerBackend scripts the task API for poller tests, counting requests.
type pollerBackend struct {
	statuses     []schemas.TaskStatus
	startCalls   atomic.Int64
	statusCalls  atomic.Int64
	cancelCalls  atomic.Int64
	statusErrors atomic.Int64
	failStatuses bool
	failStart    bool
	result       *schemas.SearchResponse
}

func (b *pollerBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/agent/start":
			b.startCalls.Add(1)
			if b.failStart {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"status":"failed","code":"validation_failed","message":"gene_symbol contains invalid characters"}`))
				return
			}
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(&schemas.TaskStartResponse{TaskID: "task1", Status: schemas.TaskStatusPending})
		case r.Method == http.MethodPost && r.URL.Path == "/agent/cancel/task1":
			b.cancelCalls.Add(1)
			_ = json.NewEncoder(w).Encode(&schemas.TaskCancelResponse{TaskID: "task1", Status: "cancelling"})
		case r.Method == http.MethodGet && r.URL.Path == "/agent/status/task1":
			call := b.statusCalls.Add(1)
			if b.failStatuses {
				b.statusErrors.Add(1)
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"status":"failed","code":"internal","message":"db gone"}`))
				return
			}
			idx := int(call) - 1
			if idx >= len(b.statuses) {
				idx = len(b.statuses) - 1
			}
			status := b.statuses[idx]
			response := &schemas.TaskStatusResponse{TaskID: "task1", Status: status}
			if status.Terminal() {
				response.Result = b.result
			}
			_ = json.NewEncoder(w).Encode(response)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestPoller(t *testing.T, backend *pollerBackend, opts ...PollerOption) (*SearchPoller, func()) {
	t.Helper()
	server := httptest.NewServer(backend.handler())
	client := NewClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	base := []PollerOption{WithPollInterval(10 * time.Millisecond)}
	return NewSearchPoller(client, append(base, opts...)...), server.Close
}

func TestPollerRunsToCompleted(t *testing.T) {
	backend := &pollerBackend{
		statuses: []schemas.TaskStatus{schemas.TaskStatusPending, schemas.TaskStatusRunning, schemas.TaskStatusCompleted},
		result:   &schemas.SearchResponse{Results: []schemas.PaperResult{{PMID: "9"}}, Count: 1},
	}
	var updates atomic.Int64
	poller, done := newTestPoller(t, backend, WithOnUpdate(func(status *schemas.TaskStatusResponse) {
		updates.Add(1)
	}))
	defer done()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start, err := poller.Start(ctx, schemas.GeneSearchRequest{GeneSymbol: "NRF2"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if start.Status != schemas.TaskStatusPending {
		t.Fatalf("expected pending, got %s", start.Status)
	}

	final, err := poller.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if final.Status != schemas.TaskStatusCompleted {
		t.Fatalf("expected completed, got %s", final.Status)
	}
	if final.Result == nil || final.Result.Count != 1 {
		t.Fatalf("unexpected result %+v", final.Result)
	}
	if got := backend.statusCalls.Load(); got != 3 {
		t.Fatalf("expected 3 polls (1 immediate + 2 ticks), got %d", got)
	}
	if updates.Load() != 3 {
		t.Fatalf("expected update per poll, got %d", updates.Load())
	}
	if poller.Final() == nil {
		t.Fatalf("expected Final to be recorded")
	}
}

func TestPollerImmediateTerminal(t *testing.T) {
	backend := &pollerBackend{
		statuses: []schemas.TaskStatus{schemas.TaskStatusCompleted},
		result:   &schemas.SearchResponse{Results: []schemas.PaperResult{}, Count: 0},
	}
	poller, done := newTestPoller(t, backend)
	defer done()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := poller.Start(ctx, schemas.GeneSearchRequest{GeneSymbol: "KL"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	final, err := poller.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if final.Result == nil || final.Result.Count != 0 {
		t.Fatalf("expected empty completed result, got %+v", final.Result)
	}
	if got := backend.statusCalls.Load(); got != 1 {
		t.Fatalf("terminal first poll should stop polling, got %d polls", got)
	}
}

func TestPollerStartLatch(t *testing.T) {
	backend := &pollerBackend{statuses: []schemas.TaskStatus{schemas.TaskStatusCompleted}}
	poller, done := newTestPoller(t, backend)
	defer done()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := poller.Start(ctx, schemas.GeneSearchRequest{GeneSymbol: "NRF2"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := poller.Start(ctx, schemas.GeneSearchRequest{GeneSymbol: "NRF2"}); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
	if got := backend.startCalls.Load(); got != 1 {
		t.Fatalf("double start must create one backend task, got %d", got)
	}
}

func TestPollerStartErrorIsFatal(t *testing.T) {
	backend := &pollerBackend{failStart: true}
	poller, done := newTestPoller(t, backend)
	defer done()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := poller.Start(ctx, schemas.GeneSearchRequest{GeneSymbol: "bad symbol"})
	if err == nil {
		t.Fatalf("expected start error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "gene_symbol contains invalid characters" {
		t.Fatalf("expected server message verbatim, got %v", err)
	}

	// The poller is burnt: waiting surfaces the same failure and no status
	// request ever goes out.
	if _, waitErr := poller.Wait(ctx); waitErr == nil {
		t.Fatalf("expected Wait to fail after start error")
	}
	if got := backend.statusCalls.Load(); got != 0 {
		t.Fatalf("expected no polls after start failure, got %d", got)
	}
}

func TestPollerPollErrorIsFatal(t *testing.T) {
	backend := &pollerBackend{failStatuses: true}
	poller, done := newTestPoller(t, backend)
	defer done()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := poller.Start(ctx, schemas.GeneSearchRequest{GeneSymbol: "NRF2"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := poller.Wait(ctx); err == nil {
		t.Fatalf("expected poll error")
	}
	if got := backend.statusCalls.Load(); got != 1 {
		t.Fatalf("poll errors are fatal, expected 1 attempt, got %d", got)
	}
}

func TestPollerCancelOneShot(t *testing.T) {
	backend := &pollerBackend{
		statuses: []schemas.TaskStatus{schemas.TaskStatusRunning, schemas.TaskStatusRunning, schemas.TaskStatusCancelled},
		result:   &schemas.SearchResponse{Results: []schemas.PaperResult{{PMID: "1"}}, Count: 1},
	}
	poller, done := newTestPoller(t, backend)
	defer done()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := poller.Cancel(ctx); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted before start, got %v", err)
	}

	if _, err := poller.Start(ctx, schemas.GeneSearchRequest{GeneSymbol: "FOXO3"}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	response, err := poller.Cancel(ctx)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if response.Status != "cancelling" {
		t.Fatalf("unexpected cancel response %+v", response)
	}
	if _, err := poller.Cancel(ctx); !errors.Is(err, ErrCancelRequested) {
		t.Fatalf("expected ErrCancelRequested, got %v", err)
	}

	final, err := poller.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if final.Status != schemas.TaskStatusCancelled {
		t.Fatalf("expected cancelled, got %s", final.Status)
	}
	if final.Result == nil || final.Result.Count != 1 {
		t.Fatalf("expected partial results on cancel, got %+v", final.Result)
	}

	if _, err := poller.Cancel(ctx); !errors.Is(err, ErrTaskFinished) {
		t.Fatalf("expected ErrTaskFinished after terminal status, got %v", err)
	}
	if got := backend.cancelCalls.Load(); got != 1 {
		t.Fatalf("cancel is one-shot, backend saw %d", got)
	}
}

func TestPollerInFlightGuardSkipsOverlap(t *testing.T) {
	backend := &pollerBackend{statuses: []schemas.TaskStatus{schemas.TaskStatusRunning}}
	poller, done := newTestPoller(t, backend)
	defer done()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := poller.Start(ctx, schemas.GeneSearchRequest{GeneSymbol: "NRF2"}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Simulate a still-running request: a guarded poll must skip without
	// touching the backend.
	poller.mu.Lock()
	poller.pollInFlight = true
	poller.mu.Unlock()

	status, terminal, err := poller.poll(ctx, "task1")
	if err != nil || terminal || status != nil {
		t.Fatalf("expected skipped poll, got status=%v terminal=%v err=%v", status, terminal, err)
	}
	if got := backend.statusCalls.Load(); got != 0 {
		t.Fatalf("expected no request while one is in flight, got %d", got)
	}
}
