package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/seq2func/seq2func/internals/conf"
	"github.com/seq2func/seq2func/internals/env"
	"github.com/seq2func/seq2func/internals/genesearch"
	"github.com/seq2func/seq2func/internals/kb"
	"github.com/seq2func/seq2func/internals/logbuf"
	"github.com/seq2func/seq2func/internals/schemas"
	"github.com/seq2func/seq2func/internals/testutil"
	"github.com/seq2func/seq2func/serverd/baseserver"
)

func waitForStatus(store *taskStore, taskID string, status schemas.TaskStatus) error {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		record, err := store.get(context.Background(), taskID)
		if err == nil && record.Status == status {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return errors.New("timeout waiting for status")
}

// fakeSearcher scripts the workflow for handler tests.
type fakeSearcher struct {
	results  []schemas.PaperResult
	err      error
	release  chan struct{}
	progress []schemas.ProgressInfo
}

func (f *fakeSearcher) SearchGene(ctx context.Context, req schemas.GeneSearchRequest, report genesearch.ProgressFunc) ([]schemas.PaperResult, error) {
	for _, info := range f.progress {
		if report != nil {
			report(info)
		}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return f.results, context.Canceled
		}
	}
	if ctx.Err() != nil {
		return f.results, context.Canceled
	}
	return f.results, f.err
}

func newTestServer(t *testing.T, searcher geneSearcher) *Server {
	t.Helper()

	store, err := newTaskStore(testutil.TempDBPath(t))
	if err != nil {
		t.Fatalf("newTaskStore: %v", err)
	}
	kbStore, err := kb.Open(testutil.TempKBPath(t))
	if err != nil {
		t.Fatalf("kb.Open: %v", err)
	}
	t.Cleanup(func() { _ = kbStore.Close() })

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	base := &baseserver.BaseServer{
		Config: &conf.Config{
			Version: "test",
			Search:  conf.SearchConfig{MaxResults: 200, TopN: 20},
		},
		Env:    &env.EnvStruct{},
		Logger: logger,
	}

	return &Server{
		Base:     base,
		Logbuf:   logbuf.New(),
		tasks:    newTaskManager(store, logger),
		kb:       kbStore,
		searcher: searcher,
	}
}
