package server

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/seq2func/seq2func/internals/assert"
	"github.com/seq2func/seq2func/internals/genesearch"
	"github.com/seq2func/seq2func/internals/kb"
	"github.com/seq2func/seq2func/internals/logbuf"
	"github.com/seq2func/seq2func/internals/pubmed"
	"github.com/seq2func/seq2func/internals/schemas"
	"github.com/seq2func/seq2func/internals/screening"
	"github.com/seq2func/seq2func/sdk"
	"github.com/seq2func/seq2func/serverd/baseserver"
)

// geneSearcher runs a single gene literature search, reporting progress
// through the callback. Satisfied by genesearch.Workflow.
type geneSearcher interface {
	SearchGene(ctx context.Context, req schemas.GeneSearchRequest, report genesearch.ProgressFunc) ([]schemas.PaperResult, error)
}

type Server struct {
	Base       *baseserver.BaseServer
	Logbuf     *logbuf.Logger
	tasks      *taskManager
	kb         *kb.Store
	searcher   geneSearcher
	httpServer *http.Server
	janitorOff context.CancelFunc
}

func New() *Server {
	base := baseserver.New()
	buffer := logbuf.New(
		slog.String("version", base.Config.Version),
		slog.Int("port", base.Env.PORT),
	)

	storePath := filepath.Join(base.Config.Server.DataDir, "tasks", "tasks.db")
	if err := os.MkdirAll(filepath.Dir(storePath), 0o755); err != nil {
		assert.AssertNil(err, "[SERVER] Failed to create data directory")
	}
	store, err := newTaskStore(storePath)
	assert.AssertNil(err, "[SERVER] Failed to initialize task store")
	manager := newTaskManager(store, base.Logger)

	kbPath := filepath.Join(base.Config.Server.DataDir, "kb", "kb.db")
	if err := os.MkdirAll(filepath.Dir(kbPath), 0o755); err != nil {
		assert.AssertNil(err, "[SERVER] Failed to create kb directory")
	}
	kbStore, err := kb.Open(kbPath)
	assert.AssertNil(err, "[SERVER] Failed to initialize knowledge base")

	pubmedClient := pubmed.NewClient(base.Env.NCBI_EMAIL, base.Env.NCBI_API_KEY)
	screener := screening.New(screening.Config{
		APIKey:      base.Env.NEBIUS_API_KEY,
		BaseURL:     base.Env.NEBIUS_BASE_URL,
		Model:       base.Config.Screening.Model,
		Temperature: base.Config.Screening.Temperature,
	})
	workflow := genesearch.New(pubmedClient, screener, pubmed.SearchOptions{
		MaxResults:       base.Config.Search.MaxResults,
		ExcludeReviews:   base.Config.Pubmed.ExcludeReviews,
		FreeFullTextOnly: base.Config.Pubmed.FreeFullTextOnly,
	}, base.Logger)

	return &Server{
		Base:     base,
		Logbuf:   buffer,
		tasks:    manager,
		kb:       kbStore,
		searcher: workflow,
	}
}

func (s *Server) SafeStart() error {
	if sdk.IsRunning(s.Base.Env.BASE_URL) {
		return nil
	}

	go func() {
		s.Base.Logger.Info("starting server")
		err := s.Start()
		if err != nil {
			log.Fatal("[seq2func] Failed to start server: " + err.Error())
		}
	}()

	if sdk.WaitForStart(s.Base.Env.BASE_URL, s.Base.Logger) {
		return nil
	}

	return errors.New("Couldn't start server")
}

func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.Base.Env.LISTEN_ADDR)
	if err != nil {
		return err
	}

	janitorCtx, cancel := context.WithCancel(context.Background())
	s.janitorOff = cancel
	go s.tasks.Janitor(janitorCtx)

	server := &http.Server{
		Handler: s.Router(),
	}
	s.httpServer = server
	err = server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if s.janitorOff != nil {
			s.janitorOff()
		}
		if s.httpServer == nil {
			s.Base.Logger.Error("shutdown failed", "error", errors.New("server not initialized"))
			return
		}
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.Base.Logger.Error("shutdown failed", "error", err)
		}
	}()
}
