package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.MiddlewareLogger)
	r.Get("/version", s.HandlerVersion)
	r.Post("/shutdown", s.HandlerShutdown)

	r.Route("/agent", func(r chi.Router) {
		r.Get("/", s.HandlerSyncSearch)
		r.Post("/start", s.HandlerStartSearch)
		r.Get("/status/{task_id}", s.HandlerTaskStatus)
		r.Post("/cancel/{task_id}", s.HandlerCancelTask)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/genes", s.HandlerListGenes)
		r.Get("/genes/search", s.HandlerSearchGenes)
		r.Get("/genes/symbol/{symbol}", s.HandlerGeneBySymbol)
		r.Get("/genes/{gene_id}", s.HandlerGeneByID)
		r.Get("/proteins", s.HandlerListProteins)
		r.Get("/proteins/search", s.HandlerSearchProteins)
		r.Get("/proteins/gene/{gene_id}", s.HandlerProteinsByGene)
		r.Get("/proteins/symbol/{symbol}", s.HandlerProteinBySymbol)
		r.Get("/proteins/{protein_id}", s.HandlerProteinByID)
		r.Get("/stats", s.HandlerStats)
		r.Get("/stats/health", s.HandlerHealth)
	})

	return r
}
