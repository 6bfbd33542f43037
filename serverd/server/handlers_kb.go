package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/seq2func/seq2func/internals/kb"
)

const (
	searchLimitDefault = 10
	searchLimitMax     = 50
)

func (s *Server) HandlerListGenes(w http.ResponseWriter, r *http.Request) {
	genes, err := s.kb.ListGenes(r.Context())
	if err != nil {
		RenderJSON(w, r, JsonResponseError(JsonResponseErroCodeInternal, "Failed to list genes", nil), Render.Status(http.StatusInternalServerError))
		return
	}
	RenderJSON(w, r, map[string]any{"genes": genes, "count": len(genes)})
}

func (s *Server) HandlerSearchGenes(w http.ResponseWriter, r *http.Request) {
	query, limit, ok := searchParams(w, r)
	if !ok {
		return
	}
	genes, err := s.kb.SearchGenes(r.Context(), query, limit)
	if err != nil {
		RenderJSON(w, r, JsonResponseError(JsonResponseErroCodeInternal, "Gene search failed", nil), Render.Status(http.StatusInternalServerError))
		return
	}
	RenderJSON(w, r, map[string]any{"genes": genes, "count": len(genes), "query": query})
}

func (s *Server) HandlerGeneByID(w http.ResponseWriter, r *http.Request) {
	gene, err := s.kb.GetGeneByID(r.Context(), chi.URLParam(r, "gene_id"))
	if err != nil {
		renderKBError(w, r, err, "Gene not found")
		return
	}
	RenderJSON(w, r, gene)
}

func (s *Server) HandlerGeneBySymbol(w http.ResponseWriter, r *http.Request) {
	gene, err := s.kb.GetGeneBySymbol(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		renderKBError(w, r, err, "Gene not found")
		return
	}
	RenderJSON(w, r, gene)
}

func (s *Server) HandlerListProteins(w http.ResponseWriter, r *http.Request) {
	proteins, err := s.kb.ListProteins(r.Context())
	if err != nil {
		RenderJSON(w, r, JsonResponseError(JsonResponseErroCodeInternal, "Failed to list proteins", nil), Render.Status(http.StatusInternalServerError))
		return
	}
	RenderJSON(w, r, map[string]any{"proteins": proteins, "count": len(proteins)})
}

func (s *Server) HandlerSearchProteins(w http.ResponseWriter, r *http.Request) {
	query, limit, ok := searchParams(w, r)
	if !ok {
		return
	}
	proteins, err := s.kb.SearchProteins(r.Context(), query, limit)
	if err != nil {
		RenderJSON(w, r, JsonResponseError(JsonResponseErroCodeInternal, "Protein search failed", nil), Render.Status(http.StatusInternalServerError))
		return
	}
	RenderJSON(w, r, map[string]any{"proteins": proteins, "count": len(proteins), "query": query})
}

func (s *Server) HandlerProteinByID(w http.ResponseWriter, r *http.Request) {
	protein, err := s.kb.GetProteinByID(r.Context(), chi.URLParam(r, "protein_id"))
	if err != nil {
		renderKBError(w, r, err, "Protein not found")
		return
	}
	RenderJSON(w, r, protein)
}

func (s *Server) HandlerProteinsByGene(w http.ResponseWriter, r *http.Request) {
	proteins, err := s.kb.GetProteinsByGeneID(r.Context(), chi.URLParam(r, "gene_id"))
	if err != nil {
		renderKBError(w, r, err, "Gene not found")
		return
	}
	RenderJSON(w, r, map[string]any{"proteins": proteins, "count": len(proteins)})
}

func (s *Server) HandlerProteinBySymbol(w http.ResponseWriter, r *http.Request) {
	protein, err := s.kb.GetProteinByGeneSymbol(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		renderKBError(w, r, err, "Protein not found")
		return
	}
	RenderJSON(w, r, protein)
}

func (s *Server) HandlerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.kb.GetStats(r.Context())
	if err != nil {
		RenderJSON(w, r, JsonResponseError(JsonResponseErroCodeInternal, "Failed to read stats", nil), Render.Status(http.StatusInternalServerError))
		return
	}
	RenderJSON(w, r, stats)
}

func (s *Server) HandlerHealth(w http.ResponseWriter, r *http.Request) {
	RenderJSON(w, r, map[string]any{"status": "healthy", "version": s.Base.Config.Version})
}

func searchParams(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(query) < 2 {
		RenderJSON(w, r, JsonResponseError(JsonResponseErrorCodeValidationFailed, "q must be at least 2 characters", nil), Render.Status(http.StatusBadRequest))
		return "", 0, false
	}
	limit := searchLimitDefault
	if raw := r.URL.Query().Get("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			RenderJSON(w, r, JsonResponseError(JsonResponseErrorCodeValidationFailed, "limit must be an integer", nil), Render.Status(http.StatusBadRequest))
			return "", 0, false
		}
		limit = value
	}
	if limit < 1 {
		limit = 1
	}
	if limit > searchLimitMax {
		limit = searchLimitMax
	}
	return query, limit, true
}

func renderKBError(w http.ResponseWriter, r *http.Request, err error, notFoundMessage string) {
	if errors.Is(err, kb.ErrNotFound) {
		RenderJSON(w, r, JsonResponseError(JsonResponseErrorCodeNotFound, notFoundMessage, nil), Render.Status(http.StatusNotFound))
		return
	}
	RenderJSON(w, r, JsonResponseError(JsonResponseErroCodeInternal, "Knowledge base query failed", nil), Render.Status(http.StatusInternalServerError))
}
