package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	z "github.com/Oudwins/zog"
	"github.com/go-chi/chi/v5"

	"github.com/seq2func/seq2func/internals/genesearch"
	"github.com/seq2func/seq2func/internals/schemas"
)

const taskTypeGeneSearch = "gene_search"

func (s *Server) HandlerStartSearch(w http.ResponseWriter, r *http.Request) {
	var request schemas.GeneSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		RenderJSON(w, r, JsonResponseError(JsonResponseErrorCodeInvalidJson, "Invalid JSON", nil), Render.Status(http.StatusBadRequest))
		return
	}

	if issues := schemas.GeneSearchSchema.Validate(&request); len(issues) > 0 {
		payload := JsonResponseError(JsonResponseErrorCodeValidationFailed, "Schema validation failed", z.Issues.Flatten(issues))
		RenderJSON(w, r, payload, Render.Status(http.StatusBadRequest))
		return
	}
	s.applySearchDefaults(&request)

	response, err := s.startSearchTask(request)
	if err != nil {
		RenderJSON(w, r, JsonResponseError(JsonResponseErroCodeInternal, err.Error(), nil), Render.Status(http.StatusInternalServerError))
		return
	}
	RenderJSON(w, r, response, Render.Status(http.StatusAccepted))
}

func (s *Server) HandlerTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	if taskID == "" {
		RenderJSON(w, r, JsonResponseError(JsonResponseErrorCodeValidationFailed, "task id is required", nil), Render.Status(http.StatusBadRequest))
		return
	}

	response, err := s.tasks.Get(taskID)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			RenderJSON(w, r, JsonResponseError(JsonResponseErrorCodeNotFound, "Task not found", nil), Render.Status(http.StatusNotFound))
			return
		}
		RenderJSON(w, r, JsonResponseError(JsonResponseErroCodeInternal, "Failed to read task status", nil), Render.Status(http.StatusInternalServerError))
		return
	}

	RenderJSON(w, r, response)
}

func (s *Server) HandlerCancelTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	if taskID == "" {
		RenderJSON(w, r, JsonResponseError(JsonResponseErrorCodeValidationFailed, "task id is required", nil), Render.Status(http.StatusBadRequest))
		return
	}

	current, err := s.tasks.Cancel(taskID)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			RenderJSON(w, r, JsonResponseError(JsonResponseErrorCodeNotFound, "Task not found", nil), Render.Status(http.StatusNotFound))
			return
		}
		RenderJSON(w, r, JsonResponseError(JsonResponseErroCodeInternal, "Failed to cancel task", nil), Render.Status(http.StatusInternalServerError))
		return
	}

	// For already-finished tasks the terminal status is reported as-is.
	status := "cancelling"
	if current.Status.Terminal() {
		status = string(current.Status)
	}
	RenderJSON(w, r, schemas.TaskCancelResponse{TaskID: taskID, Status: status})
}

// HandlerSyncSearch is the deprecated blocking variant of the search. It
// runs the whole workflow inside the request.
func (s *Server) HandlerSyncSearch(w http.ResponseWriter, r *http.Request) {
	request := searchRequestFromQuery(r)
	if issues := schemas.GeneSearchSchema.Validate(&request); len(issues) > 0 {
		payload := JsonResponseError(JsonResponseErrorCodeValidationFailed, "Schema validation failed", z.Issues.Flatten(issues))
		RenderJSON(w, r, payload, Render.Status(http.StatusBadRequest))
		return
	}
	s.applySearchDefaults(&request)

	w.Header().Set("Deprecation", "true")
	results, err := s.searcher.SearchGene(r.Context(), request, nil)
	if err != nil {
		RenderJSON(w, r, JsonResponseError(JsonResponseErroCodeInternal, err.Error(), nil), Render.Status(http.StatusInternalServerError))
		return
	}
	RenderJSON(w, r, searchResponse(results))
}

func (s *Server) startSearchTask(request schemas.GeneSearchRequest) (*schemas.TaskStartResponse, error) {
	return s.tasks.Start(taskTypeGeneSearch, request, func(ctx context.Context, report func(schemas.ProgressInfo)) (*schemas.SearchResponse, error) {
		results, err := s.searcher.SearchGene(ctx, request, genesearch.ProgressFunc(report))
		response := searchResponse(results)
		if err != nil {
			return response, err
		}
		if len(results) > 0 && s.kb != nil {
			if saveErr := s.kb.SavePaperResults(context.Background(), results); saveErr != nil {
				s.Base.Logger.Warn("Failed to store search results", "gene_symbol", request.GeneSymbol, "error", saveErr)
			}
		}
		return response, nil
	})
}

func (s *Server) applySearchDefaults(request *schemas.GeneSearchRequest) {
	if request.MaxResults == 0 {
		request.MaxResults = s.Base.Config.Search.MaxResults
	}
	if request.TopN == 0 {
		request.TopN = s.Base.Config.Search.TopN
	}
}

func searchRequestFromQuery(r *http.Request) schemas.GeneSearchRequest {
	query := r.URL.Query()
	request := schemas.GeneSearchRequest{
		GeneSymbol: query.Get("gene_symbol"),
	}
	if raw := query.Get("max_results"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			request.MaxResults = value
		}
	}
	if raw := query.Get("top_n"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			request.TopN = value
		}
	}
	if raw := query.Get("include_reprogramming"); raw != "" {
		request.IncludeReprogramming = raw == "1" || raw == "true"
	}
	return request
}

func searchResponse(results []schemas.PaperResult) *schemas.SearchResponse {
	if results == nil {
		results = []schemas.PaperResult{}
	}
	return &schemas.SearchResponse{Results: results, Count: len(results)}
}
