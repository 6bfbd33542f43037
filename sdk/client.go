package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/seq2func/seq2func/internals/env"
	"github.com/seq2func/seq2func/internals/kb"
	"github.com/seq2func/seq2func/internals/schemas"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

var ErrShutdownUnsupported = errors.New("shutdown unsupported")

type ErrorResponse struct {
	Status  string              `json:"status"`
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" && e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("unexpected status: %d", e.StatusCode)
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewClient(opts ...Option) *Client {
	envs := env.Get()
	client := &Client{
		baseURL: strings.TrimRight(envs.BASE_URL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *Client) Version(ctx context.Context) (string, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/version", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", responseError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(body)), nil
}

func (c *Client) Shutdown(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/shutdown", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}
	if resp.StatusCode == http.StatusNotFound {
		return ErrShutdownUnsupported
	}
	return responseError(resp)
}

// StartSearch submits an asynchronous gene literature search. The body is
// returned as-is; the task starts out pending.
func (c *Client) StartSearch(ctx context.Context, request schemas.GeneSearchRequest) (*schemas.TaskStartResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/agent/start", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, responseError(resp)
	}

	var payload schemas.TaskStartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	return &payload, nil
}

func (c *Client) TaskStatus(ctx context.Context, taskID string) (*schemas.TaskStatusResponse, error) {
	path := "/agent/status/" + url.PathEscape(taskID)
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}

	var payload schemas.TaskStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	return &payload, nil
}

func (c *Client) CancelTask(ctx context.Context, taskID string) (*schemas.TaskCancelResponse, error) {
	path := "/agent/cancel/" + url.PathEscape(taskID)
	resp, err := c.doRequest(ctx, http.MethodPost, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, responseError(resp)
	}

	var payload schemas.TaskCancelResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	return &payload, nil
}

// Search runs the deprecated blocking search endpoint. Prefer StartSearch
// plus a SearchPoller.
func (c *Client) Search(ctx context.Context, request schemas.GeneSearchRequest) (*schemas.SearchResponse, error) {
	params := url.Values{}
	params.Set("gene_symbol", request.GeneSymbol)
	if request.MaxResults > 0 {
		params.Set("max_results", strconv.Itoa(request.MaxResults))
	}
	if request.TopN > 0 {
		params.Set("top_n", strconv.Itoa(request.TopN))
	}
	if request.IncludeReprogramming {
		params.Set("include_reprogramming", "true")
	}

	resp, err := c.doRequest(ctx, http.MethodGet, "/agent?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}

	var payload schemas.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	return &payload, nil
}

type GeneListResponse struct {
	Genes []kb.GeneSummary `json:"genes"`
	Count int              `json:"count"`
}

type ProteinListResponse struct {
	Proteins []kb.ProteinSummary `json:"proteins"`
	Count    int                 `json:"count"`
}

func (c *Client) ListGenes(ctx context.Context) (*GeneListResponse, error) {
	var payload GeneListResponse
	if err := c.getJSON(ctx, "/api/genes", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) SearchGenes(ctx context.Context, query string, limit int) (*GeneListResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var payload GeneListResponse
	if err := c.getJSON(ctx, "/api/genes/search?"+params.Encode(), &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) GeneBySymbol(ctx context.Context, symbol string) (*kb.Gene, error) {
	var payload kb.Gene
	if err := c.getJSON(ctx, "/api/genes/symbol/"+url.PathEscape(symbol), &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) ListProteins(ctx context.Context) (*ProteinListResponse, error) {
	var payload ProteinListResponse
	if err := c.getJSON(ctx, "/api/proteins", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) ProteinByGeneSymbol(ctx context.Context, symbol string) (*kb.ProteinWithGene, error) {
	var payload kb.ProteinWithGene
	if err := c.getJSON(ctx, "/api/proteins/symbol/"+url.PathEscape(symbol), &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) Stats(ctx context.Context) (*kb.Stats, error) {
	var payload kb.Stats
	if err := c.getJSON(ctx, "/api/stats", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

func responseError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var payload ErrorResponse
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return &APIError{StatusCode: resp.StatusCode, Code: payload.Code, Message: payload.Message}
	}

	return fmt.Errorf("unexpected status: %s", resp.Status)
}
