// Package pubmed is a thin client for the NCBI Entrez E-utilities.
package pubmed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// Entrez allows up to 200 ids per efetch call.
const fetchBatchSize = 200

type Paper struct {
	PMID      string
	Title     string
	Abstract  string
	Year      string
	Journal   string
	MeshTerms []string
}

// URL returns the canonical PubMed page for the paper.
func (p Paper) URL() string {
	return "https://pubmed.ncbi.nlm.nih.gov/" + p.PMID + "/"
}

type Client struct {
	baseURL    string
	email      string
	apiKey     string
	httpClient *http.Client
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

// NewClient builds an Entrez client. NCBI asks callers to identify
// themselves with an email; an API key raises the rate limit.
func NewClient(email, apiKey string, opts ...Option) *Client {
	client := &Client{
		baseURL: defaultBaseURL,
		email:   email,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type SearchOptions struct {
	MaxResults       int
	ExcludeReviews   bool
	FreeFullTextOnly bool
}

type esearchEnvelope struct {
	Result struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// Search runs an esearch and returns matching PMIDs sorted by relevance.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) ([]string, error) {
	term := "(" + query + ")"
	if opts.ExcludeReviews {
		term += " NOT Review[Publication Type]"
	}
	if opts.FreeFullTextOnly {
		term += " AND free full text[Filter]"
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 100
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", term)
	params.Set("retmax", fmt.Sprintf("%d", maxResults))
	params.Set("sort", "relevance")
	params.Set("retmode", "json")

	body, err := c.get(ctx, "/esearch.fcgi", params)
	if err != nil {
		return nil, fmt.Errorf("pubmed search: %w", err)
	}

	var envelope esearchEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("pubmed search: decode response: %w", err)
	}
	return envelope.Result.IDList, nil
}

// Fetch retrieves paper metadata for the given PMIDs in batches.
func (c *Client) Fetch(ctx context.Context, pmids []string) ([]Paper, error) {
	ids := make([]string, 0, len(pmids))
	for _, pmid := range pmids {
		pmid = strings.TrimSpace(pmid)
		if pmid != "" {
			ids = append(ids, pmid)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	papers := make([]Paper, 0, len(ids))
	for start := 0; start < len(ids); start += fetchBatchSize {
		end := start + fetchBatchSize
		if end > len(ids) {
			end = len(ids)
		}

		params := url.Values{}
		params.Set("db", "pubmed")
		params.Set("id", strings.Join(ids[start:end], ","))
		params.Set("rettype", "medline")
		params.Set("retmode", "text")

		body, err := c.get(ctx, "/efetch.fcgi", params)
		if err != nil {
			return nil, fmt.Errorf("pubmed fetch: %w", err)
		}
		papers = append(papers, ParseMedline(string(body))...)
	}

	return papers, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if c.email != "" {
		params.Set("email", c.email)
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
