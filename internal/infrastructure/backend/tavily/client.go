package tavily

import (
	"context"
	"net/http"
	"time"

	"github.com/kirillkom/meta-search/internal/core/domain"
	"github.com/kirillkom/meta-search/internal/infrastructure/backend"
	"github.com/kirillkom/meta-search/internal/infrastructure/resilience"
)

const (
	engineName     = "tavily"
	defaultBaseURL = "https://api.tavily.com"
)

type Options struct {
	BaseURL  string
	Timeout  time.Duration
	Executor *resilience.Executor
}

// Client is the deep-extraction tier adapter. Tavily both searches with
// full raw content and extracts specific URLs; the retrieval loop only
// uses the extract path, feeding it URLs surfaced by cheaper tiers.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(apiKey string, options Options) *Client {
	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := options.Timeout
	if timeout <= 0 {
		// Extraction fetches whole pages, give it more room than a search.
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.Executor,
	}
}

func (c *Client) Engine() string { return engineName }

type searchRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth"`
	MaxResults        int    `json:"max_results"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type searchResult struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Content    string  `json:"content"`
	RawContent string  `json:"raw_content"`
	Score      float64 `json:"score"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

// Search is the fallback when no earlier tier produced URLs to extract.
func (c *Client) Search(ctx context.Context, query string, limit int, _ domain.SearchFilter) ([]domain.SearchHit, error) {
	payload := searchRequest{
		APIKey:            c.apiKey,
		Query:             query,
		SearchDepth:       "advanced",
		MaxResults:        limit,
		IncludeAnswer:     false,
		IncludeRawContent: true,
	}

	var response searchResponse
	call := func(callCtx context.Context) error {
		return backend.Classify("tavily search",
			backend.PostJSON(callCtx, c.httpClient, c.baseURL+"/search", nil, payload, &response, "tavily search"))
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "tavily.search", call, backend.ClassifyForRetry)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}

	hits := make([]domain.SearchHit, 0, len(response.Results))
	for _, r := range response.Results {
		if len(hits) == limit {
			break
		}
		hits = append(hits, domain.SearchHit{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
			Content: r.RawContent,
			Engine:  engineName,
			Tier:    domain.TierDeepExtract,
			Score:   r.Score,
		})
	}
	return hits, nil
}

type extractRequest struct {
	APIKey string   `json:"api_key"`
	URLs   []string `json:"urls"`
}

type extractResult struct {
	URL        string `json:"url"`
	RawContent string `json:"raw_content"`
}

type extractResponse struct {
	Results       []extractResult `json:"results"`
	FailedResults []extractResult `json:"failed_results"`
}

// Extract pulls full page content for URLs already surfaced by a
// cheaper tier. Per-URL extraction failures are not an error: whatever
// succeeded is returned and scored like any other tier output.
func (c *Client) Extract(ctx context.Context, urls []string) ([]domain.SearchHit, error) {
	payload := extractRequest{APIKey: c.apiKey, URLs: urls}

	var response extractResponse
	call := func(callCtx context.Context) error {
		return backend.Classify("tavily extract",
			backend.PostJSON(callCtx, c.httpClient, c.baseURL+"/extract", nil, payload, &response, "tavily extract"))
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "tavily.extract", call, backend.ClassifyForRetry)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}

	hits := make([]domain.SearchHit, 0, len(response.Results))
	for _, r := range response.Results {
		hits = append(hits, domain.SearchHit{
			URL:     r.URL,
			Content: r.RawContent,
			Engine:  engineName,
			Tier:    domain.TierDeepExtract,
		})
	}
	return hits, nil
}
