package searxng

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/meta-search/internal/core/domain"
	"github.com/kirillkom/meta-search/internal/infrastructure/backend"
	"github.com/kirillkom/meta-search/internal/infrastructure/resilience"
)

const engineName = "searxng"

type Options struct {
	Timeout  time.Duration
	Executor *resilience.Executor
	Logger   *slog.Logger
}

// Client is the free-tier adapter: a self-hosted SearXNG instance that
// fans the query out to its configured engines and merges the results
// before responding. No API key required.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
	logger     *slog.Logger
}

func New(baseURL string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.Executor,
		logger:     logger,
	}
}

func (c *Client) Engine() string { return engineName }

type searxngResult struct {
	URL      string  `json:"url"`
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	Engine   string  `json:"engine"`
	Score    float64 `json:"score"`
	Category string  `json:"category"`
}

type searxngResponse struct {
	Query               string          `json:"query"`
	Results             []searxngResult `json:"results"`
	UnresponsiveEngines [][2]string     `json:"unresponsive_engines"`
}

func (c *Client) Search(ctx context.Context, query string, limit int, filter domain.SearchFilter) ([]domain.SearchHit, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("number_of_results", strconv.Itoa(limit))
	if filter.Category != "" {
		params.Set("categories", filter.Category)
	}
	if filter.Language != "" {
		params.Set("language", filter.Language)
	}
	if filter.TimeRange != "" {
		params.Set("time_range", filter.TimeRange)
	}

	endpoint := c.baseURL + "/search?" + params.Encode()

	var response searxngResponse
	call := func(callCtx context.Context) error {
		return backend.GetJSON(callCtx, c.httpClient, endpoint, &response, "searxng search")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "searxng.search", func(callCtx context.Context) error {
			return backend.Classify("searxng search", call(callCtx))
		}, backend.ClassifyForRetry)
	} else {
		err = backend.Classify("searxng search", call(ctx))
	}
	if err != nil {
		return nil, err
	}

	if len(response.UnresponsiveEngines) > 0 {
		names := make([]string, 0, len(response.UnresponsiveEngines))
		for _, pair := range response.UnresponsiveEngines {
			names = append(names, pair[0])
		}
		c.logger.Warn("searxng_unresponsive_engines", "engines", strings.Join(names, ","))
	}

	hits := make([]domain.SearchHit, 0, len(response.Results))
	for _, r := range response.Results {
		if len(hits) == limit {
			break
		}
		engine := r.Engine
		if engine == "" {
			engine = engineName
		}
		hits = append(hits, domain.SearchHit{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
			Engine:  engine,
			Tier:    domain.TierFree,
			Score:   r.Score,
		})
	}
	return hits, nil
}

// Healthy probes the aggregator with a trivial query.
func (c *Client) Healthy(ctx context.Context) bool {
	endpoint := c.baseURL + "/search?q=test&format=json&number_of_results=1"
	var response searxngResponse
	return backend.GetJSON(ctx, c.httpClient, endpoint, &response, "searxng health") == nil
}
