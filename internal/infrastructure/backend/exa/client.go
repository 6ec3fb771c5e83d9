package exa

import (
	"context"
	"net/http"
	"time"

	"github.com/kirillkom/meta-search/internal/core/domain"
	"github.com/kirillkom/meta-search/internal/infrastructure/backend"
	"github.com/kirillkom/meta-search/internal/infrastructure/resilience"
)

const (
	engineName      = "exa"
	defaultBaseURL  = "https://api.exa.ai"
	snippetMaxChars = 1000
)

type Options struct {
	BaseURL  string
	Timeout  time.Duration
	Executor *resilience.Executor
}

// Client is the semantic-tier adapter. Exa runs neural search over an
// embedding index, so it handles paraphrased and conceptual queries the
// keyword engines behind the free tier miss.
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
		timeout = 10 * time.Second
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
	Query      string          `json:"query"`
	Type       string          `json:"type"`
	NumResults int             `json:"numResults"`
	Contents   contentsRequest `json:"contents"`
}

type contentsRequest struct {
	Text textRequest `json:"text"`
}

type textRequest struct {
	MaxCharacters int `json:"maxCharacters"`
}

type searchResult struct {
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

func (c *Client) Search(ctx context.Context, query string, limit int, _ domain.SearchFilter) ([]domain.SearchHit, error) {
	payload := searchRequest{
		Query:      query,
		Type:       "auto",
		NumResults: limit,
		Contents: contentsRequest{
			Text: textRequest{MaxCharacters: snippetMaxChars},
		},
	}
	headers := map[string]string{"x-api-key": c.apiKey}

	var response searchResponse
	call := func(callCtx context.Context) error {
		return backend.Classify("exa search",
			backend.PostJSON(callCtx, c.httpClient, c.baseURL+"/search", headers, payload, &response, "exa search"))
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "exa.search", call, backend.ClassifyForRetry)
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
			Snippet: r.Text,
			Engine:  engineName,
			Tier:    domain.TierSemantic,
			Score:   r.Score,
		})
	}
	return hits, nil
}
