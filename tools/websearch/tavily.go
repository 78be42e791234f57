package websearch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
	tavilygo "github.com/diverged/tavily-go"
	tavilyModels "github.com/diverged/tavily-go/models"
)

// TavilyResult is the outcome of a Tavily search.
type TavilyResult struct {
	Results []tavilyModels.SearchResult `json:"results"`
	Answer  string                      `json:"answer,omitempty"`
}

// String renders the answer and the results.
func (r *TavilyResult) String() string {
	var buf bytes.Buffer
	if r.Answer != "" {
		fmt.Fprintf(&buf, "ANSWER: %s\n", r.Answer)
	}

	for _, result := range r.Results {
		fmt.Fprintf(&buf, "- URL: %s\n", result.URL)
		fmt.Fprintf(&buf, "  TITLE: %s\n", result.Title)
		fmt.Fprintf(&buf, "  SCORE: %f\n", result.Score)
		fmt.Fprintf(&buf, "  CONTENT: %s\n", result.Content)
	}

	return buf.String()
}

// Tavily searches with the Tavily API.
type Tavily struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewTavily returns a Tavily engine.
func NewTavily(apiKey string) (*Tavily, error) {
	if apiKey == "" {
		return nil, errors.New("Tavily API key is required")
	}
	return &Tavily{
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
	}, nil
}

// WithBaseURL overrides the endpoint.
func (t *Tavily) WithBaseURL(baseURL string) *Tavily {
	t.baseURL = baseURL
	return t
}

// WithHTTPClient overrides the HTTP client.
func (t *Tavily) WithHTTPClient(client *http.Client) *Tavily {
	t.httpClient = client
	return t
}

// Name implements Engine.
func (t *Tavily) Name() string {
	return EngineTavily
}

// Query returns the raw Tavily result.
func (t *Tavily) Query(_ context.Context, query string) (*TavilyResult, error) {
	client := tavilygo.NewClient(t.apiKey)
	if t.baseURL != "" {
		client.BaseURL = t.baseURL
	}
	if t.httpClient != nil {
		client.HTTPClient = t.httpClient
	}

	// TODO: expose include/exclude domains once the tool takes filters
	resp, err := tavilygo.Search(client, tavilyModels.SearchRequest{
		Query:         query,
		SearchDepth:   "basic",
		IncludeAnswer: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to perform search")
	}

	return &TavilyResult{
		Results: resp.Results,
		Answer:  resp.Answer,
	}, nil
}

// Search implements Engine.
func (t *Tavily) Search(ctx context.Context, query string) (string, error) {
	res, err := t.Query(ctx, query)
	if err != nil {
		return "", err
	}
	return res.String(), nil
}
