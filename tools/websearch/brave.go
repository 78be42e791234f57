package websearch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/tidwall/gjson"
)

// BraveURL is the Brave Search web endpoint.
const BraveURL = "https://api.search.brave.com/res/v1/web/search"

// Result limits of the Brave formatter.
const (
	MaxWebResults  = 10
	MaxNewsResults = 5
)

// Brave searches with the Brave Search API.
type Brave struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewBrave returns a Brave engine.
func NewBrave(apiKey string) (*Brave, error) {
	if apiKey == "" {
		return nil, errors.New("Brave Search API key is required")
	}
	return &Brave{
		apiKey:     apiKey,
		baseURL:    BraveURL,
		httpClient: http.DefaultClient,
	}, nil
}

// WithBaseURL overrides the endpoint.
func (b *Brave) WithBaseURL(baseURL string) *Brave {
	b.baseURL = baseURL
	return b
}

// WithHTTPClient overrides the HTTP client.
func (b *Brave) WithHTTPClient(client *http.Client) *Brave {
	b.httpClient = client
	return b
}

// Name implements Engine.
func (b *Brave) Name() string {
	return EngineBrave
}

// Search implements Engine.
func (b *Brave) Search(ctx context.Context, query string) (string, error) {
	u, err := url.Parse(b.baseURL)
	if err != nil {
		return "", errors.Wrap(err, "invalid Brave Search URL")
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "Brave Search request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.ContextKV(ctx, xlog.WARNING, "engine", EngineBrave, "status", resp.StatusCode)
		return "", errors.Errorf("Brave Search API error: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "unable to read Brave Search response")
	}
	if !gjson.ValidBytes(body) {
		return "", errors.New("invalid Brave Search response")
	}
	return FormatBraveResults(gjson.ParseBytes(body)), nil
}

// FormatBraveResults renders the web and news results as markdown.
func FormatBraveResults(data gjson.Result) string {
	var lines []string

	if web := data.Get("web.results"); web.Exists() {
		lines = append(lines, "# Web Results\n")
		for i, r := range web.Array() {
			if i == MaxWebResults {
				break
			}
			lines = append(lines,
				"## "+r.Get("title").String(),
				"URL: "+r.Get("url").String(),
				r.Get("description").String()+"\n",
			)
		}
	}

	if news := data.Get("news.results"); news.Exists() {
		lines = append(lines, "\n# News Results\n")
		for i, r := range news.Array() {
			if i == MaxNewsResults {
				break
			}
			lines = append(lines,
				"## "+r.Get("title").String(),
				"URL: "+r.Get("url").String(),
				r.Get("description").String(),
				"Published: "+r.Get("age").String()+"\n",
			)
		}
	}

	return strings.Join(lines, "\n")
}
