package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Chative-core-poc-v1/lexroute/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/lexroute/pkg/logger"
)

const (
	DefaultEndpoint   = "https://api.tavily.com/search"
	DefaultMaxResults = 5
	MaxResultsCap     = 20
	defaultTimeout    = 15 * time.Second
	maxBodyBytes      = 1 << 20
)

// Searcher fetches web snippets for a query. Implementations never fail:
// any problem degrades to an empty string so callers can answer model-only.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) string
}

// TavilyClient calls the Tavily search API.
type TavilyClient struct {
	apiKey     string
	endpoint   string
	depth      string
	timeout    time.Duration
	httpClient *http.Client
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
}

type tavilyResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// NewTavilyClient builds a client from config. A nil httpClient uses a
// dedicated client so the shared default transport is never mutated.
func NewTavilyClient(cfg model.SearchConfig, httpClient *http.Client) *TavilyClient {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	depth := strings.TrimSpace(cfg.Depth)
	if depth == "" {
		depth = "basic"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &TavilyClient{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		endpoint:   endpoint,
		depth:      depth,
		timeout:    timeout,
		httpClient: httpClient,
	}
}

// Enabled reports whether a credential is configured.
func (c *TavilyClient) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Search returns "- content (source: url)" lines, or "" on any failure.
// Items without a url are listed without the source suffix.
func (c *TavilyClient) Search(ctx context.Context, query string, limit int) (out string) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "search").Msgf("panic recovered: %v", r)
			out = ""
		}
	}()

	if !c.Enabled() {
		logx.Debug().Str("component", "search").Msg("search api key missing; skipping web lookup")
		return ""
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}
	limit = clampLimit(limit)

	results, err := c.do(ctx, query, limit)
	if err != nil {
		logx.Warn().Err(err).Str("component", "search").Msg("web search failed; continuing without snippets")
		return ""
	}
	text := formatResults(results, limit)
	logx.Debug().Str("component", "search").Int("results", len(results)).Bool("usable", text != "").Msg("web search completed")
	return text
}

func (c *TavilyClient) do(ctx context.Context, query string, limit int) ([]tavilyResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(tavilyRequest{
		APIKey:      c.apiKey,
		Query:       query,
		MaxResults:  limit,
		SearchDepth: c.depth,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var decoded tavilyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return decoded.Results, nil
}

// formatResults renders items with non-empty content, at most limit lines.
func formatResults(results []tavilyResult, limit int) string {
	lines := make([]string, 0, len(results))
	for _, it := range results {
		if len(lines) >= limit {
			break
		}
		content := strings.TrimSpace(it.Content)
		if content == "" {
			continue
		}
		if url := strings.TrimSpace(it.URL); url != "" {
			lines = append(lines, fmt.Sprintf("- %s (source: %s)", content, url))
		} else {
			lines = append(lines, "- "+content)
		}
	}
	return strings.Join(lines, "\n")
}

func clampLimit(n int) int {
	if n <= 0 {
		return DefaultMaxResults
	}
	if n > MaxResultsCap {
		return MaxResultsCap
	}
	return n
}

var _ Searcher = (*TavilyClient)(nil)
