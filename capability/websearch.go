package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const defaultTavilyEndpoint = "https://api.tavily.com/search"

// WebSearchOptions configures the web search capability.
type WebSearchOptions struct {
	// Endpoint overrides the Tavily API URL (used by tests).
	Endpoint string
	// MaxResults bounds the number of returned snippets.
	MaxResults int
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// WebSearch performs web searches via the Tavily API, returning ranked
// snippets with source attribution. Construct it only when an API key is
// available; without a key the capability is omitted from the registry.
type WebSearch struct {
	apiKey     string
	endpoint   string
	maxResults int
	httpClient *http.Client
}

// NewWebSearch creates the web search capability for the given API key.
func NewWebSearch(apiKey string, optFns ...func(o *WebSearchOptions)) *WebSearch {
	opts := WebSearchOptions{
		Endpoint:   defaultTavilyEndpoint,
		MaxResults: 3,
		HTTPClient: http.DefaultClient,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &WebSearch{
		apiKey:     apiKey,
		endpoint:   opts.Endpoint,
		maxResults: opts.MaxResults,
		httpClient: opts.HTTPClient,
	}
}

// Name implements Capability.
func (w *WebSearch) Name() string { return "web_search" }

// Description implements Capability.
func (w *WebSearch) Description() string {
	return "Search the web for current information. Use for recent events, news, and current data."
}

type tavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	IncludeAnswer bool   `json:"include_answer"`
	SearchDepth   string `json:"search_depth"`
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Invoke implements Capability performing a single search request.
func (w *WebSearch) Invoke(ctx context.Context, query string) (string, error) {
	body, err := json.Marshal(tavilyRequest{
		APIKey:        w.apiKey,
		Query:         query,
		MaxResults:    w.maxResults,
		IncludeAnswer: true,
		SearchDepth:   "basic",
	})
	if err != nil {
		return "", fmt.Errorf("encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search API returned status %d", resp.StatusCode)
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}

	var sb strings.Builder
	if parsed.Answer != "" {
		fmt.Fprintf(&sb, "Answer: %s\n\n", parsed.Answer)
	}
	for i, r := range parsed.Results {
		if i >= w.maxResults {
			break
		}
		fmt.Fprintf(&sb, "%d. %s\n%s\nSource: %s\n\n", i+1, r.Title, r.Content, r.URL)
	}
	if sb.Len() == 0 {
		return "No search results found.", nil
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
