package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const defaultWikipediaEndpoint = "https://en.wikipedia.org/w/api.php"

// WikipediaOptions configures the encyclopedia lookup capability.
type WikipediaOptions struct {
	// Endpoint overrides the MediaWiki API URL (used by tests).
	Endpoint string
	// TopK bounds the number of articles fetched per lookup.
	TopK int
	// MaxExtractChars caps each article excerpt.
	MaxExtractChars int
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// Wikipedia looks up established knowledge through the MediaWiki API and
// returns bounded-length excerpts plus a canonical source link. It needs no
// credential and is always registered.
type Wikipedia struct {
	endpoint        string
	topK            int
	maxExtractChars int
	httpClient      *http.Client
}

// NewWikipedia creates the encyclopedia lookup capability.
func NewWikipedia(optFns ...func(o *WikipediaOptions)) *Wikipedia {
	opts := WikipediaOptions{
		Endpoint:        defaultWikipediaEndpoint,
		TopK:            2,
		MaxExtractChars: 2000,
		HTTPClient:      http.DefaultClient,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Wikipedia{
		endpoint:        opts.Endpoint,
		topK:            opts.TopK,
		maxExtractChars: opts.MaxExtractChars,
		httpClient:      opts.HTTPClient,
	}
}

// Name implements Capability.
func (w *Wikipedia) Name() string { return "wikipedia_lookup" }

// Description implements Capability.
func (w *Wikipedia) Description() string {
	return "Search Wikipedia for established knowledge and historical information."
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type wikiExtractResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}

// Invoke implements Capability: resolve matching article titles, then fetch
// plain-text excerpts and append the canonical article link.
func (w *Wikipedia) Invoke(ctx context.Context, query string) (string, error) {
	titles, err := w.searchTitles(ctx, query)
	if err != nil {
		return "", err
	}
	if len(titles) == 0 {
		return fmt.Sprintf("No Wikipedia articles found for %q.", query), nil
	}

	extracts, err := w.fetchExtracts(ctx, titles)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, title := range titles {
		extract, ok := extracts[title]
		if !ok || extract == "" {
			continue
		}
		if len(extract) > w.maxExtractChars {
			extract = extract[:w.maxExtractChars] + truncationMarker
		}
		fmt.Fprintf(&sb, "%s\n%s\n\n", title, extract)
	}
	fmt.Fprintf(&sb, "Source: %s", articleURL(titles[0]))
	return sb.String(), nil
}

func (w *Wikipedia) searchTitles(ctx context.Context, query string) ([]string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", fmt.Sprintf("%d", w.topK))
	params.Set("format", "json")

	var parsed wikiSearchResponse
	if err := w.get(ctx, params, &parsed); err != nil {
		return nil, fmt.Errorf("wikipedia search failed: %w", err)
	}

	titles := make([]string, 0, len(parsed.Query.Search))
	for _, s := range parsed.Query.Search {
		titles = append(titles, s.Title)
	}
	return titles, nil
}

func (w *Wikipedia) fetchExtracts(ctx context.Context, titles []string) (map[string]string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "extracts")
	params.Set("explaintext", "1")
	params.Set("exintro", "1")
	params.Set("titles", strings.Join(titles, "|"))
	params.Set("format", "json")

	var parsed wikiExtractResponse
	if err := w.get(ctx, params, &parsed); err != nil {
		return nil, fmt.Errorf("wikipedia extract failed: %w", err)
	}

	extracts := make(map[string]string, len(parsed.Query.Pages))
	for _, page := range parsed.Query.Pages {
		extracts[page.Title] = page.Extract
	}
	return extracts, nil
}

func (w *Wikipedia) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func articleURL(title string) string {
	return "https://en.wikipedia.org/wiki/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
}
