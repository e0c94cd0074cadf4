package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"shoppinglens-be/internal/model"
	"shoppinglens-be/internal/pkg/logger"
)

const (
	DefaultSearchLimit   = 5
	MaxSearchLimit       = 8
	DefaultSearchTimeout = 8 * time.Second
	DefaultUserAgent     = "ShoppingLensBot/0.1 (+https://shoppinglens.local)"

	duckDuckGoHTMLURL = "https://duckduckgo.com/html/"
)

// SearchConfig configures the HTTP search engines.
type SearchConfig struct {
	SearxngURL    string
	DuckDuckGoURL string
	Limit         int
	Timeout       time.Duration
	UserAgent     string
}

func (c SearchConfig) limit() int {
	if c.Limit <= 0 {
		return DefaultSearchLimit
	}
	if c.Limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return c.Limit
}

func (c SearchConfig) userAgent() string {
	if c.UserAgent == "" {
		return DefaultUserAgent
	}
	return c.UserAgent
}

// NewWebSearcher returns SearxNG (when configured) followed by DuckDuckGo.
func NewWebSearcher(cfg SearchConfig, log logger.ILogger) *ChainSearcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultSearchTimeout
	}
	client := &http.Client{Timeout: timeout}

	var engines []NamedSearcher
	if strings.TrimSpace(cfg.SearxngURL) != "" {
		engines = append(engines, NamedSearcher{Name: "SearxNG", Searcher: &SearxngSearcher{
			baseURL: strings.TrimSpace(cfg.SearxngURL), limit: cfg.limit(), userAgent: cfg.userAgent(), client: client,
		}})
	}
	ddgURL := cfg.DuckDuckGoURL
	if ddgURL == "" {
		ddgURL = duckDuckGoHTMLURL
	}
	engines = append(engines, NamedSearcher{Name: "DuckDuckGo", Searcher: &DuckDuckGoSearcher{
		endpoint: ddgURL, limit: cfg.limit(), userAgent: cfg.userAgent(), client: client,
	}})

	return &ChainSearcher{engines: engines, logger: log}
}

type NamedSearcher struct {
	Name     string
	Searcher Searcher
}

// ChainSearcher tries each engine in order and returns the first success.
// When every engine fails it returns no results rather than an error.
type ChainSearcher struct {
	engines []NamedSearcher
	logger  logger.ILogger
}

func NewChainSearcher(log logger.ILogger, engines ...NamedSearcher) *ChainSearcher {
	return &ChainSearcher{engines: engines, logger: log}
}

func (c *ChainSearcher) SearchWeb(ctx context.Context, query string) ([]model.SearchResult, error) {
	normalized := strings.TrimSpace(query)
	if normalized == "" {
		return []model.SearchResult{}, nil
	}

	for _, engine := range c.engines {
		results, err := engine.Searcher.SearchWeb(ctx, normalized)
		if err == nil {
			return results, nil
		}
		c.logger.Warn("Search", "Search engine failed", map[string]interface{}{
			"engine": engine.Name,
			"query":  normalized,
			"error":  err.Error(),
		})
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return []model.SearchResult{}, nil
}

// SearxngSearcher queries a SearxNG instance's JSON API.
type SearxngSearcher struct {
	baseURL   string
	limit     int
	userAgent string
	client    *http.Client
}

type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (s *SearxngSearcher) SearchWeb(ctx context.Context, query string) ([]model.SearchResult, error) {
	endpoint, err := buildSearxngURL(s.baseURL, query)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create searxng request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searxng request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("searxng search failed with status %d", resp.StatusCode)
	}

	var payload searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode searxng response: %w", err)
	}

	results := make([]model.SearchResult, 0, s.limit)
	for _, item := range payload.Results {
		if len(results) >= s.limit {
			break
		}
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.URL)
		if title == "" || !isHTTPURL(link) {
			continue
		}
		results = append(results, model.SearchResult{Title: title, URL: link, Snippet: strings.TrimSpace(item.Content)})
	}
	return results, nil
}

func buildSearxngURL(base, query string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse searxng url: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/search") {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/search"
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("language", "en-US")
	q.Set("safesearch", "1")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// DuckDuckGoSearcher scrapes the DuckDuckGo HTML results page.
type DuckDuckGoSearcher struct {
	endpoint  string
	limit     int
	userAgent string
	client    *http.Client
}

func (d *DuckDuckGoSearcher) SearchWeb(ctx context.Context, query string) ([]model.SearchResult, error) {
	u, err := url.Parse(d.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse duckduckgo url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("kl", "us-en")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create duckduckgo request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("duckduckgo search failed with status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse duckduckgo html: %w", err)
	}
	return parseDuckDuckGo(doc, d.limit), nil
}

func parseDuckDuckGo(doc *goquery.Document, limit int) []model.SearchResult {
	results := make([]model.SearchResult, 0, limit)
	seen := make(map[string]struct{})

	doc.Find("a.result__a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if len(results) >= limit {
			return false
		}
		href, _ := a.Attr("href")
		link := decodeDuckDuckGoURL(href)
		title := collapseSpace(a.Text())
		if title == "" || !isHTTPURL(link) {
			return true
		}
		if _, dup := seen[link]; dup {
			return true
		}
		seen[link] = struct{}{}

		snippet := a.Closest(".result").Find(".result__snippet").First().Text()
		results = append(results, model.SearchResult{Title: title, URL: link, Snippet: collapseSpace(snippet)})
		return true
	})
	return results
}

// decodeDuckDuckGoURL unwraps /l/?uddg= redirect links.
func decodeDuckDuckGoURL(href string) string {
	base, _ := url.Parse("https://duckduckgo.com")
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	u := base.ResolveReference(ref)
	if strings.HasSuffix(u.Hostname(), "duckduckgo.com") && u.Path == "/l/" {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	return u.String()
}

func isHTTPURL(value string) bool {
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
