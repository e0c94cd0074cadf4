package tools

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"shoppinglens-be/internal/pkg/logger"
)

const (
	DefaultFetchTimeout  = 12 * time.Second
	DefaultFetchUA       = "shoppinglens-bot/1.0"
	DefaultFetchCacheTTL = 10 * time.Minute
	defaultFetchCacheLen = 256
	maxPageBytes         = 4 << 20
)

type FetchConfig struct {
	Timeout   time.Duration
	UserAgent string
	CacheSize int
	CacheTTL  time.Duration
}

// HTTPFetcher downloads pages with a per-request timeout. Failed fetches
// yield "" and are not cached.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	cache     *expirable.LRU[string, string]
	logger    logger.ILogger
}

func NewHTTPFetcher(cfg FetchConfig, log logger.ILogger) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultFetchTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultFetchUA
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultFetchCacheLen
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultFetchCacheTTL
	}

	return &HTTPFetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		cache:     expirable.NewLRU[string, string](cfg.CacheSize, nil, cfg.CacheTTL),
		logger:    log,
	}
}

func (f *HTTPFetcher) FetchPage(ctx context.Context, url string) (string, error) {
	if html, ok := f.cache.Get(url); ok {
		return html, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		f.logger.Debug("Fetch", "Invalid page url", map[string]interface{}{"url": url, "error": err.Error()})
		return "", nil
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug("Fetch", "Page fetch failed", map[string]interface{}{"url": url, "error": err.Error()})
		return "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.logger.Debug("Fetch", "Page returned non-2xx", map[string]interface{}{"url": url, "status": resp.StatusCode})
		return "", nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", nil
	}

	html := string(body)
	f.cache.Add(url, html)
	return html, nil
}
