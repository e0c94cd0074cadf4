package research

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shoppinglens-be/internal/model"
	"shoppinglens-be/internal/pkg/logger"
	"shoppinglens-be/pkg/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	results []model.SearchResult
	err     error
}

func (f *fakeSearcher) SearchWeb(ctx context.Context, query string) ([]model.SearchResult, error) {
	return f.results, f.err
}

// fakeFetcher returns the URL as page body unless told to fail or delay.
type fakeFetcher struct {
	mu     sync.Mutex
	fail   map[string]error
	delay  map[string]time.Duration
	called []string
}

func (f *fakeFetcher) FetchPage(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	f.called = append(f.called, url)
	err := f.fail[url]
	d := f.delay[url]
	f.mu.Unlock()

	if d > 0 {
		time.Sleep(d)
	}
	if err != nil {
		return "", err
	}
	return "<html>" + url + "</html>", nil
}

type fakeExtractor struct {
	products map[string]*model.ExtractedProduct
}

func (f *fakeExtractor) ExtractProductFields(ctx context.Context, html, sourceURL string) (*model.ExtractedProduct, error) {
	p, ok := f.products[sourceURL]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

type fakeComparer struct{}

func (fakeComparer) CompareProducts(ctx context.Context, a, b model.ExtractedProduct) (string, error) {
	if a.Price.Amount <= b.Price.Amount {
		return "Lower price with similar baseline specs.", nil
	}
	return "Higher price but could indicate premium build.", nil
}

func product(title, url string, amount float64) *model.ExtractedProduct {
	return &model.ExtractedProduct{
		Title:     title,
		ImageURL:  "https://img/" + title,
		Price:     model.Price{Amount: amount, Currency: "USD"},
		Specs:     []model.ProductSpec{{Key: "Color", Value: "Black"}},
		SourceURL: url,
	}
}

func newPipeline(s *fakeSearcher, f *fakeFetcher, e *fakeExtractor) *Pipeline {
	return NewPipeline(tools.Toolset{
		Search:  s,
		Fetch:   f,
		Extract: e,
		Compare: fakeComparer{},
	}, logger.NewNopLogger())
}

var searchResults = []model.SearchResult{
	{Title: "Top", URL: "https://a.test/top"},
	{Title: "Alt 1", URL: "https://b.test/1"},
	{Title: "Alt 2", URL: "https://c.test/2"},
	{Title: "Alt 3", URL: "https://d.test/3"},
	{Title: "Alt 4", URL: "https://e.test/4"},
}

func TestRunWithNoResultsUsesFallback(t *testing.T) {
	p := newPipeline(&fakeSearcher{}, &fakeFetcher{}, &fakeExtractor{})

	res, err := p.Run(context.Background(), "s1", "t1", "mystery gadget")

	require.NoError(t, err)
	assert.Equal(t, model.PayloadResearchResults, res.Type)
	assert.Equal(t, "s1", res.SessionID)
	assert.Equal(t, "t1", res.ThreadID)
	assert.Equal(t, "mystery gadget", res.Query)
	assert.Equal(t, "Result for mystery gadget", res.TopMatch.Title)
	assert.Equal(t, 0.0, res.TopMatch.Price.Amount)
	assert.Equal(t, "USD", res.TopMatch.Price.Currency)
	assert.Equal(t, UnknownSourceURL, res.TopMatch.SourceURL)
	assert.Empty(t, res.Alternatives)
}

func TestRunSearchErrorPropagates(t *testing.T) {
	p := newPipeline(&fakeSearcher{err: errors.New("boom")}, &fakeFetcher{}, &fakeExtractor{})

	_, err := p.Run(context.Background(), "s1", "t1", "q")

	assert.ErrorContains(t, err, "boom")
}

func TestRunTopMatchExtractionFallbackKeepsCandidate(t *testing.T) {
	p := newPipeline(&fakeSearcher{results: searchResults[:1]}, &fakeFetcher{}, &fakeExtractor{})

	res, err := p.Run(context.Background(), "s1", "t1", "q")

	require.NoError(t, err)
	assert.Equal(t, "Top", res.TopMatch.Title)
	assert.Equal(t, "https://a.test/top", res.TopMatch.SourceURL)
	assert.Equal(t, 0.0, res.TopMatch.Price.Amount)
	assert.Equal(t, TopMatchPlaceholderImage, res.TopMatch.ImageURL)
}

func TestRunTakesAtMostThreeAlternativesInRankOrder(t *testing.T) {
	extractor := &fakeExtractor{products: map[string]*model.ExtractedProduct{
		"https://a.test/top": product("Top Product", "https://a.test/top", 100),
		"https://b.test/1":   product("Alt 1", "https://b.test/1", 90),
		"https://c.test/2":   product("Alt 2", "https://c.test/2", 110),
		"https://d.test/3":   product("Alt 3", "https://d.test/3", 95),
	}}
	// later-ranked lookups finish first
	fetcher := &fakeFetcher{delay: map[string]time.Duration{
		"https://b.test/1": 30 * time.Millisecond,
		"https://c.test/2": 15 * time.Millisecond,
	}}
	p := newPipeline(&fakeSearcher{results: searchResults}, fetcher, extractor)

	res, err := p.Run(context.Background(), "s1", "t1", "q")

	require.NoError(t, err)
	assert.Equal(t, "Top Product", res.TopMatch.Title)
	assert.Equal(t, 100.0, res.TopMatch.Price.Amount)

	require.Len(t, res.Alternatives, 3)
	assert.Equal(t, "https://b.test/1", res.Alternatives[0].SourceURL)
	assert.Equal(t, "https://c.test/2", res.Alternatives[1].SourceURL)
	assert.Equal(t, "https://d.test/3", res.Alternatives[2].SourceURL)
	assert.Equal(t, "Higher price but could indicate premium build.", res.Alternatives[0].Reason)
	assert.Equal(t, "Lower price with similar baseline specs.", res.Alternatives[1].Reason)
	assert.NotContains(t, fetcher.called, "https://e.test/4")
}

func TestRunOneAlternativeFailureDoesNotSinkOthers(t *testing.T) {
	extractor := &fakeExtractor{products: map[string]*model.ExtractedProduct{
		"https://a.test/top": product("Top", "https://a.test/top", 100),
		"https://b.test/1":   product("Alt 1", "https://b.test/1", 80),
		"https://c.test/2":   product("Alt 2", "https://c.test/2", 120),
		"https://d.test/3":   product("Alt 3", "https://d.test/3", 99),
	}}
	fetcher := &fakeFetcher{fail: map[string]error{"https://c.test/2": errors.New("connection reset")}}
	p := newPipeline(&fakeSearcher{results: searchResults[:4]}, fetcher, extractor)

	res, err := p.Run(context.Background(), "s1", "t1", "q")

	require.NoError(t, err)
	require.Len(t, res.Alternatives, 3)

	titles := []string{res.Alternatives[0].Title, res.Alternatives[1].Title, res.Alternatives[2].Title}
	assert.Equal(t, []string{"Alt 1", "Alt 2", "Alt 3"}, titles)

	assert.Equal(t, 80.0, res.Alternatives[0].Price.Amount)
	assert.Equal(t, 0.0, res.Alternatives[1].Price.Amount)
	assert.Equal(t, "USD", res.Alternatives[1].Price.Currency)
	assert.Equal(t, DefaultAlternativeReason, res.Alternatives[1].Reason)
	assert.Equal(t, AlternativePlaceholderImage, res.Alternatives[1].ImageURL)
	assert.Equal(t, 99.0, res.Alternatives[2].Price.Amount)
}

func TestRunTopFetchErrorPropagates(t *testing.T) {
	fetcher := &fakeFetcher{fail: map[string]error{"https://a.test/top": errors.New("dns")}}
	p := newPipeline(&fakeSearcher{results: searchResults[:2]}, fetcher, &fakeExtractor{})

	_, err := p.Run(context.Background(), "s1", "t1", "q")

	assert.ErrorContains(t, err, "fetch top match")
}
