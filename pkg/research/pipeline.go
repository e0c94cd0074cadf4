package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shoppinglens-be/internal/metrics"
	"shoppinglens-be/internal/model"
	"shoppinglens-be/internal/pkg/logger"
	"shoppinglens-be/pkg/tools"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const (
	MaxAlternatives = 3

	TopMatchPlaceholderImage    = "https://placehold.co/600x600"
	AlternativePlaceholderImage = "https://placehold.co/300x300"
	UnknownSourceURL            = "https://example.com/unknown"
	DefaultAlternativeReason    = "Alternative product"
)

var tracer = otel.Tracer("shoppinglens-be/research")

// Pipeline finds a top match and a few alternatives for a query.
type Pipeline struct {
	tools  tools.Toolset
	logger logger.ILogger
}

func NewPipeline(toolset tools.Toolset, log logger.ILogger) *Pipeline {
	return &Pipeline{tools: toolset, logger: log}
}

// Run searches, resolves the top match and looks up alternatives in parallel.
// Search errors and a failing top page fetch are returned; everything else
// degrades to placeholder values.
func (p *Pipeline) Run(ctx context.Context, sessionID, threadID, query string) (*model.ResearchResultsPayload, error) {
	ctx, span := tracer.Start(ctx, "research.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("session_id", sessionID),
		attribute.String("thread_id", threadID),
		attribute.String("query", query),
	)

	start := time.Now()
	defer func() { metrics.ResearchDuration.Observe(time.Since(start).Seconds()) }()

	results, err := p.tools.Search.SearchWeb(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, fmt.Errorf("search web: %w", err)
	}
	p.logger.Info("Research", "Web search finished", map[string]interface{}{
		"query":   query,
		"results": len(results),
	})

	topMatch, err := p.resolveTopMatch(ctx, query, results)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "top match fetch failed")
		return nil, err
	}

	alternatives := p.lookupAlternatives(ctx, topMatch, results)

	return &model.ResearchResultsPayload{
		Envelope: model.Envelope{
			Type:      model.PayloadResearchResults,
			SessionID: sessionID,
			ThreadID:  threadID,
		},
		Query:        query,
		TopMatch:     topMatch,
		Alternatives: alternatives,
	}, nil
}

func (p *Pipeline) resolveTopMatch(ctx context.Context, query string, results []model.SearchResult) (model.ExtractedProduct, error) {
	fallback := model.ExtractedProduct{
		Title:     "Result for " + query,
		ImageURL:  TopMatchPlaceholderImage,
		Price:     model.ZeroPrice(),
		Specs:     []model.ProductSpec{},
		SourceURL: UnknownSourceURL,
	}
	if len(results) == 0 {
		p.logger.Warn("Research", "No search results, using fallback product", map[string]interface{}{"query": query})
		return fallback, nil
	}

	top := results[0]
	fallback.Title = top.Title
	fallback.SourceURL = top.URL

	ctx, span := tracer.Start(ctx, "research.TopMatch")
	defer span.End()
	span.SetAttributes(attribute.String("url", top.URL))

	html, err := p.tools.Fetch.FetchPage(ctx, top.URL)
	if err != nil {
		return model.ExtractedProduct{}, fmt.Errorf("fetch top match %s: %w", top.URL, err)
	}

	product, err := p.tools.Extract.ExtractProductFields(ctx, html, top.URL)
	if err != nil {
		p.logger.Warn("Research", "Top match extraction failed", map[string]interface{}{"url": top.URL, "error": err.Error()})
		return fallback, nil
	}
	if product == nil {
		p.logger.Info("Research", "No product fields on top match page", map[string]interface{}{"url": top.URL})
		return fallback, nil
	}
	topMatch := normalizeProduct(*product, top.URL)
	if topMatch.ImageURL == "" {
		topMatch.ImageURL = TopMatchPlaceholderImage
	}
	return topMatch, nil
}

// lookupAlternatives resolves results[1:4] concurrently. Each lookup absorbs
// its own failure, so the group never aborts and order follows search rank.
func (p *Pipeline) lookupAlternatives(ctx context.Context, topMatch model.ExtractedProduct, results []model.SearchResult) []model.Alternative {
	candidates := results[min(1, len(results)):]
	if len(candidates) > MaxAlternatives {
		candidates = candidates[:MaxAlternatives]
	}

	alternatives := make([]model.Alternative, len(candidates))
	var g errgroup.Group
	for i, result := range candidates {
		i, result := i, result
		g.Go(func() error {
			alternatives[i] = p.lookupAlternative(ctx, topMatch, result)
			return nil
		})
	}
	_ = g.Wait()
	return alternatives
}

func (p *Pipeline) lookupAlternative(ctx context.Context, topMatch model.ExtractedProduct, result model.SearchResult) (alt model.Alternative) {
	ctx, span := tracer.Start(ctx, "research.Alternative")
	defer span.End()
	span.SetAttributes(attribute.String("url", result.URL))

	alt = model.Alternative{
		Title:     result.Title,
		Price:     model.ZeroPrice(),
		ImageURL:  AlternativePlaceholderImage,
		Reason:    DefaultAlternativeReason,
		SourceURL: result.URL,
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Research", "Alternative lookup panicked", map[string]interface{}{"url": result.URL, "panic": fmt.Sprint(r)})
			alt = model.Alternative{
				Title:     result.Title,
				Price:     model.ZeroPrice(),
				ImageURL:  AlternativePlaceholderImage,
				Reason:    DefaultAlternativeReason,
				SourceURL: result.URL,
			}
			metrics.AlternativeLookups.WithLabelValues("degraded").Inc()
		}
	}()

	product, err := p.extractAlternative(ctx, result.URL)
	if err != nil || product == nil {
		if err != nil {
			span.RecordError(err)
			p.logger.Warn("Research", "Alternative lookup degraded", map[string]interface{}{"url": result.URL, "error": err.Error()})
		}
		metrics.AlternativeLookups.WithLabelValues("degraded").Inc()
		return alt
	}

	if product.Title != "" {
		alt.Title = product.Title
	}
	alt.Price = product.Price
	if product.ImageURL != "" {
		alt.ImageURL = product.ImageURL
	}

	reason, err := p.tools.Compare.CompareProducts(ctx, topMatch, *product)
	if err != nil {
		p.logger.Warn("Research", "Comparison failed", map[string]interface{}{"url": result.URL, "error": err.Error()})
	} else if reason = strings.TrimSpace(reason); reason != "" {
		alt.Reason = reason
	}

	metrics.AlternativeLookups.WithLabelValues("ok").Inc()
	return alt
}

func (p *Pipeline) extractAlternative(ctx context.Context, url string) (*model.ExtractedProduct, error) {
	html, err := p.tools.Fetch.FetchPage(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if html == "" {
		return nil, nil
	}
	product, err := p.tools.Extract.ExtractProductFields(ctx, html, url)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	if product == nil {
		return nil, nil
	}
	normalized := normalizeProduct(*product, url)
	return &normalized, nil
}

func normalizeProduct(product model.ExtractedProduct, sourceURL string) model.ExtractedProduct {
	if product.SourceURL == "" {
		product.SourceURL = sourceURL
	}
	if product.Price.Currency == "" {
		product.Price.Currency = model.DefaultCurrency
	}
	if product.Specs == nil {
		product.Specs = []model.ProductSpec{}
	}
	return product
}
