package tools

import (
	"context"

	"shoppinglens-be/internal/model"
)

// Searcher runs a web search for a product query.
type Searcher interface {
	SearchWeb(ctx context.Context, query string) ([]model.SearchResult, error)
}

// Fetcher downloads a page. Implementations return "" rather than an error
// for pages that simply could not be retrieved.
type Fetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

// Extractor pulls product fields out of a page. A nil product means nothing
// useful was found.
type Extractor interface {
	ExtractProductFields(ctx context.Context, html, sourceURL string) (*model.ExtractedProduct, error)
}

// Comparer explains how an alternative stacks up against the top match.
type Comparer interface {
	CompareProducts(ctx context.Context, a, b model.ExtractedProduct) (string, error)
}

// Buyer starts a purchase. It is optional.
type Buyer interface {
	BuyItem(ctx context.Context, req model.PurchaseRequest) (model.PurchaseResult, error)
}

// Toolset is the capability bundle the research pipeline and orchestrator use.
type Toolset struct {
	Search  Searcher
	Fetch   Fetcher
	Extract Extractor
	Compare Comparer
	Buy     Buyer
}
