package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"shoppinglens-be/internal/model"
	"shoppinglens-be/internal/pkg/logger"
	"shoppinglens-be/pkg/llm"
	"shoppinglens-be/pkg/utils"
)

const maxExtractionText = 4000

// ProductExtractor reads structured page metadata first and asks the LLM
// only when the page does not carry a priced product.
type ProductExtractor struct {
	provider llm.LLMProvider
	logger   logger.ILogger
}

func NewProductExtractor(provider llm.LLMProvider, log logger.ILogger) *ProductExtractor {
	return &ProductExtractor{provider: provider, logger: log}
}

func (e *ProductExtractor) ExtractProductFields(ctx context.Context, html, sourceURL string) (*model.ExtractedProduct, error) {
	if strings.TrimSpace(html) == "" {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	product := extractFromMetadata(doc, sourceURL)
	if product != nil && product.Price.Amount > 0 {
		return product, nil
	}
	if e.provider == nil {
		return product, nil
	}

	fromLLM, err := e.extractWithLLM(ctx, doc, sourceURL)
	if err != nil {
		e.logger.Warn("Extract", "LLM extraction failed", map[string]interface{}{
			"url":   sourceURL,
			"error": err.Error(),
		})
		return product, nil
	}
	if fromLLM == nil {
		return product, nil
	}
	if product != nil {
		fromLLM.Specs = mergeSpecs(product.Specs, fromLLM.Specs)
		if fromLLM.ImageURL == "" {
			fromLLM.ImageURL = product.ImageURL
		}
	}
	return fromLLM, nil
}

// extractFromMetadata reads JSON-LD Product blocks and OpenGraph/product meta
// tags. It returns nil when no title can be found.
func extractFromMetadata(doc *goquery.Document, sourceURL string) *model.ExtractedProduct {
	product := &model.ExtractedProduct{
		Price:     model.ZeroPrice(),
		Specs:     []model.ProductSpec{},
		SourceURL: sourceURL,
	}

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		if node := findProductNode(data); node != nil {
			applyJSONLD(product, node)
			return false
		}
		return true
	})

	if product.Title == "" {
		product.Title = metaContent(doc, "og:title")
	}
	if product.ImageURL == "" {
		product.ImageURL = metaContent(doc, "og:image")
	}
	if product.Price.Amount == 0 {
		for _, key := range []string{"product:price:amount", "og:price:amount"} {
			if amount, ok := parseAmount(metaContent(doc, key)); ok {
				product.Price.Amount = amount
				break
			}
		}
		for _, key := range []string{"product:price:currency", "og:price:currency"} {
			if currency := metaContent(doc, key); currency != "" {
				product.Price.Currency = strings.ToUpper(currency)
				break
			}
		}
	}
	if product.Title == "" {
		product.Title = collapseSpace(doc.Find("title").First().Text())
	}
	if product.Title == "" {
		return nil
	}
	return product
}

func metaContent(doc *goquery.Document, key string) string {
	sel := doc.Find(fmt.Sprintf(`meta[property="%s"], meta[name="%s"]`, key, key)).First()
	content, _ := sel.Attr("content")
	return strings.TrimSpace(content)
}

func findProductNode(data any) map[string]any {
	switch v := data.(type) {
	case []any:
		for _, item := range v {
			if node := findProductNode(item); node != nil {
				return node
			}
		}
	case map[string]any:
		if isProductType(v["@type"]) {
			return v
		}
		if graph, ok := v["@graph"]; ok {
			return findProductNode(graph)
		}
	}
	return nil
}

func isProductType(t any) bool {
	switch v := t.(type) {
	case string:
		return v == "Product"
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == "Product" {
				return true
			}
		}
	}
	return false
}

func applyJSONLD(product *model.ExtractedProduct, node map[string]any) {
	if name, ok := node["name"].(string); ok {
		product.Title = collapseSpace(name)
	}
	product.ImageURL = firstImage(node["image"])

	if brand := nameOf(node["brand"]); brand != "" {
		product.Specs = append(product.Specs, model.ProductSpec{Key: "Brand", Value: brand})
	}
	for _, key := range []string{"sku", "model", "color", "material"} {
		if value := nameOf(node[key]); value != "" {
			product.Specs = append(product.Specs, model.ProductSpec{Key: strings.ToUpper(key[:1]) + key[1:], Value: value})
		}
	}
	if props, ok := node["additionalProperty"].([]any); ok {
		for _, p := range props {
			prop, _ := p.(map[string]any)
			name, value := nameOf(prop["name"]), nameOf(prop["value"])
			if name != "" && value != "" {
				product.Specs = append(product.Specs, model.ProductSpec{Key: name, Value: value})
			}
		}
	}

	offer := node["offers"]
	if offers, ok := offer.([]any); ok && len(offers) > 0 {
		offer = offers[0]
	}
	if o, ok := offer.(map[string]any); ok {
		for _, key := range []string{"price", "lowPrice"} {
			if amount, ok := numberOf(o[key]); ok {
				product.Price.Amount = amount
				break
			}
		}
		if currency, ok := o["priceCurrency"].(string); ok && currency != "" {
			product.Price.Currency = strings.ToUpper(currency)
		}
	}
}

func firstImage(v any) string {
	switch img := v.(type) {
	case string:
		return img
	case []any:
		if len(img) > 0 {
			return firstImage(img[0])
		}
	case map[string]any:
		if u, ok := img["url"].(string); ok {
			return u
		}
	}
	return ""
}

func nameOf(v any) string {
	switch n := v.(type) {
	case string:
		return strings.TrimSpace(n)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case map[string]any:
		return nameOf(n["name"])
	}
	return ""
}

func numberOf(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0) && n >= 0
	case string:
		return parseAmount(n)
	}
	return 0, false
}

// parseAmount accepts "1,299.00", "$19.99" and similar.
func parseAmount(s string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return 0, false
	}
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || amount < 0 {
		return 0, false
	}
	return amount, true
}

func (e *ProductExtractor) extractWithLLM(ctx context.Context, doc *goquery.Document, sourceURL string) (*model.ExtractedProduct, error) {
	text := pageText(doc)
	if text == "" {
		return nil, nil
	}

	prompt := fmt.Sprintf(`Extract the primary product details from the content below.
Return ONLY JSON with keys: title (string), image_url (string), price ({"amount": number, "currency": string}), specs (array of {"key": string, "value": string}).
If price is missing, set amount to 0 and currency to USD.

URL: %s

Content:
%s`, sourceURL, text)

	raw, err := e.provider.Generate(ctx, prompt, llm.WithTemperature(0.1), llm.WithJSONResponse())
	if err != nil {
		return nil, err
	}

	obj, ok := llm.ParseJSONObject(raw)
	if !ok {
		return nil, fmt.Errorf("unparseable extraction response")
	}
	title, _ := obj["title"].(string)
	if strings.TrimSpace(title) == "" {
		return nil, nil
	}

	product := &model.ExtractedProduct{
		Title:     strings.TrimSpace(title),
		Price:     model.ZeroPrice(),
		Specs:     []model.ProductSpec{},
		SourceURL: sourceURL,
	}
	product.ImageURL, _ = obj["image_url"].(string)
	if price, ok := obj["price"].(map[string]any); ok {
		if amount, ok := numberOf(price["amount"]); ok {
			product.Price.Amount = amount
		}
		if currency, ok := price["currency"].(string); ok && currency != "" {
			product.Price.Currency = strings.ToUpper(currency)
		}
	}
	if specs, ok := obj["specs"].([]any); ok {
		for _, s := range specs {
			spec, _ := s.(map[string]any)
			key, value := nameOf(spec["key"]), nameOf(spec["value"])
			if key != "" && value != "" {
				product.Specs = append(product.Specs, model.ProductSpec{Key: key, Value: value})
			}
		}
	}
	return product, nil
}

func pageText(doc *goquery.Document) string {
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	body = body.Clone()
	body.Find("script, style, noscript, nav, footer, iframe").Remove()

	return utils.Truncate(collapseSpace(body.Text()), maxExtractionText)
}

func mergeSpecs(base, extra []model.ProductSpec) []model.ProductSpec {
	seen := make(map[string]struct{}, len(base))
	out := make([]model.ProductSpec, 0, len(base)+len(extra))
	for _, s := range append(append([]model.ProductSpec{}, base...), extra...) {
		k := strings.ToLower(s.Key)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}
