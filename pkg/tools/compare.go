package tools

import (
	"context"
	"fmt"
	"strings"

	"shoppinglens-be/internal/model"
	"shoppinglens-be/internal/pkg/logger"
	"shoppinglens-be/pkg/llm"
)

const (
	CheaperAlternativeReason = "Lower price with similar baseline specs."
	PricierAlternativeReason = "Higher price but could indicate premium build."
)

// ProductComparer writes a one or two sentence comparison. Without an LLM,
// or when the LLM fails, it falls back to a price-based sentence.
type ProductComparer struct {
	provider llm.LLMProvider
	logger   logger.ILogger
}

func NewProductComparer(provider llm.LLMProvider, log logger.ILogger) *ProductComparer {
	return &ProductComparer{provider: provider, logger: log}
}

func (c *ProductComparer) CompareProducts(ctx context.Context, a, b model.ExtractedProduct) (string, error) {
	if c.provider == nil {
		return PriceComparison(a, b), nil
	}

	prompt := fmt.Sprintf(`Compare these two products and explain in 1-2 sentences why the alternative might be better or worse.

Product A: %s ($%.2f %s)
Product B: %s ($%.2f %s)

Focus on price and any obvious differences in title.`,
		a.Title, a.Price.Amount, a.Price.Currency, b.Title, b.Price.Amount, b.Price.Currency)

	out, err := c.provider.Generate(ctx, prompt, llm.WithTemperature(0.1), llm.WithMaxTokens(120))
	if err != nil || strings.TrimSpace(out) == "" {
		if err != nil {
			c.logger.Debug("Compare", "LLM comparison failed", map[string]interface{}{"error": err.Error()})
		}
		return PriceComparison(a, b), nil
	}
	return strings.TrimSpace(out), nil
}

// PriceComparison describes the alternative b relative to a by price alone.
func PriceComparison(a, b model.ExtractedProduct) string {
	if a.Price.Amount <= b.Price.Amount {
		return CheaperAlternativeReason
	}
	return PricierAlternativeReason
}
