package summary

import (
	"context"
	"fmt"
	"strings"

	"shoppinglens-be/internal/model"
	"shoppinglens-be/internal/pkg/logger"
	"shoppinglens-be/pkg/llm"
)

const maxSpecPros = 2

// ProsConsStrategy produces an AISummary: a short verdict with pros, cons and
// the shoppers the product suits.
type ProsConsStrategy struct {
	provider llm.LLMProvider
	logger   logger.ILogger
}

func NewProsConsStrategy(provider llm.LLMProvider, log logger.ILogger) *ProsConsStrategy {
	return &ProsConsStrategy{provider: provider, logger: log}
}

func (s *ProsConsStrategy) Build(ctx context.Context, in Input) model.AgentPayload {
	fallback := BuildProsCons(in)
	if s.provider == nil {
		return fallback
	}

	raw, err := s.provider.Generate(ctx, prosConsPrompt(in), llm.WithTemperature(0.3), llm.WithJSONResponse())
	if err != nil {
		s.logger.Warn("Summary", "LLM pros/cons failed, using deterministic summary", map[string]interface{}{
			"session_id": in.SessionID,
			"thread_id":  in.ThreadID,
			"error":      err.Error(),
		})
		return fallback
	}
	return MergeProsCons(raw, fallback)
}

// BuildProsCons derives an AISummary from price position and specs.
func BuildProsCons(in Input) *model.AISummaryPayload {
	fallbackSummary := BuildShoppingSummary(in)
	score := fallbackSummary.ValueScore
	price := fallbackSummary.DetectedPrice
	compared := len(fallbackSummary.Competitors)

	var pros, cons []string
	switch {
	case compared == 0:
		cons = append(cons, "Not enough competitor pricing to judge the deal.")
	case score == model.ValueScoreBuy:
		pros = append(pros, fmt.Sprintf("Priced below the average of %d competing listings.", compared))
	case score == model.ValueScoreAvoid:
		cons = append(cons, fmt.Sprintf("Priced above the average of %d competing listings.", compared))
	default:
		pros = append(pros, "Priced in line with competing listings.")
	}
	if !(in.TopMatch.Price.Amount > 0) {
		cons = append(cons, "Current price could not be confirmed.")
	}

	for i, spec := range in.TopMatch.Specs {
		if i == maxSpecPros {
			break
		}
		pros = append(pros, fmt.Sprintf("%s: %s", spec.Key, spec.Value))
	}
	if len(in.TopMatch.Specs) == 0 {
		cons = append(cons, "Limited specification data available.")
	}

	brand := fallbackSummary.Brand
	bestFor := []string{fmt.Sprintf("Shoppers comparing %s options", brand)}
	if in.Seed != nil && strings.TrimSpace(in.Seed.CategoryHint) != "" {
		bestFor = append([]string{fmt.Sprintf("Anyone shopping for %s", strings.TrimSpace(in.Seed.CategoryHint))}, bestFor...)
	}

	return &model.AISummaryPayload{
		Envelope: model.Envelope{
			Type:      model.PayloadAISummary,
			SessionID: in.SessionID,
			ThreadID:  in.ThreadID,
		},
		Summary: fmt.Sprintf("%s at %s. Value score: %s.", in.TopMatch.Title, price, score),
		Pros:    nonNil(pros),
		Cons:    nonNil(cons),
		BestFor: bestFor,
	}
}

// MergeProsCons overlays well-typed fields of a model response onto fallback.
func MergeProsCons(raw string, fallback *model.AISummaryPayload) *model.AISummaryPayload {
	obj, ok := llm.ParseJSONObject(raw)
	if !ok {
		return fallback
	}

	merged := *fallback
	merged.Summary = stringField(obj, "summary", fallback.Summary)
	merged.Pros = stringList(obj, "pros", fallback.Pros)
	merged.Cons = stringList(obj, "cons", fallback.Cons)
	merged.BestFor = stringList(obj, "best_for", fallback.BestFor)
	return &merged
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func prosConsPrompt(in Input) string {
	var b strings.Builder
	b.WriteString("You are a shopping assistant. Output ONLY valid JSON with these keys:\n")
	b.WriteString("summary (string, one or two sentences), pros (array of strings), cons (array of strings), best_for (array of strings).\n")
	b.WriteString("Base every point on the data below. Do not invent specifications.\n\n")
	writeProductContext(&b, in)
	b.WriteString("\nReturn ONLY JSON.")
	return b.String()
}
