package summary

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"

	"shoppinglens-be/internal/model"
	"shoppinglens-be/internal/pkg/logger"
	"shoppinglens-be/pkg/llm"
)

const (
	UnknownPrice       = "Unknown"
	CompatibilityNote  = "Compatibility not assessed with current sources."
	limitedPricingNote = "Limited competitor pricing data available."
)

// ValueStrategy produces a ShoppingSummary with a buy/hold/avoid verdict.
type ValueStrategy struct {
	provider llm.LLMProvider
	logger   logger.ILogger
}

func NewValueStrategy(provider llm.LLMProvider, log logger.ILogger) *ValueStrategy {
	return &ValueStrategy{provider: provider, logger: log}
}

func (s *ValueStrategy) Build(ctx context.Context, in Input) model.AgentPayload {
	fallback := BuildShoppingSummary(in)
	if s.provider == nil {
		return fallback
	}

	raw, err := s.provider.Generate(ctx, valuePrompt(in), llm.WithTemperature(0.2), llm.WithJSONResponse())
	if err != nil {
		s.logger.Warn("Summary", "LLM summary failed, using deterministic summary", map[string]interface{}{
			"session_id": in.SessionID,
			"thread_id":  in.ThreadID,
			"error":      err.Error(),
		})
		return fallback
	}
	return MergeShoppingSummary(raw, fallback)
}

// BuildShoppingSummary is the deterministic ShoppingSummary.
func BuildShoppingSummary(in Input) *model.ShoppingSummaryPayload {
	detectedPrice := FormatPrice(in.TopMatch.Price)

	competitors := make([]model.CompetitorPrice, 0, len(in.Alternatives))
	amounts := make([]float64, 0, len(in.Alternatives))
	for _, alt := range in.Alternatives {
		if !(alt.Price.Amount > 0) || math.IsInf(alt.Price.Amount, 0) {
			continue
		}
		competitors = append(competitors, model.CompetitorPrice{
			Site:  ExtractSite(alt.SourceURL, alt.Title),
			Price: FormatPrice(alt.Price),
		})
		amounts = append(amounts, alt.Price.Amount)
	}

	score := ComputeValueScore(in.TopMatch.Price.Amount, amounts)

	insight := limitedPricingNote
	if len(competitors) > 0 {
		insight = fmt.Sprintf("Compared %d competitor prices; current price is %s.", len(competitors), detectedPrice)
	}

	return &model.ShoppingSummaryPayload{
		Envelope: model.Envelope{
			Type:      model.PayloadShoppingSummary,
			SessionID: in.SessionID,
			ThreadID:  in.ThreadID,
		},
		ProductName:       in.TopMatch.Title,
		Brand:             ExtractBrand(in.TopMatch.Title, in.Seed),
		DetectedPrice:     detectedPrice,
		Competitors:       competitors,
		IsCompatible:      false,
		CompatibilityNote: CompatibilityNote,
		ValueScore:        score,
		AIInsight:         fmt.Sprintf("%s Value score: %s.", insight, score),
	}
}

// MergeShoppingSummary overlays the fields of a model response that have the
// right shape onto fallback. Envelope fields always come from fallback.
func MergeShoppingSummary(raw string, fallback *model.ShoppingSummaryPayload) *model.ShoppingSummaryPayload {
	obj, ok := llm.ParseJSONObject(raw)
	if !ok {
		return fallback
	}

	merged := *fallback
	merged.ProductName = stringField(obj, "productName", fallback.ProductName)
	merged.Brand = stringField(obj, "brand", fallback.Brand)
	merged.DetectedPrice = stringField(obj, "detectedPrice", fallback.DetectedPrice)
	merged.IsCompatible = boolField(obj, "isCompatible", fallback.IsCompatible)
	merged.CompatibilityNote = stringField(obj, "compatibilityNote", fallback.CompatibilityNote)
	merged.AIInsight = stringField(obj, "aiInsight", fallback.AIInsight)

	if score := model.ValueScore(stringField(obj, "valueScore", "")); score.Valid() {
		merged.ValueScore = score
	}

	if items, ok := obj["competitors"].([]any); ok {
		competitors := make([]model.CompetitorPrice, 0, len(items))
		for _, item := range items {
			entry, _ := item.(map[string]any)
			competitors = append(competitors, model.CompetitorPrice{
				Site:  stringField(entry, "site", UnknownPrice),
				Price: stringField(entry, "price", UnknownPrice),
			})
		}
		merged.Competitors = competitors
	}
	return &merged
}

// FormatPrice renders "$123.45", or "Unknown" for a non-finite amount.
func FormatPrice(p model.Price) string {
	if math.IsNaN(p.Amount) || math.IsInf(p.Amount, 0) {
		return UnknownPrice
	}
	return fmt.Sprintf("$%.2f", p.Amount)
}

// ExtractBrand prefers the seed hint, then the first word of the title.
func ExtractBrand(title string, seed *model.SearchSeed) string {
	if seed != nil && strings.TrimSpace(seed.BrandHint) != "" {
		return strings.TrimSpace(seed.BrandHint)
	}
	if fields := strings.Fields(title); len(fields) > 0 {
		return fields[0]
	}
	return "Unknown"
}

var retailers = []struct {
	marker string
	name   string
}{
	{"amazon", "Amazon"},
	{"bestbuy", "Best Buy"},
	{"walmart", "Walmart"},
	{"target", "Target"},
	{"ebay", "eBay"},
	{"newegg", "Newegg"},
	{"bhphoto", "B&H Photo"},
}

// ExtractSite maps a listing URL to a retailer display name.
func ExtractSite(rawURL, fallback string) string {
	orDefault := func(def string) string {
		if fallback != "" {
			return fallback
		}
		return def
	}

	if rawURL == "" {
		return orDefault("Unknown")
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return orDefault("Unknown")
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if strings.Contains(host, "google.com") || strings.Contains(host, "vertexaisearch") {
		return orDefault("Online Retailer")
	}
	for _, r := range retailers {
		if strings.Contains(host, r.marker) {
			return r.name
		}
	}
	return host
}

// ComputeValueScore compares the detected price with the competitor mean:
// at most 98% is a buy, above 105% is avoid, everything else holds.
func ComputeValueScore(detected float64, competitors []float64) model.ValueScore {
	if math.IsNaN(detected) || math.IsInf(detected, 0) || len(competitors) == 0 {
		return model.ValueScoreHold
	}

	var sum float64
	for _, c := range competitors {
		sum += c
	}
	avg := sum / float64(len(competitors))

	switch {
	case detected <= avg*0.98:
		return model.ValueScoreBuy
	case detected <= avg*1.05:
		return model.ValueScoreHold
	default:
		return model.ValueScoreAvoid
	}
}

func valuePrompt(in Input) string {
	var b strings.Builder
	b.WriteString("You are preparing a structured shopping summary. Output ONLY valid JSON with these keys:\n")
	b.WriteString("productName, brand, detectedPrice, competitors, isCompatible, compatibilityNote, valueScore, aiInsight.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- competitors is an array of objects: { \"site\": string, \"price\": string }\n")
	b.WriteString("- valueScore must be one of: \"buy\", \"hold\", \"avoid\"\n")
	b.WriteString("- detectedPrice must be a string like \"$123.45\"\n")
	b.WriteString("- If you are uncertain, keep fields conservative and say so in aiInsight.\n\n")
	writeProductContext(&b, in)
	b.WriteString("\nReturn ONLY JSON.")
	return b.String()
}

func writeProductContext(b *strings.Builder, in Input) {
	brandHint, categoryHint := "none", "none"
	if in.Seed != nil {
		if in.Seed.BrandHint != "" {
			brandHint = in.Seed.BrandHint
		}
		if in.Seed.CategoryHint != "" {
			categoryHint = in.Seed.CategoryHint
		}
	}

	fmt.Fprintf(b, "Product:\nTitle: %s\nPrice: %v %s\nSource: %s\nBrand hint: %s\nCategory hint: %s\n",
		in.TopMatch.Title, in.TopMatch.Price.Amount, in.TopMatch.Price.Currency, in.TopMatch.SourceURL, brandHint, categoryHint)
	for _, spec := range in.TopMatch.Specs {
		fmt.Fprintf(b, "Spec: %s = %s\n", spec.Key, spec.Value)
	}

	b.WriteString("\nAlternatives:\n")
	if len(in.Alternatives) == 0 {
		b.WriteString("none\n")
	}
	for i, alt := range in.Alternatives {
		source := alt.SourceURL
		if source == "" {
			source = "unknown"
		}
		fmt.Fprintf(b, "%d. %s | %v %s | %s\n", i+1, alt.Title, alt.Price.Amount, alt.Price.Currency, source)
	}
}
