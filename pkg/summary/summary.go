package summary

import (
	"context"
	"fmt"

	"shoppinglens-be/internal/model"
	"shoppinglens-be/internal/pkg/logger"
	"shoppinglens-be/pkg/llm"
)

const (
	StrategyValue    = "value"
	StrategyProsCons = "proscons"
)

// Input is everything a summary is derived from.
type Input struct {
	SessionID    string
	ThreadID     string
	TopMatch     model.ExtractedProduct
	Alternatives []model.Alternative
	Seed         *model.SearchSeed
}

// Strategy turns research output into the closing payload of a research run.
// Build always returns a payload; enrichment failures fall back to the
// deterministic result.
type Strategy interface {
	Build(ctx context.Context, in Input) model.AgentPayload
}

// NewStrategy picks a strategy by name. provider may be nil.
func NewStrategy(name string, provider llm.LLMProvider, log logger.ILogger) (Strategy, error) {
	switch name {
	case "", StrategyValue:
		return NewValueStrategy(provider, log), nil
	case StrategyProsCons:
		return NewProsConsStrategy(provider, log), nil
	default:
		return nil, fmt.Errorf("unknown summary strategy: %s", name)
	}
}
