package factory

import (
	"fmt"
	"time"

	"shoppinglens-be/pkg/llm"
	"shoppinglens-be/pkg/llm/gemini"
	"shoppinglens-be/pkg/llm/huggingface"
	"shoppinglens-be/pkg/llm/ollama"
)

type Config struct {
	Provider string // "gemini", "ollama", "huggingface" or "" for none
	Model    string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
}

// NewLLMProvider builds the configured backend. It returns (nil, nil) when no
// provider is configured; callers then stay on their deterministic paths.
func NewLLMProvider(cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "gemini":
		if cfg.APIKey == "" {
			return nil, nil
		}
		return gemini.NewGeminiProvider(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout), nil
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model, cfg.Timeout), nil
	case "huggingface":
		return huggingface.NewHuggingFaceProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
