package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/researchcanvas/canvasd/internal/ports"
	"github.com/researchcanvas/canvasd/pkg/adapters/llm/anthropic"
)

// Client bundles the LLM-backed pipeline capabilities one provider
// implements.
type Client interface {
	ports.Planner
	ports.Researcher
	ports.Synthesizer
	ports.PlanGenerator
}

// Config holds LLM client configuration
type Config struct {
	Provider  string
	APIKey    string
	Model     string
	MaxTokens int64
	Metrics   ports.Metrics
	Logger    *zap.Logger
}

// NewClient creates a new LLM client based on provider
func NewClient(cfg *Config) (Client, error) {
	switch cfg.Provider {
	case "anthropic":
		return anthropic.NewClient(&anthropic.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			Metrics:   cfg.Metrics,
			Logger:    cfg.Logger,
		})
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
