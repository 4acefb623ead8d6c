package factory

import (
	"fmt"

	"github.com/newthinker/pulse/internal/config"
	"github.com/newthinker/pulse/internal/core"
	"github.com/newthinker/pulse/internal/llm"
	"github.com/newthinker/pulse/internal/llm/claude"
	"github.com/newthinker/pulse/internal/llm/ollama"
	"github.com/newthinker/pulse/internal/llm/openai"
)

// New creates an LLM provider based on configuration.
func New(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "claude":
		return claude.New(cfg.Claude.APIKey, cfg.Claude.Model)
	case "openai":
		return openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
	case "ollama":
		return ollama.New(cfg.Ollama.Endpoint, cfg.Ollama.Model)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown llm provider %q", cfg.Provider))
	}
}
