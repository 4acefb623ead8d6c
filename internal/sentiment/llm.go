package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/pulse/internal/core"
	"github.com/newthinker/pulse/internal/llm"
)

const llmSystemPrompt = `You rate the sentiment of financial news for crypto traders.
Reply with JSON only: {"polarity": <number between -1 and 1>}.
-1 is clearly negative, 0 is neutral, 1 is clearly positive.`

var polarityPattern = regexp.MustCompile(`-?\d+(\.\d+)?`)

// LLM scores text through a chat model.
type LLM struct {
	provider  llm.Provider
	maxTokens int
	timeout   time.Duration
}

// NewLLM wraps an LLM provider as a Scorer.
func NewLLM(provider llm.Provider) *LLM {
	return &LLM{provider: provider, maxTokens: 64}
}

// WithTimeout bounds each provider call. Zero means only ctx applies.
func (s *LLM) WithTimeout(d time.Duration) *LLM {
	s.timeout = d
	return s
}

func (s *LLM) Name() string { return "llm:" + s.provider.Name() }

// Score asks the provider for a polarity. Any failure is reported as
// core.ErrScoringFailed so callers can fall back to a neutral score.
func (s *LLM) Score(ctx context.Context, text string) (float64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.provider.Chat(ctx, llm.ChatRequest{
		SystemPrompt: llmSystemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: text},
		},
		MaxTokens:   s.maxTokens,
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		return 0, core.WrapError(core.ErrScoringFailed, err)
	}

	p, err := parsePolarity(resp.Content)
	if err != nil {
		return 0, core.WrapError(core.ErrScoringFailed, err)
	}
	return Clamp(p), nil
}

func parsePolarity(content string) (float64, error) {
	var out struct {
		Polarity *float64 `json:"polarity"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &out); err == nil && out.Polarity != nil {
		return *out.Polarity, nil
	}

	// models sometimes wrap the number in prose
	m := polarityPattern.FindString(content)
	if m == "" {
		return 0, fmt.Errorf("no polarity in response %q", content)
	}
	p, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(p) {
		return 0, fmt.Errorf("parsing polarity %q: %w", m, err)
	}
	return p, nil
}
