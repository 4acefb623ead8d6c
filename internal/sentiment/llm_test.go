package sentiment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/pulse/internal/core"
	"github.com/newthinker/pulse/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	content string
	err     error
	last    llm.ChatRequest
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return &llm.ChatResponse{Content: m.content}, nil
}

func TestLLM_ParsesJSON(t *testing.T) {
	p := &mockProvider{content: `{"polarity": 0.62}`}
	s := NewLLM(p)

	got, err := s.Score(context.Background(), "ETF approved")
	require.NoError(t, err)
	assert.InDelta(t, 0.62, got, 1e-9)
	assert.True(t, p.last.JSONMode)
	assert.Equal(t, "ETF approved", p.last.Messages[0].Content)
	assert.Equal(t, "llm:mock", s.Name())
}

func TestLLM_ParsesProse(t *testing.T) {
	s := NewLLM(&mockProvider{content: "Polarity: -0.4 (bearish)"})

	got, err := s.Score(context.Background(), "exchange hacked")
	require.NoError(t, err)
	assert.InDelta(t, -0.4, got, 1e-9)
}

func TestLLM_ClampsOutOfRange(t *testing.T) {
	s := NewLLM(&mockProvider{content: `{"polarity": 7}`})

	got, err := s.Score(context.Background(), "to the moon")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestLLM_EmptyTextSkipsProvider(t *testing.T) {
	p := &mockProvider{err: errors.New("should not be called")}
	got, err := NewLLM(p).Score(context.Background(), "  ")
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestLLM_FailuresAreScoringFailures(t *testing.T) {
	tests := []struct {
		name string
		p    *mockProvider
	}{
		{"provider error", &mockProvider{err: errors.New("timeout")}},
		{"garbage response", &mockProvider{content: "I cannot answer that"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewLLM(tt.p).Score(context.Background(), "some headline")
			assert.ErrorIs(t, err, core.ErrScoringFailed)
			assert.Equal(t, 0.0, got)
		})
	}
}

type slowProvider struct{}

func (slowProvider) Name() string { return "slow" }

func (slowProvider) Chat(ctx context.Context, _ llm.ChatRequest) (*llm.ChatResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestLLM_TimeoutBoundsProviderCall(t *testing.T) {
	s := NewLLM(slowProvider{}).WithTimeout(10 * time.Millisecond)

	got, err := s.Score(context.Background(), "slow headline")
	assert.ErrorIs(t, err, core.ErrScoringFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0.0, got)
}
