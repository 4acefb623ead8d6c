package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/pulse/internal/core"
	"github.com/newthinker/pulse/internal/llm"
)

var _ llm.Provider = (*Provider)(nil)

// capture decodes the raw request body so tests can see which fields were
// actually sent.
func capture(t *testing.T, got *map[string]any, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const okReply = `{"model":"m","message":{"role":"assistant","content":"{\"polarity\":-0.3}"},"done":true,"done_reason":"stop","prompt_eval_count":12,"eval_count":4}`

func TestNew_Defaults(t *testing.T) {
	p, err := New("", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpoint, p.endpoint)
	assert.Equal(t, DefaultModel, p.model)
	assert.Equal(t, "ollama", p.Name())
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	p, err := New("http://gpu-box:11434/", "qwen2.5")
	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:11434", p.endpoint)
}

func TestNew_RejectsBadEndpoint(t *testing.T) {
	for _, endpoint := range []string{"localhost:11434", "ftp://host", "http://"} {
		_, err := New(endpoint, "")
		assert.ErrorIs(t, err, core.ErrConfigInvalid, endpoint)
	}
}

func TestChat_JSONModeSendsFormat(t *testing.T) {
	var got map[string]any
	srv := capture(t, &got, okReply)

	p, err := New(srv.URL+"/", "m")
	require.NoError(t, err)
	resp, err := p.Chat(context.Background(), llm.ChatRequest{
		SystemPrompt: "score",
		Messages:     []llm.Message{{Role: "user", Content: "ETF inflows accelerate"}},
		JSONMode:     true,
	})
	require.NoError(t, err)

	assert.Equal(t, "json", got["format"])
	assert.Equal(t, false, got["stream"])
	assert.Equal(t, "m", got["model"])
	messages := got["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])

	assert.Equal(t, `{"polarity":-0.3}`, resp.Content)
	assert.Equal(t, 12, resp.Usage.InputTokens)
	assert.Equal(t, 4, resp.Usage.OutputTokens)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestChat_PlainModeOmitsFormat(t *testing.T) {
	var got map[string]any
	srv := capture(t, &got, okReply)

	p, err := New(srv.URL, "m")
	require.NoError(t, err)
	_, err = p.Chat(context.Background(), llm.ChatRequest{Messages: []llm.Message{{Role: "user", Content: "hi"}}})
	require.NoError(t, err)

	assert.NotContains(t, got, "format")
}

func TestChat_SendsZeroTemperature(t *testing.T) {
	var got map[string]any
	srv := capture(t, &got, okReply)

	p, err := New(srv.URL, "m")
	require.NoError(t, err)
	_, err = p.Chat(context.Background(), llm.ChatRequest{Temperature: 0, MaxTokens: 64})
	require.NoError(t, err)

	options := got["options"].(map[string]any)
	require.Contains(t, options, "temperature")
	assert.Equal(t, 0.0, options["temperature"])
	assert.Equal(t, 64.0, options["num_predict"])
}

func TestChat_StatusErrorCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model \"m\" not found, try pulling it first"}`))
	}))
	defer srv.Close()

	p, err := New(srv.URL, "m")
	require.NoError(t, err)
	_, err = p.Chat(context.Background(), llm.ChatRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), "try pulling it first")
}

func TestChat_IncompleteResponse(t *testing.T) {
	var got map[string]any
	srv := capture(t, &got, `{"message":{"role":"assistant","content":"{"},"done":false}`)

	p, err := New(srv.URL, "m")
	require.NoError(t, err)
	_, err = p.Chat(context.Background(), llm.ChatRequest{})
	assert.Error(t, err)
}

func TestWithHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(okReply))
	}))
	defer srv.Close()

	p, err := New(srv.URL, "m", WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	require.NoError(t, err)
	_, err = p.Chat(context.Background(), llm.ChatRequest{})
	assert.Error(t, err)
}
