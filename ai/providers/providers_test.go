package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goliatone/go-star/ai"
	"github.com/stretchr/testify/require"
)

type capture struct {
	mu   sync.Mutex
	path string
	body map[string]any
}

func (c *capture) record(t *testing.T, r *http.Request) {
	t.Helper()
	raw, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	c.mu.Lock()
	c.path = r.URL.Path
	c.body = body
	c.mu.Unlock()
}

func TestOpenAI_CompleteSendsJSONModeAndReadsReply(t *testing.T) {
	var seen capture
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.record(t, r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "{\"title\":\"T\"}"}}]
		}`)
	}))
	defer srv.Close()

	provider, err := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL, MaxTokens: 500})
	require.NoError(t, err)
	require.True(t, provider.SupportsStructured())

	resp, err := provider.Complete(context.Background(), ai.Request{
		Operation:   ai.OperationGenerate,
		System:      "system text",
		Prompt:      "prompt text",
		Temperature: temperature(0.7),
		JSON:        true,
	})
	require.NoError(t, err)
	require.Equal(t, `{"title":"T"}`, resp.Text)
	require.Equal(t, "gpt-4o", resp.Model)

	require.True(t, strings.HasSuffix(seen.path, "/chat/completions"))
	require.Equal(t, "gpt-4o", seen.body["model"])
	require.Equal(t, 0.7, seen.body["temperature"])
	format, ok := seen.body["response_format"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "json_object", format["type"])
	messages, ok := seen.body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
}

func temperature(v float64) *float64 { return &v }

func TestOpenAI_TemperatureSentOnlyWhenSet(t *testing.T) {
	var seen capture
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.record(t, r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-2",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "ok"}}]
		}`)
	}))
	defer srv.Close()

	provider, err := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = provider.Complete(context.Background(), ai.Request{Prompt: "p", Temperature: temperature(0)})
	require.NoError(t, err)
	require.Contains(t, seen.body, "temperature")
	require.EqualValues(t, 0, seen.body["temperature"])

	_, err = provider.Complete(context.Background(), ai.Request{Prompt: "p"})
	require.NoError(t, err)
	require.NotContains(t, seen.body, "temperature")
}

func TestOpenAI_ImageRequestUsesContentParts(t *testing.T) {
	var seen capture
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.record(t, r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","created":1,"model":"gpt-4o","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	provider, err := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = provider.Complete(context.Background(), ai.Request{
		Prompt: "read this",
		Model:  "gpt-4o-mini",
		Images: []ai.Image{{ContentType: "image/png", Data: []byte("png")}},
	})
	require.NoError(t, err)
	require.Equal(t, "gpt-4o-mini", seen.body["model"])

	messages := seen.body["messages"].([]any)
	user := messages[len(messages)-1].(map[string]any)
	parts, ok := user["content"].([]any)
	require.True(t, ok)
	require.Len(t, parts, 2)
	image := parts[1].(map[string]any)["image_url"].(map[string]any)
	require.True(t, strings.HasPrefix(image["url"].(string), "data:image/png;base64,"))
}

func TestOpenAI_ErrorStatusSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
	}))
	defer srv.Close()

	provider, err := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL, MaxRetries: 0})
	require.NoError(t, err)

	_, err = provider.Complete(context.Background(), ai.Request{Prompt: "hi"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limited")
}

func TestNewOpenAI_RequiresKey(t *testing.T) {
	_, err := NewOpenAI(OpenAIConfig{})
	require.Error(t, err)
}

func TestAnthropic_CompleteJoinsTextBlocks(t *testing.T) {
	var seen capture
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.record(t, r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "Situation: one"}, {"type": "text", "text": "\n\nTask: two"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 1, "output_tokens": 2}
		}`)
	}))
	defer srv.Close()

	provider, err := NewAnthropic(AnthropicConfig{APIKey: "key", BaseURL: srv.URL, Model: "claude-test", MaxRetries: 0})
	require.NoError(t, err)
	require.False(t, provider.SupportsStructured())

	resp, err := provider.Complete(context.Background(), ai.Request{System: "be brief", Prompt: "write", Temperature: temperature(0)})
	require.NoError(t, err)
	require.Equal(t, "Situation: one\n\nTask: two", resp.Text)
	require.Equal(t, "claude-test", resp.Model)

	require.True(t, strings.HasSuffix(seen.path, "/v1/messages"))
	require.Equal(t, "claude-test", seen.body["model"])
	require.EqualValues(t, DefaultAnthropicMaxTokens, seen.body["max_tokens"])
	require.NotNil(t, seen.body["system"])
	require.Contains(t, seen.body, "temperature")
	require.EqualValues(t, 0, seen.body["temperature"])
}

func TestNewAnthropic_RequiresKey(t *testing.T) {
	_, err := NewAnthropic(AnthropicConfig{})
	require.Error(t, err)
}
