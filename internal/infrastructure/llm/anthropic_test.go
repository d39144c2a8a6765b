package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TopicScribe/internal/config"
	"TopicScribe/internal/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *AnthropicClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewAnthropicClient(config.AnthropicConfig{
		Endpoint:          server.URL,
		APIKey:            "key",
		Model:             "claude-test",
		Version:           "2023-06-01",
		MaxTokens:         64000,
		ClassifyMaxTokens: 50,
		CondenseMaxTokens: 100,
		Timeout:           5 * time.Second,
	}, logging.Discard())
}

func TestGenerateSendsMessagesRequest(t *testing.T) {
	t.Parallel()

	var captured messagesRequest
	var headers http.Header
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured)
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"# Divination\nBody"}],"stop_reason":"end_turn","usage":{"input_tokens":120,"output_tokens":3400}}`)
	})

	gen, err := client.Generate(context.Background(), "Divination")
	require.NoError(t, err)

	assert.Equal(t, "# Divination\nBody", gen.Text)
	assert.Equal(t, 120, gen.Usage.InputTokens)
	assert.Equal(t, 3400, gen.Usage.OutputTokens)
	assert.Equal(t, "end_turn", gen.StopReason)

	assert.Equal(t, "key", headers.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", headers.Get("anthropic-version"))
	assert.Equal(t, "claude-test", captured.Model)
	assert.Equal(t, 64000, captured.MaxTokens)
	assert.Contains(t, captured.System, "educational document")
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[0].Content, "of Divination.")
}

func TestClassifyListsExistingLabels(t *testing.T) {
	t.Parallel()

	var captured messagesRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"Divination"}],"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":2}}`)
	})

	gen, err := client.Classify(context.Background(), "Tarot", []string{"Divination", "Media"})
	require.NoError(t, err)
	assert.Equal(t, "Divination", gen.Text)
	assert.Equal(t, 50, captured.MaxTokens)
	assert.Contains(t, captured.Messages[0].Content, `"Tarot"`)
	assert.Contains(t, captured.Messages[0].Content, "EXISTING UMBRELLA TERMS: Divination, Media")
	assert.Contains(t, captured.System, "taxonomist")
}

func TestClassifyWithoutLabels(t *testing.T) {
	t.Parallel()

	var captured messagesRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"Craft"}],"usage":{}}`)
	})

	_, err := client.Classify(context.Background(), "Pottery", nil)
	require.NoError(t, err)
	assert.Contains(t, captured.Messages[0].Content, "EXISTING UMBRELLA TERMS: None yet")
}

func TestCondenseIncludesLimit(t *testing.T) {
	t.Parallel()

	var captured messagesRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"Short"}],"usage":{"input_tokens":5,"output_tokens":1}}`)
	})

	gen, err := client.Condense(context.Background(), "A very long title", 109)
	require.NoError(t, err)
	assert.Equal(t, "Short", gen.Text)
	assert.Equal(t, 100, captured.MaxTokens)
	assert.Contains(t, captured.Messages[0].Content, "under 109 characters")
	assert.Contains(t, captured.Messages[0].Content, "Original: A very long title")
}

func TestEmptyResponseKeepsUsage(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"content":[],"stop_reason":"max_tokens","usage":{"input_tokens":7,"output_tokens":0}}`)
	})

	gen, err := client.Generate(context.Background(), "Runes")
	require.ErrorIs(t, err, ErrEmptyResponse)
	assert.Equal(t, 7, gen.Usage.InputTokens)
	assert.Equal(t, "max_tokens", gen.StopReason)
}

func TestAPIErrorMessage(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)
	})

	_, err := client.Generate(context.Background(), "Runes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow down")
	assert.Contains(t, err.Error(), "rate_limit_error")
}

func TestMisconfiguredClient(t *testing.T) {
	t.Parallel()

	client := NewAnthropicClient(config.AnthropicConfig{Endpoint: "http://unused", Model: "m"}, nil)
	_, err := client.Generate(context.Background(), "Runes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "misconfigured")
}
