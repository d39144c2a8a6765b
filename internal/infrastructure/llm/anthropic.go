package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"TopicScribe/internal/config"
	"TopicScribe/internal/domain"
	"TopicScribe/internal/ports"
)

// ErrEmptyResponse is returned when the service answers without any text.
var ErrEmptyResponse = errors.New("empty response")

const stopMaxTokens = "max_tokens"

// AnthropicClient implements ports.Generator on top of the Messages API.
type AnthropicClient struct {
	endpoint          string
	apiKey            string
	model             string
	version           string
	maxTokens         int
	classifyMaxTokens int
	condenseMaxTokens int
	logger            *slog.Logger
	httpClient        *http.Client
}

var _ ports.Generator = (*AnthropicClient)(nil)

// NewAnthropicClient builds a client from configuration.
func NewAnthropicClient(cfg config.AnthropicConfig, logger *slog.Logger) *AnthropicClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnthropicClient{
		endpoint:          cfg.Endpoint,
		apiKey:            cfg.APIKey,
		model:             cfg.Model,
		version:           cfg.Version,
		maxTokens:         cfg.MaxTokens,
		classifyMaxTokens: cfg.ClassifyMaxTokens,
		condenseMaxTokens: cfg.CondenseMaxTokens,
		logger:            logger.With("component", "anthropic"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Generate produces the long-form document for a topic.
func (c *AnthropicClient) Generate(ctx context.Context, topic string) (domain.Generation, error) {
	return c.complete(ctx, "generate", "generate_system.md", "generate.md", promptData{Topic: topic}, c.maxTokens)
}

// Classify asks for the umbrella term that best fits the topic.
func (c *AnthropicClient) Classify(ctx context.Context, topic string, labels []string) (domain.Generation, error) {
	return c.complete(ctx, "classify", "classify_system.md", "classify.md", promptData{Topic: topic, Labels: labels}, c.classifyMaxTokens)
}

// Condense asks for a shorter title of at most maxLen characters.
func (c *AnthropicClient) Condense(ctx context.Context, title string, maxLen int) (domain.Generation, error) {
	return c.complete(ctx, "condense", "condense_system.md", "condense.md", promptData{Topic: title, MaxLen: maxLen}, c.condenseMaxTokens)
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *AnthropicClient) complete(ctx context.Context, op, systemTmpl, userTmpl string, data promptData, maxTokens int) (domain.Generation, error) {
	if c == nil {
		return domain.Generation{}, fmt.Errorf("anthropic client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return domain.Generation{}, fmt.Errorf("anthropic client misconfigured")
	}

	system, err := renderPrompt(systemTmpl, data)
	if err != nil {
		return domain.Generation{}, err
	}
	user, err := renderPrompt(userTmpl, data)
	if err != nil {
		return domain.Generation{}, err
	}

	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []message{{Role: "user", Content: user}},
	})
	if err != nil {
		return domain.Generation{}, fmt.Errorf("marshal %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Generation{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", c.version)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Generation{}, fmt.Errorf("%s request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		var apiErr errorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return domain.Generation{}, fmt.Errorf("anthropic error %s: %s (%s)", resp.Status, apiErr.Error.Message, apiErr.Error.Type)
		}
		return domain.Generation{}, fmt.Errorf("anthropic error %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var decoded messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Generation{}, fmt.Errorf("decode %s response: %w", op, err)
	}

	gen := domain.Generation{
		Usage: domain.Usage{
			InputTokens:  decoded.Usage.InputTokens,
			OutputTokens: decoded.Usage.OutputTokens,
		},
		StopReason: decoded.StopReason,
	}
	if len(decoded.Content) > 0 {
		gen.Text = decoded.Content[0].Text
	}

	if gen.StopReason == stopMaxTokens {
		c.logger.WarnContext(ctx, "response truncated at max tokens", "op", op, "output_tokens", gen.Usage.OutputTokens)
	}
	if strings.TrimSpace(gen.Text) == "" {
		return gen, fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}

	return gen, nil
}
