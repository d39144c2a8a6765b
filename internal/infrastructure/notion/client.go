package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"TopicScribe/internal/config"
	"TopicScribe/internal/document"
	"TopicScribe/internal/domain"
	"TopicScribe/internal/ports"
)

const maxPageSize = 100

// Client talks to the Notion REST API.
type Client struct {
	baseURL  string
	apiKey   string
	version  string
	topicsDB string
	props    config.PropertyNames
	http     *http.Client
}

var _ ports.RecordStore = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.NotionConfig) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		version:  cfg.Version,
		topicsDB: cfg.TopicsDB,
		props:    cfg.Properties,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// GetPage fetches a raw page object.
func (c *Client) GetPage(ctx context.Context, pageID string) (map[string]any, error) {
	var page map[string]any
	if err := c.do(ctx, http.MethodGet, "/pages/"+pageID, nil, &page); err != nil {
		return nil, fmt.Errorf("get page %s: %w", pageID, err)
	}
	return page, nil
}

// UpdateTopic marks a topic processed and stores its link, category, date and quota source in one request.
func (c *Client) UpdateTopic(ctx context.Context, pageID string, update domain.CommitUpdate) error {
	if !update.Valid() {
		return domain.ErrMissingLink
	}
	if err := c.updateProperties(ctx, pageID, c.commitProperties(update)); err != nil {
		return fmt.Errorf("update topic %s: %w", pageID, err)
	}
	return nil
}

// MarkCompiled flags a topic as used in a category compilation.
func (c *Client) MarkCompiled(ctx context.Context, pageID string) error {
	props := map[string]any{c.props.Compiled: checkbox(true)}
	if err := c.updateProperties(ctx, pageID, props); err != nil {
		return fmt.Errorf("mark compiled %s: %w", pageID, err)
	}
	return nil
}

// AppendBlocks appends children blocks to a page.
func (c *Client) AppendBlocks(ctx context.Context, pageID string, blocks []document.StoreBlock) error {
	payload := map[string]any{"children": blocks}
	if err := c.do(ctx, http.MethodPatch, "/blocks/"+pageID+"/children", payload, nil); err != nil {
		return fmt.Errorf("append blocks to %s: %w", pageID, err)
	}
	return nil
}

// CreateSummary creates a compilation summary page and returns its id.
func (c *Client) CreateSummary(ctx context.Context, databaseID string, summary domain.Summary) (string, error) {
	payload := map[string]any{
		"parent":     map[string]any{"database_id": databaseID},
		"properties": c.summaryProperties(summary),
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/pages", payload, &resp); err != nil {
		return "", fmt.Errorf("create summary in %s: %w", databaseID, err)
	}
	return resp.ID, nil
}

// UpdateRegistry pushes the operational snapshot to the registry page.
func (c *Client) UpdateRegistry(ctx context.Context, pageID string, snapshot domain.RegistrySnapshot) error {
	if err := c.updateProperties(ctx, pageID, c.registryProperties(snapshot)); err != nil {
		return fmt.Errorf("update registry %s: %w", pageID, err)
	}
	return nil
}

func (c *Client) updateProperties(ctx context.Context, pageID string, props map[string]any) error {
	return c.do(ctx, http.MethodPatch, "/pages/"+pageID, map[string]any{"properties": props}, nil)
}

// apiError is the error object returned by the API.
type apiError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, payload any, v any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Notion-Version", c.version)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		_ = resp.Body.Close()

		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("notion error %s: %s (code %s)", resp.Status, apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("notion error %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	if v == nil {
		if err := resp.Body.Close(); err != nil {
			return fmt.Errorf("close response body: %w", err)
		}
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}
