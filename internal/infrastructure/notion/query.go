package notion

import (
	"context"
	"fmt"
	"net/http"

	"TopicScribe/internal/domain"
)

type queryRequest struct {
	PageSize    int    `json:"page_size"`
	Filter      any    `json:"filter,omitempty"`
	StartCursor string `json:"start_cursor,omitempty"`
}

type queryResponse struct {
	Results    []page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

// QueryTopics runs a filtered query against the topics database, following cursors
// until the results are exhausted or MaxResults is reached.
func (c *Client) QueryTopics(ctx context.Context, query domain.TopicQuery) ([]domain.Topic, error) {
	pages, err := c.queryDatabase(ctx, c.topicsDB, c.topicFilter(query), query.PageSize, query.MaxResults)
	if err != nil {
		return nil, err
	}

	topics := make([]domain.Topic, 0, len(pages))
	for _, p := range pages {
		topics = append(topics, c.toTopic(p))
	}
	return topics, nil
}

func (c *Client) queryDatabase(ctx context.Context, databaseID string, filter any, pageSize, maxResults int) ([]page, error) {
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	req := queryRequest{PageSize: pageSize, Filter: filter}
	var results []page

	for {
		var resp queryResponse
		if err := c.do(ctx, http.MethodPost, "/databases/"+databaseID+"/query", req, &resp); err != nil {
			return nil, fmt.Errorf("query database %s: %w", databaseID, err)
		}
		results = append(results, resp.Results...)

		if maxResults > 0 && len(results) >= maxResults {
			return results[:maxResults], nil
		}
		if !resp.HasMore || resp.NextCursor == "" {
			return results, nil
		}
		req.StartCursor = resp.NextCursor
	}
}

func (c *Client) topicFilter(query domain.TopicQuery) any {
	var conditions []map[string]any

	switch {
	case query.Unprocessed:
		conditions = append(conditions,
			map[string]any{"property": c.props.Processed, "checkbox": map[string]any{"equals": false}},
			map[string]any{"property": c.props.Title, "title": map[string]any{"is_not_empty": true}},
		)
	case !query.ProcessedOn.IsZero():
		conditions = append(conditions,
			map[string]any{"property": c.props.ProcessedOn, "date": map[string]any{"equals": query.ProcessedOn.Format(dateLayout)}},
			map[string]any{"property": c.props.Processed, "checkbox": map[string]any{"equals": true}},
		)
	case query.Category != "":
		conditions = append(conditions,
			map[string]any{"property": c.props.Category, "select": map[string]any{"equals": query.Category}},
			map[string]any{"property": c.props.Compiled, "checkbox": map[string]any{"equals": false}},
			map[string]any{"property": c.props.Processed, "checkbox": map[string]any{"equals": true}},
		)
	default:
		return nil
	}

	return map[string]any{"and": conditions}
}
