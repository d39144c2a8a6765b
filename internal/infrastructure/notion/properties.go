package notion

import (
	"fmt"
	"strings"
	"time"

	"TopicScribe/internal/document"
	"TopicScribe/internal/domain"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05"
)

type page struct {
	ID         string              `json:"id"`
	Properties map[string]property `json:"properties"`
}

type property struct {
	Type     string       `json:"type"`
	Checkbox bool         `json:"checkbox"`
	Title    []plainText  `json:"title"`
	RichText []plainText  `json:"rich_text"`
	URL      *string      `json:"url"`
	Date     *dateValue   `json:"date"`
	Select   *selectValue `json:"select"`
	Number   *float64     `json:"number"`
}

type plainText struct {
	PlainText string `json:"plain_text"`
}

type dateValue struct {
	Start string `json:"start"`
}

type selectValue struct {
	Name string `json:"name"`
}

func (p page) text(name string) string {
	prop, ok := p.Properties[name]
	if !ok {
		return ""
	}

	var parts []plainText
	switch prop.Type {
	case "title":
		parts = prop.Title
	case "rich_text":
		parts = prop.RichText
	case "url":
		if prop.URL != nil {
			return *prop.URL
		}
		return ""
	case "select":
		if prop.Select != nil {
			return prop.Select.Name
		}
		return ""
	}

	var sb strings.Builder
	for _, t := range parts {
		sb.WriteString(t.PlainText)
	}
	return sb.String()
}

func (p page) checkbox(name string) bool {
	prop, ok := p.Properties[name]
	return ok && prop.Type == "checkbox" && prop.Checkbox
}

func (p page) date(name string) time.Time {
	prop, ok := p.Properties[name]
	if !ok || prop.Date == nil || len(prop.Date.Start) < len(dateLayout) {
		return time.Time{}
	}
	day, err := time.Parse(dateLayout, prop.Date.Start[:len(dateLayout)])
	if err != nil {
		return time.Time{}
	}
	return day
}

func (c *Client) toTopic(p page) domain.Topic {
	return domain.Topic{
		ID:          p.ID,
		Title:       p.text(c.props.Title),
		Processed:   p.checkbox(c.props.Processed),
		Link:        p.text(c.props.Link),
		Category:    p.text(c.props.Category),
		ProcessedOn: p.date(c.props.ProcessedOn),
		Compiled:    p.checkbox(c.props.Compiled),
	}
}

func (c *Client) commitProperties(update domain.CommitUpdate) map[string]any {
	props := map[string]any{
		c.props.Processed:   checkbox(true),
		c.props.Link:        map[string]any{"url": update.Link()},
		c.props.ProcessedOn: date(update.ProcessedOn().Format(dateLayout)),
	}
	if update.Category() != "" {
		props[c.props.Category] = selectOption(update.Category())
	}
	if update.QuotaSource() != "" {
		props[c.props.QuotaSource] = selectOption(update.QuotaSource())
	}
	return props
}

func (c *Client) summaryProperties(s domain.Summary) map[string]any {
	if s.Kind == domain.SummaryCategory {
		return map[string]any{
			c.props.CategoryTitle:  titleValue(s.Title),
			c.props.CategoryLabel:  selectOption(s.Category),
			c.props.CategoryDate:   date(s.Date.Format(dateLayout)),
			c.props.CategoryCount:  map[string]any{"number": s.Count},
			c.props.CategoryLink:   map[string]any{"url": s.Link},
			c.props.CategoryStatus: selectOption(s.Status),
		}
	}
	return map[string]any{
		c.props.DailyTitle:  titleValue(s.Title),
		c.props.DailyDate:   date(s.Date.Format(dateLayout)),
		c.props.DailyCount:  map[string]any{"number": s.Count},
		c.props.DailyLink:   map[string]any{"url": s.Link},
		c.props.DailyStatus: selectOption(s.Status),
	}
}

func (c *Client) registryProperties(s domain.RegistrySnapshot) map[string]any {
	var lastRun any
	if !s.LastRun.IsZero() {
		lastRun = map[string]any{"start": s.LastRun.Format(dateTimeLayout)}
	}

	health := fmt.Sprintf("Generation API: Healthy | Artifact Storage: Healthy | Notion API: Healthy | Health Score: %d", s.HealthScore)

	return map[string]any{
		c.props.RegistryStatus:    selectOption(s.Status),
		c.props.RegistryModel:     map[string]any{"multi_select": []map[string]any{{"name": s.Model}}},
		c.props.RegistryLastRun:   map[string]any{"date": lastRun},
		c.props.RegistryCost:      map[string]any{"number": s.Cost},
		c.props.RegistryTotal:     map[string]any{"number": s.TotalProcessed},
		c.props.RegistryHealth:    map[string]any{"rich_text": document.TextRuns(health)},
		c.props.RegistryFrequency: map[string]any{"rich_text": document.TextRuns(s.RunFrequency)},
	}
}

func checkbox(v bool) map[string]any {
	return map[string]any{"checkbox": v}
}

func date(start string) map[string]any {
	return map[string]any{"date": map[string]any{"start": start}}
}

func selectOption(name string) map[string]any {
	return map[string]any{"select": map[string]any{"name": name}}
}

func titleValue(text string) map[string]any {
	return map[string]any{"title": document.TextRuns(text)}
}
