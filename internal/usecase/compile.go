package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"TopicScribe/internal/document"
	"TopicScribe/internal/domain"
)

const (
	dailyTitlePrefix   = "📅 Established Daily Document — "
	categoryHeader     = "Category: "
	categoryFilePrefix = "CategoryCompilation_"
	summaryComplete    = "Complete"
)

// CompileDaily builds the compilation of topics processed today. It waits for a running
// cycle to finish rather than being skipped.
func (e *Engine) CompileDaily(ctx context.Context) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	today := e.today()
	logger := e.logger.With("job", "daily-compilation", "date", today.Format("2006-01-02"))
	logger.Info("starting daily compilation")

	topics, err := e.store.QueryTopics(ctx, domain.TopicQuery{
		ProcessedOn: today,
		PageSize:    compilationPageSize,
	})
	if err != nil {
		return fmt.Errorf("query daily topics: %w", err)
	}

	included := compilable(topics)
	if len(included) == 0 {
		logger.Info("no topics processed today")
		return nil
	}

	title := DailyTitle(today)
	link, err := e.publish(ctx, title, compilationBody(title, included), e.settings.DailyFolder, title+docxExtension)
	if err != nil {
		return fmt.Errorf("publish daily compilation: %w", err)
	}

	_, err = e.store.CreateSummary(ctx, e.settings.DailyDB, domain.Summary{
		Kind:   domain.SummaryDaily,
		Title:  title,
		Date:   today,
		Count:  len(included),
		Link:   link,
		Status: summaryComplete,
	})
	if err != nil {
		return fmt.Errorf("create daily summary: %w", err)
	}

	logger.Info("daily compilation complete", "count", len(included), "link", link)
	return nil
}

// CompileCategory builds the compilation of processed, not yet compiled topics with the
// given label, then marks those topics compiled.
func (e *Engine) CompileCategory(ctx context.Context, label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return ErrEmptyCategory
	}

	e.runMu.Lock()
	defer e.runMu.Unlock()

	logger := e.logger.With("job", "category-compilation", "category", label)
	logger.Info("starting category compilation")

	topics, err := e.store.QueryTopics(ctx, domain.TopicQuery{
		Category: label,
		PageSize: compilationPageSize,
	})
	if err != nil {
		return fmt.Errorf("query category topics: %w", err)
	}

	included := compilable(topics)
	if len(included) == 0 {
		logger.Info("no uncompiled topics for category")
		return nil
	}

	header := categoryHeader + label
	name := sanitizeFileName(categoryFilePrefix + strings.ReplaceAll(label, " ", "_") + docxExtension)
	link, err := e.publish(ctx, header, compilationBody(header, included), e.settings.CategoryFolder, name)
	if err != nil {
		return fmt.Errorf("publish category compilation: %w", err)
	}

	_, err = e.store.CreateSummary(ctx, e.settings.CategoryDB, domain.Summary{
		Kind:     domain.SummaryCategory,
		Title:    "Compilation - " + label,
		Category: label,
		Date:     e.today(),
		Count:    len(included),
		Link:     link,
		Status:   summaryComplete,
	})
	if err != nil {
		return fmt.Errorf("create category summary: %w", err)
	}

	e.markCompiled(ctx, included, logger)

	logger.Info("category compilation complete", "count", len(included), "link", link)
	return nil
}

// DailyTitle formats the daily compilation title, e.g. "📅 Established Daily Document — January 2, 2006".
func DailyTitle(day time.Time) string {
	return dailyTitlePrefix + day.Format("January 2, 2006")
}

func (e *Engine) publish(ctx context.Context, title, body string, folder Folder, name string) (string, error) {
	raw, err := document.RenderDocx(title, document.Parse(body), e.now().In(e.settings.Location))
	if err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}

	folderID, err := e.storage.ResolveFolder(ctx, folder.ID, folder.Name)
	if err != nil {
		return "", fmt.Errorf("resolve folder: %w", err)
	}

	link, err := e.storage.Upload(ctx, domain.Artifact{
		FolderID:    folderID,
		Name:        name,
		ContentType: docxContentType,
		Content:     raw,
	})
	if err != nil {
		return "", fmt.Errorf("upload artifact: %w", err)
	}
	return link, nil
}

func (e *Engine) markCompiled(ctx context.Context, topics []domain.Topic, logger *slog.Logger) {
	for _, topic := range topics {
		if err := e.store.MarkCompiled(ctx, topic.ID); err != nil {
			logger.Warn("mark topic compiled", "topic_id", topic.ID, "error", err)
		}
	}
}

func compilable(topics []domain.Topic) []domain.Topic {
	out := make([]domain.Topic, 0, len(topics))
	for _, topic := range topics {
		if topic.Compilable() {
			out = append(out, topic)
		}
	}
	return out
}

func compilationBody(header string, topics []domain.Topic) string {
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n\n")
	for _, topic := range topics {
		fmt.Fprintf(&sb, "## %s\n[View Document](%s)\n\n", strings.TrimSpace(topic.Title), topic.Link)
	}
	return sb.String()
}
