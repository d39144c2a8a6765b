package usecase

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"TopicScribe/internal/domain"
)

const docxExtension = ".docx"

var pathSeparators = strings.NewReplacer("/", "_", "\\", "_")

// artifactName builds prefix + title + ".docx", condensing titles that exceed the length budget.
func (e *Engine) artifactName(ctx context.Context, title string, outcome *domain.Outcome, logger *slog.Logger) string {
	prefix := e.settings.TitlePrefix
	limit := titleBudget(e.settings.MaxTitleLength, prefix)

	display := title
	if utf8.RuneCountInString(title) > limit {
		display = e.condenseTitle(ctx, title, limit, outcome, logger)
	}

	return sanitizeFileName(prefix + display + docxExtension)
}

func (e *Engine) condenseTitle(ctx context.Context, title string, limit int, outcome *domain.Outcome, logger *slog.Logger) string {
	gen, err := e.generator.Condense(ctx, title, limit)
	outcome.Cost += e.addCost(gen.Usage)

	condensed := normalizeLabel(gen.Text)
	if err != nil || condensed == "" {
		logger.Warn("title condensation failed, truncating", "limit", limit, "error", err)
		return truncateRunes(title, limit)
	}
	if utf8.RuneCountInString(condensed) > limit {
		logger.Warn("condensed title still too long, truncating", "limit", limit)
		return truncateRunes(condensed, limit)
	}
	return condensed
}

// titleBudget is the number of characters left for the title.
func titleBudget(maxLength int, prefix string) int {
	return max(1, maxLength-utf8.RuneCountInString(prefix)-len(docxExtension))
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit]))
}

func sanitizeFileName(name string) string {
	return pathSeparators.Replace(name)
}
