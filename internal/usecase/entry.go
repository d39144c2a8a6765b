package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"TopicScribe/internal/document"
	"TopicScribe/internal/domain"
	"TopicScribe/internal/logging"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// ProcessTopic runs the per-entry pipeline: generate, classify, render, upload, commit,
// then append the content to the topic page. It returns nil only when the topic was
// committed as processed.
func (e *Engine) ProcessTopic(ctx context.Context, topic domain.Topic) error {
	logger := e.logger.With("run_id", runIDFrom(ctx), "topic_id", topic.ID)

	outcome := domain.Outcome{
		ID:      uuid.NewString(),
		RunID:   runIDFrom(ctx),
		TopicID: topic.ID,
		Title:   topic.Title,
	}
	defer func() {
		outcome.RecordedAt = e.now()
		e.recordOutcome(ctx, outcome, logger)
	}()

	title := strings.TrimSpace(topic.Title)
	if title == "" {
		outcome.Status = domain.OutcomeFailed
		outcome.Error = ErrEmptyTitle.Error()
		return ErrEmptyTitle
	}
	logger = logger.With("title", title)
	logger.Info("processing topic")

	blocks, link, label, err := e.produceArtifact(ctx, title, &outcome, logger)
	if err != nil {
		outcome.Status = domain.OutcomeFailed
		outcome.Error = err.Error()
		return err
	}

	outcome.Link = link
	outcome.Category = label
	outcome.ProcessedOn = e.today()

	update, err := domain.NewCommitUpdate(link, label, outcome.ProcessedOn, e.settings.QuotaSource)
	if err != nil {
		outcome.Status = domain.OutcomeFailed
		outcome.Error = err.Error()
		return fmt.Errorf("build commit: %w", err)
	}

	if err := e.commit(ctx, topic.ID, update, logger); err != nil {
		outcome.Status = domain.OutcomeCommitFailed
		outcome.Error = err.Error()
		logger.Log(ctx, logging.LevelCritical, "artifact stored but commit failed, manual reconciliation needed",
			"link", link, "error", err)
		e.alert(ctx, fmt.Sprintf("CRITICAL: %q was uploaded but the record update failed. Link: %s", title, link), logger)
		return err
	}

	outcome.Status = domain.OutcomeSucceeded
	e.appendContent(ctx, topic.ID, document.RenderStoreBlocks(blocks), logger)

	logger.Info("topic processed", "category", label, "link", link, "cost", fmt.Sprintf("%.4f", outcome.Cost))
	return nil
}

// produceArtifact covers every step up to and including the upload.
func (e *Engine) produceArtifact(ctx context.Context, title string, outcome *domain.Outcome, logger *slog.Logger) ([]document.Block, string, string, error) {
	gen, err := e.generator.Generate(ctx, title)
	outcome.Cost += e.addCost(gen.Usage)
	if err != nil {
		return nil, "", "", fmt.Errorf("generate content: %w", err)
	}

	if n := utf8.RuneCountInString(strings.TrimSpace(gen.Text)); n < e.settings.MinContentChars {
		return nil, "", "", fmt.Errorf("%w: %d characters", ErrContentTooShort, n)
	}
	blocks := document.Parse(strings.TrimSpace(document.Normalize(gen.Text)))

	label := e.classify(ctx, title, outcome, logger)

	raw, err := document.RenderDocx(e.settings.TitlePrefix+title, blocks, e.now().In(e.settings.Location))
	if err != nil {
		return nil, "", "", fmt.Errorf("render document: %w", err)
	}

	folderID, err := e.storage.ResolveFolder(ctx, e.settings.TopicsFolder.ID, e.settings.TopicsFolder.Name)
	if err != nil {
		return nil, "", "", fmt.Errorf("resolve folder: %w", err)
	}

	name := e.artifactName(ctx, title, outcome, logger)

	link, err := e.storage.Upload(ctx, domain.Artifact{
		FolderID:    folderID,
		Name:        name,
		ContentType: docxContentType,
		Content:     raw,
	})
	if err != nil {
		return nil, "", "", fmt.Errorf("upload artifact: %w", err)
	}
	if strings.TrimSpace(link) == "" {
		return nil, "", "", errors.New("upload artifact: storage returned no link")
	}

	return blocks, link, label, nil
}

// commit writes the processed state in a single update, retrying once after the configured delay.
func (e *Engine) commit(ctx context.Context, pageID string, update domain.CommitUpdate, logger *slog.Logger) error {
	err := e.store.UpdateTopic(ctx, pageID, update)
	if err == nil {
		return nil
	}

	logger.Error("commit failed after upload, retrying", "link", update.Link(), "error", err)
	if sleepErr := e.sleep(ctx, e.settings.CommitRetryDelay); sleepErr != nil {
		return fmt.Errorf("commit topic: %w", errors.Join(err, sleepErr))
	}

	if err := e.store.UpdateTopic(ctx, pageID, update); err != nil {
		return fmt.Errorf("commit topic after retry: %w", err)
	}
	return nil
}

// appendContent mirrors the document onto the topic page in chunks. Failures are logged only.
func (e *Engine) appendContent(ctx context.Context, pageID string, blocks []document.StoreBlock, logger *slog.Logger) {
	size := e.settings.ChunkSize
	for start := 0; start < len(blocks); start += size {
		if start > 0 {
			if err := e.sleep(ctx, e.settings.ChunkDelay); err != nil {
				logger.Warn("content append interrupted", "error", err)
				return
			}
		}

		end := min(start+size, len(blocks))
		if err := e.store.AppendBlocks(ctx, pageID, blocks[start:end]); err != nil {
			logger.Warn("append content blocks", "offset", start, "count", end-start, "error", err)
		}
	}
}

func (e *Engine) recordOutcome(ctx context.Context, outcome domain.Outcome, logger *slog.Logger) {
	if e.ledger == nil {
		return
	}
	if err := e.ledger.RecordOutcome(ctx, outcome); err != nil {
		logger.Warn("record outcome", "status", outcome.Status, "error", err)
	}
}

func (e *Engine) alert(ctx context.Context, message string, logger *slog.Logger) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Alert(ctx, message); err != nil {
		logger.Warn("send alert", "error", err)
	}
}
