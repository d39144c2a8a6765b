package usecase

import (
	"context"
	"fmt"

	"TopicScribe/internal/domain"
)

// ReconcileResult summarizes a reconciliation pass.
type ReconcileResult struct {
	Pending  int
	Resolved int
}

// Reconcile replays commits of topics whose artifact was stored but whose record update failed.
func (e *Engine) Reconcile(ctx context.Context) (ReconcileResult, error) {
	if e.ledger == nil {
		return ReconcileResult{}, ErrNoLedger
	}

	e.runMu.Lock()
	defer e.runMu.Unlock()

	logger := e.logger.With("job", "reconcile")

	pending, err := e.ledger.PendingCommits(ctx)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("load pending commits: %w", err)
	}

	result := ReconcileResult{Pending: len(pending)}
	for _, outcome := range pending {
		update, err := domain.NewCommitUpdate(outcome.Link, outcome.Category, outcome.ProcessedOn, e.settings.QuotaSource)
		if err != nil {
			logger.Warn("pending commit has no link", "outcome_id", outcome.ID, "topic_id", outcome.TopicID)
			continue
		}

		if err := e.store.UpdateTopic(ctx, outcome.TopicID, update); err != nil {
			logger.Error("replay commit", "topic_id", outcome.TopicID, "link", outcome.Link, "error", err)
			continue
		}

		if err := e.ledger.ResolveOutcome(ctx, outcome.ID); err != nil {
			logger.Warn("resolve outcome", "outcome_id", outcome.ID, "error", err)
		}
		result.Resolved++
		logger.Info("commit replayed", "topic_id", outcome.TopicID, "link", outcome.Link)
	}

	return result, nil
}
