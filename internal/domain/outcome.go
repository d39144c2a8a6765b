package domain

import "time"

// OutcomeStatus is the ledger verdict for one processed topic.
type OutcomeStatus string

const (
	OutcomeSucceeded    OutcomeStatus = "succeeded"
	OutcomeFailed       OutcomeStatus = "failed"
	OutcomeCommitFailed OutcomeStatus = "commit_failed"
	OutcomeResolved     OutcomeStatus = "resolved"
)

// Outcome is one ledger entry. Link and Category are kept for commit_failed
// outcomes so the commit can be replayed.
type Outcome struct {
	ID          string
	RunID       string
	TopicID     string
	Title       string
	Category    string
	Link        string
	ProcessedOn time.Time
	Status      OutcomeStatus
	Error       string
	Cost        float64
	RecordedAt  time.Time
}
