package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrMissingLink is returned when a commit update is built without an artifact link.
var ErrMissingLink = errors.New("artifact link is required to mark a topic processed")

// Topic is a record in the topics database.
type Topic struct {
	ID          string
	Title       string
	Processed   bool
	Link        string
	Category    string
	ProcessedOn time.Time
	Compiled    bool
}

// Compilable reports whether the topic can be listed in a compilation document.
func (t Topic) Compilable() bool {
	return strings.TrimSpace(t.Title) != "" && strings.TrimSpace(t.Link) != ""
}

// CommitUpdate is the single property update that marks a topic processed.
// It can only be built through NewCommitUpdate, which refuses an empty link.
type CommitUpdate struct {
	link        string
	category    string
	processedOn time.Time
	quotaSource string
}

// NewCommitUpdate builds the processed-state update for a stored artifact.
func NewCommitUpdate(link, category string, processedOn time.Time, quotaSource string) (CommitUpdate, error) {
	if strings.TrimSpace(link) == "" {
		return CommitUpdate{}, ErrMissingLink
	}
	return CommitUpdate{
		link:        link,
		category:    category,
		processedOn: processedOn,
		quotaSource: quotaSource,
	}, nil
}

// Link returns the artifact link.
func (u CommitUpdate) Link() string { return u.link }

// Category returns the assigned category label.
func (u CommitUpdate) Category() string { return u.category }

// ProcessedOn returns the processing date.
func (u CommitUpdate) ProcessedOn() time.Time { return u.processedOn }

// QuotaSource returns the storage account label recorded with the update.
func (u CommitUpdate) QuotaSource() string { return u.quotaSource }

// Valid reports whether the update was produced by NewCommitUpdate.
func (u CommitUpdate) Valid() bool { return u.link != "" }

// TopicQuery selects topics from the topics database.
type TopicQuery struct {
	// Unprocessed selects processed=false with a non-empty title.
	Unprocessed bool
	// ProcessedOn selects processed topics whose processing date equals the given day.
	ProcessedOn time.Time
	// Category selects processed, not yet compiled topics with the given label.
	Category   string
	PageSize   int
	MaxResults int
}

// Usage is the token usage reported by the generation service.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Cost prices the usage with per-million token rates.
func (u Usage) Cost(inputPerM, outputPerM float64) float64 {
	return float64(u.InputTokens)/1_000_000*inputPerM + float64(u.OutputTokens)/1_000_000*outputPerM
}

// Generation is a single completed generation call.
type Generation struct {
	Text       string
	Usage      Usage
	StopReason string
}

// Artifact is a rendered document ready for upload.
type Artifact struct {
	FolderID    string
	Name        string
	ContentType string
	Content     []byte
}

// SummaryKind distinguishes the two compilation databases.
type SummaryKind string

const (
	SummaryDaily    SummaryKind = "daily"
	SummaryCategory SummaryKind = "category"
)

// Summary is the record created for a compilation document.
type Summary struct {
	Kind     SummaryKind
	Title    string
	Category string
	Date     time.Time
	Count    int
	Link     string
	Status   string
}

// RegistrySnapshot is pushed to the operations registry page after each cycle.
type RegistrySnapshot struct {
	Status         string
	Model          string
	LastRun        time.Time
	Cost           float64
	TotalProcessed int
	HealthScore    int
	RunFrequency   string
}
