package ports

import (
	"context"
	"time"

	"TopicScribe/internal/document"
	"TopicScribe/internal/domain"
)

// RecordStore reads and updates topic records and compilation summaries.
type RecordStore interface {
	QueryTopics(ctx context.Context, query domain.TopicQuery) ([]domain.Topic, error)
	GetPage(ctx context.Context, pageID string) (map[string]any, error)
	UpdateTopic(ctx context.Context, pageID string, update domain.CommitUpdate) error
	MarkCompiled(ctx context.Context, pageID string) error
	AppendBlocks(ctx context.Context, pageID string, blocks []document.StoreBlock) error
	CreateSummary(ctx context.Context, databaseID string, summary domain.Summary) (string, error)
	UpdateRegistry(ctx context.Context, pageID string, snapshot domain.RegistrySnapshot) error
}

// Generator produces long-form content, category labels and condensed titles.
type Generator interface {
	Generate(ctx context.Context, topic string) (domain.Generation, error)
	Classify(ctx context.Context, topic string, labels []string) (domain.Generation, error)
	Condense(ctx context.Context, title string, maxLen int) (domain.Generation, error)
}

// ArtifactStorage stores rendered documents and returns shareable links.
type ArtifactStorage interface {
	ResolveFolder(ctx context.Context, folderID, name string) (string, error)
	Upload(ctx context.Context, artifact domain.Artifact) (string, error)
}

// Ledger keeps an audit trail of entry outcomes and coined category labels.
type Ledger interface {
	RecordOutcome(ctx context.Context, outcome domain.Outcome) error
	PendingCommits(ctx context.Context) ([]domain.Outcome, error)
	ResolveOutcome(ctx context.Context, outcomeID string) error
	SaveCategory(ctx context.Context, label string) error
	Categories(ctx context.Context) ([]string, error)
}

// Notifier pushes operator alerts to Telegram or other channels.
type Notifier interface {
	Alert(ctx context.Context, message string) error
}

// Scheduler controls when jobs execute.
type Scheduler interface {
	Register(name, spec string, job func(time.Time)) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
