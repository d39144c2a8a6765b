package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"TopicScribe/internal/document"
	"TopicScribe/internal/domain"
	"TopicScribe/internal/ports"
)

var (
	_ ports.RecordStore     = (*fakeStore)(nil)
	_ ports.Generator       = (*fakeGenerator)(nil)
	_ ports.ArtifactStorage = (*fakeStorage)(nil)
	_ ports.Ledger          = (*fakeLedger)(nil)
	_ ports.Notifier        = (*fakeNotifier)(nil)
	_ ports.Scheduler       = (*fakeDriver)(nil)

	errBoom = errors.New("boom")
)

type topicUpdate struct {
	PageID string
	Update domain.CommitUpdate
}

type summaryCall struct {
	DatabaseID string
	Summary    domain.Summary
}

type fakeStore struct {
	mu sync.Mutex

	topics   []domain.Topic
	queryErr error
	queries  []domain.TopicQuery

	// entered is closed when QueryTopics is first called; release unblocks it.
	entered chan struct{}
	release chan struct{}

	updateErrs []error
	updates    []topicUpdate

	appendErr error
	appends   [][]document.StoreBlock

	compiled  []string
	summaries []summaryCall
	registry  []domain.RegistrySnapshot
	pageErr   error
}

func (s *fakeStore) QueryTopics(_ context.Context, query domain.TopicQuery) ([]domain.Topic, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	entered, release := s.entered, s.release
	s.entered = nil
	s.mu.Unlock()

	if entered != nil {
		close(entered)
		<-release
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return append([]domain.Topic(nil), s.topics...), nil
}

func (s *fakeStore) GetPage(_ context.Context, pageID string) (map[string]any, error) {
	if s.pageErr != nil {
		return nil, s.pageErr
	}
	return map[string]any{"id": pageID}, nil
}

func (s *fakeStore) UpdateTopic(_ context.Context, pageID string, update domain.CommitUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, topicUpdate{PageID: pageID, Update: update})
	if len(s.updateErrs) == 0 {
		return nil
	}
	err := s.updateErrs[0]
	s.updateErrs = s.updateErrs[1:]
	return err
}

func (s *fakeStore) MarkCompiled(_ context.Context, pageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compiled = append(s.compiled, pageID)
	return nil
}

func (s *fakeStore) AppendBlocks(_ context.Context, _ string, blocks []document.StoreBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appends = append(s.appends, blocks)
	return s.appendErr
}

func (s *fakeStore) CreateSummary(_ context.Context, databaseID string, summary domain.Summary) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, summaryCall{DatabaseID: databaseID, Summary: summary})
	return "summary-page", nil
}

func (s *fakeStore) UpdateRegistry(_ context.Context, _ string, snapshot domain.RegistrySnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry = append(s.registry, snapshot)
	return nil
}

type fakeGenerator struct {
	mu sync.Mutex

	content  string
	genErr   error
	genUsage domain.Usage

	label         string
	classifyErr   error
	classifyUsage domain.Usage
	classified    [][]string

	condensed      string
	condenseErr    error
	condenseLimits []int
}

func (g *fakeGenerator) Generate(_ context.Context, _ string) (domain.Generation, error) {
	if g.genErr != nil {
		return domain.Generation{Usage: g.genUsage}, g.genErr
	}
	return domain.Generation{Text: g.content, Usage: g.genUsage, StopReason: "end_turn"}, nil
}

func (g *fakeGenerator) Classify(_ context.Context, _ string, labels []string) (domain.Generation, error) {
	g.mu.Lock()
	g.classified = append(g.classified, labels)
	g.mu.Unlock()
	if g.classifyErr != nil {
		return domain.Generation{}, g.classifyErr
	}
	return domain.Generation{Text: g.label, Usage: g.classifyUsage}, nil
}

func (g *fakeGenerator) Condense(_ context.Context, _ string, maxLen int) (domain.Generation, error) {
	g.mu.Lock()
	g.condenseLimits = append(g.condenseLimits, maxLen)
	g.mu.Unlock()
	if g.condenseErr != nil {
		return domain.Generation{}, g.condenseErr
	}
	return domain.Generation{Text: g.condensed}, nil
}

type fakeStorage struct {
	mu sync.Mutex

	resolveErr error
	resolved   []Folder
	uploadErr  error
	uploads    []domain.Artifact
}

func (s *fakeStorage) ResolveFolder(_ context.Context, folderID, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolved = append(s.resolved, Folder{ID: folderID, Name: name})
	if s.resolveErr != nil {
		return "", s.resolveErr
	}
	if folderID != "" {
		return folderID, nil
	}
	return "folder-" + name, nil
}

func (s *fakeStorage) Upload(_ context.Context, artifact domain.Artifact) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	s.uploads = append(s.uploads, artifact)
	return "https://files.test/" + artifact.FolderID + "/" + artifact.Name, nil
}

type fakeLedger struct {
	mu sync.Mutex

	outcomes   []domain.Outcome
	categories []string
	pending    []domain.Outcome
	resolved   []string
}

func (l *fakeLedger) RecordOutcome(_ context.Context, outcome domain.Outcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outcomes = append(l.outcomes, outcome)
	return nil
}

func (l *fakeLedger) PendingCommits(context.Context) ([]domain.Outcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Outcome(nil), l.pending...), nil
}

func (l *fakeLedger) ResolveOutcome(_ context.Context, outcomeID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resolved = append(l.resolved, outcomeID)
	return nil
}

func (l *fakeLedger) SaveCategory(_ context.Context, label string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.categories = append(l.categories, label)
	return nil
}

func (l *fakeLedger) Categories(context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.categories...), nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Alert(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

type fakeDriver struct {
	jobs    map[string]func(time.Time)
	specs   map[string]string
	started bool
	stopped bool
}

func (d *fakeDriver) Register(name, spec string, job func(time.Time)) error {
	if d.jobs == nil {
		d.jobs = map[string]func(time.Time){}
		d.specs = map[string]string{}
	}
	d.jobs[name] = job
	d.specs[name] = spec
	return nil
}

func (d *fakeDriver) Start(context.Context) error {
	d.started = true
	return nil
}

func (d *fakeDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

type sleepRecorder struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (r *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.calls = append(r.calls, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) count(d time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == d {
			n++
		}
	}
	return n
}
