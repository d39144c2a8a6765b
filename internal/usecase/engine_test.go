package usecase

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TopicScribe/internal/domain"
)

const (
	testPrefix     = "🧠 Established Truth, Principles of "
	chunkDelay     = 500 * time.Millisecond
	commitRetry    = 2 * time.Second
	registryPageID = "registry-page"
)

var testNow = time.Date(2025, time.March, 4, 10, 30, 0, 0, time.UTC)

type harness struct {
	store    *fakeStore
	gen      *fakeGenerator
	storage  *fakeStorage
	ledger   *fakeLedger
	notifier *fakeNotifier
	sleeper  *sleepRecorder
	engine   *Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		store:    &fakeStore{},
		gen:      &fakeGenerator{content: longContent(600), label: "Divination", genUsage: domain.Usage{InputTokens: 1000, OutputTokens: 8000}},
		storage:  &fakeStorage{},
		ledger:   &fakeLedger{},
		notifier: &fakeNotifier{},
		sleeper:  &sleepRecorder{},
	}
	h.engine = NewEngine(EngineDeps{
		Store:     h.store,
		Generator: h.gen,
		Storage:   h.storage,
		Ledger:    h.ledger,
		Notifier:  h.notifier,
		Now:       func() time.Time { return testNow },
		Sleep:     h.sleeper.Sleep,
	}, Settings{
		DailyDB:          "daily-db",
		CategoryDB:       "category-db",
		RegistryPage:     registryPageID,
		TopicsFolder:     Folder{Name: "topics"},
		DailyFolder:      Folder{ID: "daily-folder"},
		CategoryFolder:   Folder{Name: "categories"},
		BatchSize:        5,
		MaxTitleLength:   150,
		MinContentChars:  500,
		ChunkSize:        95,
		ChunkDelay:       chunkDelay,
		CommitRetryDelay: commitRetry,
		TitlePrefix:      testPrefix,
		QuotaSource:      "ops@example.com",
		OperationName:    "Topic Automation",
		RunFrequency:     "Every 5 minutes",
		Model:            "claude-sonnet-4-6",
		InputCostPerM:    3.00,
		OutputCostPerM:   15.00,
		SeedCategories:   []string{"Divination", "Esotericism", "Depth Psychology"},
		DefaultCategory:  "Esotericism",
	})
	return h
}

func longContent(n int) string {
	return "# Overview\n\n" + strings.Repeat("x", n)
}

func TestRunCycleWithNothingToDoIsIdempotent(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	for i := 0; i < 2; i++ {
		require.NoError(t, h.engine.RunCycle(context.Background()))
	}

	report := h.engine.Health()
	assert.Equal(t, domain.StatusIdle, report.OperationStatus)
	assert.Equal(t, 100, report.HealthScore)
	assert.Equal(t, 0, report.TotalProcessed)
	require.NotNil(t, report.LastRun)
	assert.Empty(t, h.store.updates)
	assert.Empty(t, h.store.registry)
	assert.Empty(t, h.storage.uploads)
	assert.Empty(t, h.ledger.outcomes)

	require.Len(t, h.store.queries, 2)
	q := h.store.queries[0]
	assert.True(t, q.Unprocessed)
	assert.Equal(t, 5, q.PageSize)
	assert.Equal(t, 5, q.MaxResults)
}

func TestRunCycleDivinationEndToEnd(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.store.topics = []domain.Topic{{ID: "page-1", Title: "Divination"}}

	require.NoError(t, h.engine.RunCycle(context.Background()))

	require.Len(t, h.storage.uploads, 1)
	upload := h.storage.uploads[0]
	assert.Equal(t, testPrefix+"Divination.docx", upload.Name)
	assert.Equal(t, "folder-topics", upload.FolderID)
	assert.Equal(t, docxContentType, upload.ContentType)
	assert.NotEmpty(t, upload.Content)

	require.Len(t, h.store.updates, 1)
	update := h.store.updates[0]
	assert.Equal(t, "page-1", update.PageID)
	assert.Equal(t, "https://files.test/folder-topics/"+testPrefix+"Divination.docx", update.Update.Link())
	assert.Equal(t, "Divination", update.Update.Category())
	assert.Equal(t, time.Date(2025, time.March, 4, 0, 0, 0, 0, time.UTC), update.Update.ProcessedOn())
	assert.Equal(t, "ops@example.com", update.Update.QuotaSource())

	require.Len(t, h.store.appends, 1)
	assert.Equal(t, "heading_1", h.store.appends[0][0].Type)

	report := h.engine.Health()
	assert.Equal(t, 1, report.TotalProcessed)
	assert.Equal(t, 100, report.HealthScore)
	assert.Equal(t, domain.HealthHealthy, report.Status)
	assert.Equal(t, domain.StatusIdle, report.OperationStatus)
	assert.InDelta(t, 0.12, report.AccumulatedCost, 1e-9)

	require.Len(t, h.store.registry, 1)
	snap := h.store.registry[0]
	assert.Equal(t, "Active", snap.Status)
	assert.Equal(t, 1, snap.TotalProcessed)
	assert.Equal(t, testNow, snap.LastRun)
	assert.Equal(t, "claude-sonnet-4-6", snap.Model)

	require.Len(t, h.ledger.outcomes, 1)
	assert.Equal(t, domain.OutcomeSucceeded, h.ledger.outcomes[0].Status)
	assert.NotEmpty(t, h.ledger.outcomes[0].RunID)
}

func TestContentLengthBoundary(t *testing.T) {
	t.Parallel()

	cases := []struct {
		length int
		ok     bool
	}{
		{499, false},
		{500, true},
	}

	for _, tc := range cases {
		h := newHarness(t)
		h.gen.content = strings.Repeat("é", tc.length)

		err := h.engine.ProcessTopic(context.Background(), domain.Topic{ID: "p", Title: "Tarot"})
		if tc.ok {
			require.NoError(t, err, "length %d", tc.length)
			assert.Len(t, h.storage.uploads, 1)
			continue
		}
		require.ErrorIs(t, err, ErrContentTooShort, "length %d", tc.length)
		assert.Empty(t, h.storage.uploads)
		assert.Empty(t, h.store.updates)
		assert.InDelta(t, 0.12, h.engine.Health().AccumulatedCost, 1e-9)
	}
}

func TestContentLengthCountsRawMarkup(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.gen.content = "<div><p>" + strings.Repeat("<b>y</b>", 80) + "</p></div>"
	require.Len(t, h.gen.content, 658)

	require.NoError(t, h.engine.ProcessTopic(context.Background(), domain.Topic{ID: "p", Title: "Tarot"}))
	assert.Len(t, h.storage.uploads, 1)
	assert.Len(t, h.store.updates, 1)
}

func TestArtifactHeadingCarriesTitlePrefix(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	require.NoError(t, h.engine.ProcessTopic(context.Background(), domain.Topic{ID: "p", Title: "Tarot"}))
	require.Len(t, h.storage.uploads, 1)

	raw := h.storage.uploads[0].Content
	archive, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)

	var body []byte
	for _, f := range archive.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		body, err = io.ReadAll(rc)
		require.NoError(t, rc.Close())
		require.NoError(t, err)
	}
	require.NotEmpty(t, body)
	assert.Contains(t, string(body), testPrefix+"Tarot")
}

func TestAppendContentInChunks(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	lines := make([]string, 200)
	for i := range lines {
		lines[i] = "- list entry describing an aspect of the topic"
	}
	h.gen.content = strings.Join(lines, "\n")

	require.NoError(t, h.engine.ProcessTopic(context.Background(), domain.Topic{ID: "p", Title: "Tarot"}))

	require.Len(t, h.store.appends, 3)
	assert.Len(t, h.store.appends[0], 95)
	assert.Len(t, h.store.appends[1], 95)
	assert.Len(t, h.store.appends[2], 10)
	assert.Equal(t, 2, h.sleeper.count(chunkDelay))
	assert.Equal(t, 0, h.sleeper.count(commitRetry))
}

func TestAppendFailureDoesNotFailEntry(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.store.appendErr = errBoom

	require.NoError(t, h.engine.ProcessTopic(context.Background(), domain.Topic{ID: "p", Title: "Tarot"}))
	assert.Len(t, h.store.updates, 1)
}

func TestUploadFailureCommitsNothing(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.storage.uploadErr = errBoom
	h.store.topics = []domain.Topic{{ID: "page-1", Title: "Divination"}}

	require.NoError(t, h.engine.RunCycle(context.Background()))

	assert.Empty(t, h.store.updates)
	assert.Empty(t, h.store.appends)
	report := h.engine.Health()
	assert.Equal(t, 90, report.HealthScore)
	assert.Equal(t, 0, report.TotalProcessed)
	assert.Equal(t, domain.StatusIdle, report.OperationStatus)

	require.Len(t, h.ledger.outcomes, 1)
	assert.Equal(t, domain.OutcomeFailed, h.ledger.outcomes[0].Status)
	assert.Contains(t, h.ledger.outcomes[0].Error, "upload artifact")
	assert.Empty(t, h.notifier.messages)
}

func TestFolderResolutionFailureAborts(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.storage.resolveErr = errBoom

	err := h.engine.ProcessTopic(context.Background(), domain.Topic{ID: "p", Title: "Tarot"})
	require.ErrorIs(t, err, errBoom)
	assert.Empty(t, h.storage.uploads)
	assert.Empty(t, h.store.updates)
}

func TestCommitRetrySucceeds(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.store.updateErrs = []error{errBoom, nil}

	require.NoError(t, h.engine.ProcessTopic(context.Background(), domain.Topic{ID: "p", Title: "Tarot"}))

	require.Len(t, h.store.updates, 2)
	assert.Equal(t, h.store.updates[0].Update, h.store.updates[1].Update)
	assert.Equal(t, 1, h.sleeper.count(commitRetry))
	assert.Len(t, h.store.appends, 1)
	assert.Empty(t, h.notifier.messages)
}

func TestCommitFailureIsCritical(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.store.updateErrs = []error{errBoom, errBoom}
	h.store.topics = []domain.Topic{{ID: "page-1", Title: "Divination"}}

	require.NoError(t, h.engine.RunCycle(context.Background()))

	require.Len(t, h.store.updates, 2)
	for _, u := range h.store.updates {
		assert.True(t, u.Update.Valid())
		assert.NotEmpty(t, u.Update.Link())
	}
	assert.Empty(t, h.store.appends)

	report := h.engine.Health()
	assert.Equal(t, 90, report.HealthScore)
	assert.Equal(t, 0, report.TotalProcessed)

	require.Len(t, h.ledger.outcomes, 1)
	outcome := h.ledger.outcomes[0]
	assert.Equal(t, domain.OutcomeCommitFailed, outcome.Status)
	assert.Equal(t, h.store.updates[0].Update.Link(), outcome.Link)
	assert.Equal(t, "Divination", outcome.Category)

	require.Len(t, h.notifier.messages, 1)
	assert.Contains(t, h.notifier.messages[0], outcome.Link)
}

func TestProcessedNeverWrittenWithoutLink(t *testing.T) {
	t.Parallel()

	failures := []func(h *harness){
		func(h *harness) { h.gen.genErr = errBoom },
		func(h *harness) { h.gen.content = "too short" },
		func(h *harness) { h.storage.resolveErr = errBoom },
		func(h *harness) { h.storage.uploadErr = errBoom },
		func(h *harness) { h.store.updateErrs = []error{errBoom, errBoom} },
	}

	for i, fail := range failures {
		h := newHarness(t)
		fail(h)
		h.store.topics = []domain.Topic{{ID: "page", Title: "Tarot"}}

		require.NoError(t, h.engine.RunCycle(context.Background()), "case %d", i)
		for _, u := range h.store.updates {
			assert.NotEmpty(t, u.Update.Link(), "case %d", i)
		}
		assert.Equal(t, 90, h.engine.Health().HealthScore, "case %d", i)
	}
}

func TestTopLevelFailure(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.store.queryErr = errBoom

	err := h.engine.RunCycle(context.Background())
	require.ErrorIs(t, err, errBoom)

	report := h.engine.Health()
	assert.Equal(t, domain.StatusError, report.OperationStatus)
	assert.Equal(t, 80, report.HealthScore)
	assert.Empty(t, h.store.registry)

	h.store.queryErr = nil
	require.NoError(t, h.engine.RunCycle(context.Background()))
	assert.Equal(t, domain.StatusIdle, h.engine.Health().OperationStatus)
	assert.Equal(t, 80, h.engine.Health().HealthScore)
}

func TestHealthScoreFloorsAtZeroAndDegrades(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.store.queryErr = errBoom

	for i := 0; i < 3; i++ {
		_ = h.engine.RunCycle(context.Background())
	}
	report := h.engine.Health()
	assert.Equal(t, 40, report.HealthScore)
	assert.Equal(t, domain.HealthDegraded, report.Status)

	for i := 0; i < 5; i++ {
		_ = h.engine.RunCycle(context.Background())
	}
	assert.Equal(t, 0, h.engine.Health().HealthScore)
}

func TestOverlappingCycleIsRejected(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.store.entered = make(chan struct{})
	h.store.release = make(chan struct{})
	entered := h.store.entered

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		firstErr = h.engine.RunCycle(context.Background())
	}()

	<-entered
	assert.Equal(t, domain.StatusProcessing, h.engine.Health().OperationStatus)
	err := h.engine.RunCycle(context.Background())
	require.ErrorIs(t, err, ErrCycleInProgress)

	close(h.store.release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.Len(t, h.store.queries, 1)
	assert.Equal(t, domain.StatusIdle, h.engine.Health().OperationStatus)
}

func TestBatchIsCapped(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	for i := 0; i < 7; i++ {
		h.store.topics = append(h.store.topics, domain.Topic{ID: "p", Title: "Tarot"})
	}

	require.NoError(t, h.engine.RunCycle(context.Background()))
	assert.Len(t, h.storage.uploads, 5)
	assert.Equal(t, 5, h.engine.Health().TotalProcessed)
}

func TestEmptyTitleFails(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	err := h.engine.ProcessTopic(context.Background(), domain.Topic{ID: "p", Title: "   "})
	require.ErrorIs(t, err, ErrEmptyTitle)
	require.Len(t, h.ledger.outcomes, 1)
	assert.Equal(t, domain.OutcomeFailed, h.ledger.outcomes[0].Status)
}
