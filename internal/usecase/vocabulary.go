package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"TopicScribe/internal/domain"
)

// Vocabulary is the set of category labels, matched case-insensitively.
type Vocabulary struct {
	mu     sync.RWMutex
	labels []string
	index  map[string]string
}

// NewVocabulary seeds a vocabulary. Duplicate and blank labels are dropped.
func NewVocabulary(seed []string) *Vocabulary {
	v := &Vocabulary{index: make(map[string]string, len(seed))}
	for _, label := range seed {
		v.Add(label)
	}
	return v
}

// Labels returns the labels in insertion order.
func (v *Vocabulary) Labels() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]string(nil), v.labels...)
}

// Resolve returns the vocabulary spelling of label.
func (v *Vocabulary) Resolve(label string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	canonical, ok := v.index[strings.ToLower(strings.TrimSpace(label))]
	return canonical, ok
}

// Add inserts label and reports whether it was new.
func (v *Vocabulary) Add(label string) bool {
	label = strings.TrimSpace(label)
	if label == "" {
		return false
	}
	key := strings.ToLower(label)

	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.index[key]; ok {
		return false
	}
	v.index[key] = label
	v.labels = append(v.labels, label)
	return true
}

// normalizeLabel keeps the first non-empty line of a classification reply without quotes.
func normalizeLabel(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.Trim(strings.TrimSpace(line), "\"'`")
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}

// classify assigns a category label. Failures fall back to the default label;
// unknown labels are coined into the vocabulary.
func (e *Engine) classify(ctx context.Context, title string, outcome *domain.Outcome, logger *slog.Logger) string {
	gen, err := e.generator.Classify(ctx, title, e.vocab.Labels())
	outcome.Cost += e.addCost(gen.Usage)

	label := normalizeLabel(gen.Text)
	if err != nil || label == "" {
		logger.Warn("classification failed, using default category", "default", e.settings.DefaultCategory, "error", err)
		return e.settings.DefaultCategory
	}

	if canonical, ok := e.vocab.Resolve(label); ok {
		return canonical
	}

	e.vocab.Add(label)
	logger.Info("coined category", "label", label)
	if e.ledger != nil {
		if err := e.ledger.SaveCategory(ctx, label); err != nil {
			logger.Warn("persist coined category", "label", label, "error", err)
		}
	}
	return label
}
