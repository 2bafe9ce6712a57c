// Package feed maintains live, read-only mirrors of the event collection.
// A mirror owns one standing subscription, rebuilds its list wholesale on
// every snapshot, and is never written back to the store.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"eventboard/models"
)

// Classifier probes attachment URLs; see utils.AttachmentClassifier.
type Classifier interface {
	Classify(ctx context.Context, url string) bool
}

// Mirror is the local, continuously refreshed copy of a scoped event set.
// It is owned by whoever started it; state is rebuilt from scratch on each
// upstream notification and kept sorted by start time descending.
type Mirror struct {
	repo       models.EventRepository
	scope      models.EventScope
	classifier Classifier
	logger     *slog.Logger

	mu     sync.RWMutex
	events []models.Event
	closed bool

	cancel context.CancelFunc
	done   chan struct{}
}

func NewMirror(repo models.EventRepository, scope models.EventScope, classifier Classifier, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{
		repo:       repo,
		scope:      scope,
		classifier: classifier,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start establishes the subscription. The mirror stays current until
// Close is called or ctx is cancelled.
func (m *Mirror) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	go m.run(ctx)
}

func (m *Mirror) run(ctx context.Context) {
	defer close(m.done)
	err := m.repo.Watch(ctx, m.scope, func(events []models.Event) {
		m.apply(ctx, events)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		// The mirror keeps serving its last state; a failed subscription
		// degrades freshness, not the view.
		m.logger.Error("event subscription ended", "error", err)
	}
}

// apply replaces the whole list with the snapshot's documents, sorted by
// start instant descending. Snapshots arriving after Close are dropped so
// no callback fires against a torn-down consumer.
func (m *Mirror) apply(ctx context.Context, events []models.Event) {
	sorted := make([]models.Event, len(events))
	copy(sorted, events)
	SortByStartDesc(sorted)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.events = sorted
	m.mu.Unlock()

	if m.classifier == nil {
		return
	}
	// Warm the classification cache so renders never wait on a probe.
	for _, e := range sorted {
		if e.ImageURL != "" {
			m.classifier.Classify(ctx, e.ImageURL)
		}
	}
}

// Events returns a copy of the current mirrored list.
func (m *Mirror) Events() []models.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Event, len(m.events))
	copy(out, m.events)
	return out
}

// Get looks up an event in the mirror. The mirror is eventually
// consistent: a recent mutation may not be visible yet.
func (m *Mirror) Get(id string) (models.Event, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.events {
		if e.ID == id {
			return e, true
		}
	}
	return models.Event{}, false
}

// Close cancels the subscription and drops any late snapshots.
func (m *Mirror) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}

// SortByStartDesc orders events by start instant descending, stable for
// equal starts.
func SortByStartDesc(events []models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].DateStart.After(events[j].DateStart)
	})
}
