package storage

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// Upload lifecycle: idle -> uploading -> completed | failed.
type State string

const (
	StateIdle      State = "idle"
	StateUploading State = "uploading"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Status is a point-in-time view of an upload.
type Status struct {
	State    State   `json:"state"`
	Progress float64 `json:"progress"`
	URL      string  `json:"url,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// Tracker drives one attachment upload through its lifecycle. Uploads are
// not cancellable; instead Close marks the owner gone, and any callback
// arriving after that is dropped rather than applied to dead state.
type Tracker struct {
	store  BlobStore
	logger *slog.Logger

	mu     sync.Mutex
	status Status
	closed bool
}

func NewTracker(store BlobStore, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		store:  store,
		logger: logger,
		status: Status{State: StateIdle},
	}
}

// Upload streams r to the blob store under PathPrefix+name. On success
// the tracker completes with the durable URL; on failure it enters
// failed and the caller must not proceed with the record save.
func (t *Tracker) Upload(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	t.set(Status{State: StateUploading})

	url, err := t.store.Upload(ctx, name, r, size, t.progress)
	if err != nil {
		t.logger.Error("upload failed", "name", name, "error", err)
		t.set(Status{State: StateFailed, Error: err.Error()})
		return "", err
	}

	t.set(Status{State: StateCompleted, Progress: 100, URL: url})
	return url, nil
}

func (t *Tracker) progress(pct float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.status.State != StateUploading {
		return
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	t.status.Progress = pct
}

func (t *Tracker) set(s Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.status = s
}

// Status returns the current lifecycle snapshot.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Close freezes the tracker. An in-flight upload still runs to its
// terminal state at the store, but its callbacks no longer apply here.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}
