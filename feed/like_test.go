package feed

import (
	"testing"

	"eventboard/models"
)

func TestToggleLike_AddsWhenAbsent(t *testing.T) {
	repo := newFakeRepo(models.Event{ID: "e1", DateStart: ts("2024-06-01T10:00")})
	m := startMirror(t, repo, models.EventScope{}, nil)
	waitFor(t, "initial snapshot", func() bool { return len(m.Events()) == 1 })

	if err := m.ToggleLike("e1", "alice"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if repo.addCalls != 1 || repo.removeCalls != 0 {
		t.Fatalf("want add mutation, got add=%d remove=%d", repo.addCalls, repo.removeCalls)
	}
}

func TestToggleLike_RemovesWhenPresent(t *testing.T) {
	repo := newFakeRepo(models.Event{ID: "e1", Likes: []string{"alice"}, DateStart: ts("2024-06-01T10:00")})
	m := startMirror(t, repo, models.EventScope{}, nil)
	waitFor(t, "initial snapshot", func() bool { return len(m.Events()) == 1 })

	if err := m.ToggleLike("e1", "alice"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if repo.removeCalls != 1 || repo.addCalls != 0 {
		t.Fatalf("want remove mutation, got add=%d remove=%d", repo.addCalls, repo.removeCalls)
	}
}

// Unauthenticated callers and unknown events are silent no-ops.
func TestToggleLike_NoOps(t *testing.T) {
	repo := newFakeRepo(models.Event{ID: "e1", DateStart: ts("2024-06-01T10:00")})
	m := startMirror(t, repo, models.EventScope{}, nil)
	waitFor(t, "initial snapshot", func() bool { return len(m.Events()) == 1 })

	if err := m.ToggleLike("e1", ""); err != nil {
		t.Fatalf("unauthenticated toggle errored: %v", err)
	}
	if err := m.ToggleLike("ghost", "alice"); err != nil {
		t.Fatalf("unknown event toggle errored: %v", err)
	}
	if repo.addCalls != 0 || repo.removeCalls != 0 {
		t.Fatalf("no-op issued mutations: add=%d remove=%d", repo.addCalls, repo.removeCalls)
	}
}

// The store's membership ops are idempotent: add-then-add stays added,
// remove-then-remove stays removed.
func TestLikeMutations_IdempotentAtStore(t *testing.T) {
	repo := newFakeRepo(models.Event{ID: "e1"})

	_ = repo.AddLike("e1", "alice")
	_ = repo.AddLike("e1", "alice")
	e, _ := repo.GetByID("e1")
	if len(e.Likes) != 1 || e.Likes[0] != "alice" {
		t.Fatalf("double add corrupted set: %v", e.Likes)
	}

	_ = repo.RemoveLike("e1", "alice")
	_ = repo.RemoveLike("e1", "alice")
	e, _ = repo.GetByID("e1")
	if len(e.Likes) != 0 {
		t.Fatalf("double remove corrupted set: %v", e.Likes)
	}
}

// Like then unlike: the intermediate state must show the member before
// the second toggle flips it back.
func TestToggleLike_LikeThenUnlike(t *testing.T) {
	repo := newFakeRepo(models.Event{ID: "e1", DateStart: ts("2024-06-01T10:00")})
	m := startMirror(t, repo, models.EventScope{}, nil)
	waitFor(t, "initial snapshot", func() bool { return len(m.Events()) == 1 })

	if err := m.ToggleLike("e1", "alice"); err != nil {
		t.Fatalf("like: %v", err)
	}
	waitFor(t, "mirror shows the like", func() bool {
		e, ok := m.Get("e1")
		return ok && e.LikedBy("alice")
	})

	if err := m.ToggleLike("e1", "alice"); err != nil {
		t.Fatalf("unlike: %v", err)
	}
	waitFor(t, "mirror shows the unlike", func() bool {
		e, ok := m.Get("e1")
		return ok && !e.LikedBy("alice")
	})
}
