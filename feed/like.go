package feed

// ToggleLike flips userID's membership in the event's liked-by set.
// Unauthenticated callers (empty userID) and unknown event ids are silent
// no-ops. The decision reads the possibly stale mirror, but the store's
// membership mutations are commutative and idempotent, so interleaved
// toggles still converge; the last writer's intent wins.
func (m *Mirror) ToggleLike(eventID, userID string) error {
	if userID == "" {
		return nil
	}
	e, ok := m.Get(eventID)
	if !ok {
		return nil
	}
	if e.LikedBy(userID) {
		return m.repo.RemoveLike(eventID, userID)
	}
	return m.repo.AddLike(eventID, userID)
}
