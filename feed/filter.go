package feed

import (
	"strings"

	"eventboard/models"
)

// Visible derives the visible subset of all for a free-text query and a
// set of selected genres. Pure and order-preserving. An empty query and
// an empty genre set each mean "no constraint".
//
// Text: case-insensitive substring match on the title.
// Genres: keep events where at least one selected genre flag is set
// (OR across selections, not AND). The two steps intersect.
func Visible(all []models.Event, query string, genres []string) []models.Event {
	filtered := all

	if query != "" {
		q := strings.ToLower(query)
		kept := make([]models.Event, 0, len(filtered))
		for _, e := range filtered {
			if strings.Contains(strings.ToLower(e.Title), q) {
				kept = append(kept, e)
			}
		}
		filtered = kept
	}

	if len(genres) > 0 {
		kept := make([]models.Event, 0, len(filtered))
		for _, e := range filtered {
			for _, g := range genres {
				if e.HasGenre(g) {
					kept = append(kept, e)
					break
				}
			}
		}
		filtered = kept
	}

	return filtered
}
