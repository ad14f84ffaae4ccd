package collab

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"lessonrec/internal/core"
)

// ErrDimensionMismatch reports stored factor matrices whose shapes disagree
// with each other or with the identifier maps. This is fatal at load time;
// scoring against mismatched factors would silently produce garbage.
var ErrDimensionMismatch = errors.New("factor matrix dimension mismatch")

// Model holds trained user and item latent factors plus the popularity
// table used for unseen users. It is immutable after load; recommend calls
// are pure read-only scoring passes.
type Model struct {
	U [][]float64 `json:"u"` // User factors: one row per user
	V [][]float64 `json:"v"` // Item factors: one row per item

	UserIDs []string `json:"user_ids"` // Row order of U
	ItemIDs []string `json:"item_ids"` // Row order of V, catalog order

	// Popularity maps item identifier → normalized score in [0,1]; used
	// only when a user is absent from the user map.
	Popularity map[string]float64 `json:"popularity"`

	userIdx map[string]int
}

// Validate checks the invariants between factors and identifier maps:
// matching row counts on both axes and a single factor width. A violation
// is fatal at load time.
func (m *Model) Validate() error {
	if len(m.U) != len(m.UserIDs) {
		return fmt.Errorf("%w: %d user factor rows for %d users", ErrDimensionMismatch, len(m.U), len(m.UserIDs))
	}
	if len(m.V) != len(m.ItemIDs) {
		return fmt.Errorf("%w: %d item factor rows for %d items", ErrDimensionMismatch, len(m.V), len(m.ItemIDs))
	}
	width := -1
	for _, rows := range [2][][]float64{m.U, m.V} {
		for _, row := range rows {
			if width == -1 {
				width = len(row)
			} else if len(row) != width {
				return fmt.Errorf("%w: factor widths %d and %d", ErrDimensionMismatch, width, len(row))
			}
		}
	}
	return nil
}

// RepairOrientation detects factor matrices stored with the user and item
// axes swapped (row counts matching the opposite identifier map) and swaps
// them back. The repair is skipped, with a warning, when user and item
// counts are equal: the row-count heuristic cannot tell the axes apart for
// square-ish shapes. Returns true when a swap was applied.
func (m *Model) RepairOrientation(log *slog.Logger) bool {
	nUsers, nItems := len(m.UserIDs), len(m.ItemIDs)
	if len(m.U) == nUsers && len(m.V) == nItems {
		return false
	}
	if nUsers == nItems {
		log.Warn("factor orientation check skipped: user and item counts are equal",
			"users", nUsers, "items", nItems)
		return false
	}
	if len(m.U) == nItems && len(m.V) == nUsers {
		m.U, m.V = m.V, m.U
		log.Warn("factor matrices were stored swapped; repaired at load",
			"users", nUsers, "items", nItems)
		return true
	}
	return false
}

func (m *Model) buildIndex() {
	m.userIdx = make(map[string]int, len(m.UserIDs))
	for i, id := range m.UserIDs {
		m.userIdx[id] = i
	}
}

// UserIndex returns the factor row for a user identifier.
func (m *Model) UserIndex(userID string) (int, bool) {
	if m.userIdx == nil {
		m.buildIndex()
	}
	i, ok := m.userIdx[userID]
	return i, ok
}

// Recommend scores every catalog item for the user as the dot product of
// factor rows and returns the top k, descending. Unknown users fall back to
// popularity ranking, then to catalog order; those results are tagged as
// cold-start. When fewer than k items exist, all of them are returned.
func (m *Model) Recommend(userID string, k int) []core.Recommendation {
	if k <= 0 {
		return nil
	}
	uidx, ok := m.UserIndex(userID)
	if !ok || uidx >= len(m.U) {
		return m.coldStart(k)
	}

	u := m.U[uidx]
	scores := make([]float64, len(m.V))
	for i, v := range m.V {
		var dot float64
		for f := range u {
			dot += u[f] * v[f]
		}
		scores[i] = dot
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	// Ties keep catalog order.
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	if k > len(order) {
		k = len(order)
	}
	recs := make([]core.Recommendation, 0, k)
	for _, idx := range order[:k] {
		recs = append(recs, core.Recommendation{
			ID:    m.ItemIDs[idx],
			Kind:  core.RecCollaborative,
			Score: scores[idx],
		})
	}
	return recs
}

// coldStart ranks by popularity, breaking ties by identifier so the order
// is stable, and falls back to catalog order when no popularity data
// exists.
func (m *Model) coldStart(k int) []core.Recommendation {
	var picks []string
	if len(m.Popularity) > 0 {
		ranked := make([]string, 0, len(m.Popularity))
		for id := range m.Popularity {
			ranked = append(ranked, id)
		}
		sort.Slice(ranked, func(a, b int) bool {
			if m.Popularity[ranked[a]] != m.Popularity[ranked[b]] {
				return m.Popularity[ranked[a]] > m.Popularity[ranked[b]]
			}
			return ranked[a] < ranked[b]
		})
		picks = ranked
	} else {
		picks = m.ItemIDs
	}
	if k > len(picks) {
		k = len(picks)
	}
	recs := make([]core.Recommendation, 0, k)
	for _, id := range picks[:k] {
		recs = append(recs, core.Recommendation{
			ID:        id,
			Kind:      core.RecCollaborative,
			Score:     m.Popularity[id],
			Reasons:   []string{"cold-start"},
			ColdStart: true,
		})
	}
	return recs
}
