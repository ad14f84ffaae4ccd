package quizmatch

import (
	"fmt"
	"sort"

	"lessonrec/internal/core"
	"lessonrec/internal/features"
)

// Matcher ranks the quizzes linked to a topic item by feature similarity.
// The item and quiz matrices must come from the same vocabulary, so their
// rows share a coordinate space; being unit-normalized, the dot product is
// their cosine similarity.
type Matcher struct {
	items   *features.Matrix
	quizzes *features.Matrix
}

// New builds a matcher over the item and quiz feature matrices.
func New(items, quizzes *features.Matrix) *Matcher {
	return &Matcher{items: items, quizzes: quizzes}
}

// Recommend returns the top-k quizzes owned by the given topic item, ranked
// by similarity to the item's feature vector. An unknown topic or a topic
// with no linked quizzes yields an empty list, not an error. Each result
// carries the owning topic and the score as its justification.
func (m *Matcher) Recommend(topicID string, k int) []core.Recommendation {
	if k <= 0 || m.items == nil || m.quizzes == nil {
		return []core.Recommendation{}
	}
	itemRow, ok := m.items.RowIndex(topicID)
	if !ok {
		return []core.Recommendation{}
	}
	itemVec := m.items.Rows[itemRow]

	type scored struct {
		row   int
		score float64
	}
	var cands []scored
	for row, owner := range m.quizzes.OwnerIDs {
		if owner != topicID {
			continue
		}
		cands = append(cands, scored{row: row, score: features.Dot(m.quizzes.Rows[row], itemVec)})
	}
	if len(cands) == 0 {
		return []core.Recommendation{}
	}

	// Ties keep quiz ingestion order.
	sort.SliceStable(cands, func(a, b int) bool { return cands[a].score > cands[b].score })
	if k > len(cands) {
		k = len(cands)
	}

	recs := make([]core.Recommendation, 0, k)
	for _, c := range cands[:k] {
		recs = append(recs, core.Recommendation{
			ID:    m.quizzes.RowToID[c.row],
			Kind:  core.RecQuiz,
			Score: c.score,
			Reasons: []string{
				fmt.Sprintf("similar_to:%s", topicID),
				fmt.Sprintf("score:%.3f", c.score),
			},
		})
	}
	return recs
}
