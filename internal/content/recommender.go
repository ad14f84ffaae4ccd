package content

import (
	"sort"
	"strings"

	"lessonrec/internal/core"
	"lessonrec/internal/vsm"
)

// ItemMeta is the scoring-relevant slice of a catalog item, kept in catalog
// order alongside the document matrix.
type ItemMeta struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Topic string   `json:"topic"`
	Tags  []string `json:"tags"`
	Level int      `json:"level"` // 0 when unspecified
}

// MetaFromItems projects catalog items onto their scoring metadata,
// preserving catalog order and dropping records without an identifier.
func MetaFromItems(items []core.CatalogItem) []ItemMeta {
	meta := make([]ItemMeta, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		meta = append(meta, ItemMeta{
			ID:    item.ID,
			Title: item.Title,
			Topic: item.Topic,
			Tags:  item.Tags,
			Level: item.Level,
		})
	}
	return meta
}

// Weights tunes the blend between the history profile and the goal query.
type Weights struct {
	Profile        float64 // Weight of the mean-of-history profile vector (default 0.8)
	Goal           float64 // Weight of the goal similarity (default 0.2)
	ColdStartScore float64 // Placeholder confidence attached to heuristic results (default 0.4)
}

// DefaultWeights returns the standard blend.
func DefaultWeights() Weights {
	return Weights{Profile: 0.8, Goal: 0.2, ColdStartScore: 0.4}
}

// Recommender scores catalog items for a user against a fitted vector-space
// model. When no model is loaded, every request degrades to the tag-overlap
// cold-start path. The recommender is immutable and safe for concurrent
// use.
type Recommender struct {
	model   *vsm.Model
	items   []ItemMeta // Catalog order; the tie-break order everywhere
	weights Weights
}

// NewRecommender builds a recommender over a model and the catalog
// metadata. model may be nil or empty.
func NewRecommender(model *vsm.Model, items []ItemMeta, weights Weights) *Recommender {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &Recommender{model: model, items: items, weights: weights}
}

// Request carries one recommend call's inputs. Goals are already resolved
// by the caller (explicit parameter or the user's persisted goals).
type Request struct {
	K        int
	MaxLevel int      // 0 means no ceiling
	Goals    []string // Stated goal tags
	Recent   []string // Recent interaction item ids, most-recent-first
	Known    map[string]bool
}

// Recommend ranks items by the weighted blend of profile and goal cosine
// similarity, excludes recently seen items, applies the level ceiling and
// the known-topic filter, and backfills any shortfall from the cold-start
// scorer. Score ties keep catalog order.
func (r *Recommender) Recommend(req Request) []core.Recommendation {
	if req.K <= 0 {
		return nil
	}
	if !r.model.Loaded() {
		return r.ColdStart(req.K, req.MaxLevel, req.Goals, req.Known, nil)
	}

	goalScores := r.goalScores(req.Goals)

	seen := make(map[string]bool, len(req.Recent))
	for _, id := range req.Recent {
		seen[id] = true
	}

	scores := goalScores
	if profile := r.profileVector(req.Recent); profile != nil {
		sims := r.model.SimilarityToAll(profile)
		blended := make([]float64, len(sims))
		for i := range sims {
			blended[i] = r.weights.Profile*sims[i] + r.weights.Goal*goalScores[i]
		}
		scores = blended
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	recs := make([]core.Recommendation, 0, req.K)
	picked := make(map[string]bool)
	for _, row := range order {
		meta := r.metaForRow(row)
		if meta == nil || seen[meta.ID] {
			continue
		}
		if exceedsLevel(meta.Level, req.MaxLevel) || intersectsKnown(*meta, req.Known) {
			continue
		}
		recs = append(recs, core.Recommendation{
			ID:    meta.ID,
			Kind:  core.RecContent,
			Score: scores[row],
			Title: meta.Title,
			Topic: meta.Topic,
			Level: meta.Level,
		})
		picked[meta.ID] = true
		if len(recs) >= req.K {
			break
		}
	}

	if len(recs) < req.K {
		exclude := picked
		for id := range seen {
			exclude[id] = true
		}
		recs = append(recs, r.ColdStart(req.K-len(recs), req.MaxLevel, req.Goals, req.Known, exclude)...)
	}
	return recs
}

// goalScores computes cosine similarity between the goal query and every
// document row. No goals or no model yields a zero vector sized to the
// catalog.
func (r *Recommender) goalScores(goals []string) []float64 {
	if len(goals) == 0 {
		return make([]float64, len(r.items))
	}
	query := r.model.TransformQuery(strings.Join(goals, " "))
	return r.model.SimilarityToAll(query)
}

// profileVector averages the document rows of the user's recent items,
// intersected with known identifiers. Nil when there is no usable history.
func (r *Recommender) profileVector(recent []string) []float64 {
	var rows []int
	for _, id := range recent {
		if row, ok := r.model.RowIndex(id); ok {
			rows = append(rows, row)
		}
	}
	return r.model.MeanRow(rows)
}

func (r *Recommender) metaForRow(row int) *ItemMeta {
	if row < 0 || row >= len(r.items) {
		return nil
	}
	return &r.items[row]
}

// ColdStart ranks items by tag/goal overlap: the size of the intersection
// between (tags ∪ {topic}) and the goal set. The level ceiling and
// known-topic filter apply as in the model path; exclude drops already
// delivered identifiers. Order is overlap descending, then level
// descending, then catalog order. Every result carries the fixed
// heuristic confidence score.
func (r *Recommender) ColdStart(k, maxLevel int, goals []string, known, exclude map[string]bool) []core.Recommendation {
	if k <= 0 || len(r.items) == 0 {
		return nil
	}
	goalSet := make(map[string]bool, len(goals))
	for _, g := range goals {
		if g != "" {
			goalSet[g] = true
		}
	}

	type candidate struct {
		meta    ItemMeta
		overlap int
	}
	var cands []candidate
	for _, meta := range r.items {
		if exclude[meta.ID] || exceedsLevel(meta.Level, maxLevel) || intersectsKnown(meta, known) {
			continue
		}
		cands = append(cands, candidate{meta: meta, overlap: overlap(meta, goalSet)})
	}

	sort.SliceStable(cands, func(a, b int) bool {
		if cands[a].overlap != cands[b].overlap {
			return cands[a].overlap > cands[b].overlap
		}
		return cands[a].meta.Level > cands[b].meta.Level
	})

	if k > len(cands) {
		k = len(cands)
	}
	recs := make([]core.Recommendation, 0, k)
	for _, c := range cands[:k] {
		recs = append(recs, core.Recommendation{
			ID:        c.meta.ID,
			Kind:      core.RecContent,
			Score:     r.weights.ColdStartScore,
			Title:     c.meta.Title,
			Topic:     c.meta.Topic,
			Level:     c.meta.Level,
			ColdStart: true,
		})
	}
	return recs
}

// overlap counts goal tokens present in the item's tags or topic.
func overlap(meta ItemMeta, goals map[string]bool) int {
	n := 0
	counted := make(map[string]bool)
	for _, t := range meta.Tags {
		if goals[t] && !counted[t] {
			n++
			counted[t] = true
		}
	}
	if meta.Topic != "" && goals[meta.Topic] && !counted[meta.Topic] {
		n++
	}
	return n
}

// exceedsLevel reports whether an item breaks the ceiling. Items with an
// unspecified level are never excluded on this basis.
func exceedsLevel(level, maxLevel int) bool {
	return maxLevel > 0 && level > 0 && level > maxLevel
}

// intersectsKnown reports whether the item's tags or topic hit the user's
// known-topic set.
func intersectsKnown(meta ItemMeta, known map[string]bool) bool {
	if len(known) == 0 {
		return false
	}
	for _, t := range meta.Tags {
		if known[t] {
			return true
		}
	}
	return meta.Topic != "" && known[meta.Topic]
}
