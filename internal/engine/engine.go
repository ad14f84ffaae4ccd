package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"lessonrec/internal/collab"
	"lessonrec/internal/config"
	"lessonrec/internal/content"
	"lessonrec/internal/core"
	"lessonrec/internal/features"
	"lessonrec/internal/logger"
	"lessonrec/internal/quizmatch"
	"lessonrec/internal/vsm"
)

// UserStateSource is the read-only collaborator providing per-user state.
// A missing user yields (nil, nil): unknown users are not an error, they
// get cold-start output.
type UserStateSource interface {
	UserState(ctx context.Context, userID string) (*core.UserState, error)
	RecentItemIDs(ctx context.Context, userID string, limit int) ([]string, error)
}

// Snapshot bundles every trained artifact for one serving generation. It is
// immutable after construction; any number of concurrent recommend calls
// may score against it without coordination.
type Snapshot struct {
	Version   string
	CreatedAt time.Time

	Content      *vsm.Model
	Items        []content.ItemMeta // Catalog order, aligned with the document matrix rows
	Collab       *collab.Model
	ItemFeatures *features.Matrix
	QuizFeatures *features.Matrix

	recommender *content.Recommender
	matcher     *quizmatch.Matcher
}

// NewSnapshot assembles a snapshot and pre-builds the per-kind scorers.
// Items must be in the same order as the content model's rows.
func NewSnapshot(model *vsm.Model, items []content.ItemMeta, cf *collab.Model, itemFeats, quizFeats *features.Matrix, weights content.Weights) *Snapshot {
	return &Snapshot{
		Version:      uuid.NewString(),
		CreatedAt:    time.Now().UTC(),
		Content:      model,
		Items:        items,
		Collab:       cf,
		ItemFeatures: itemFeats,
		QuizFeatures: quizFeats,
		recommender:  content.NewRecommender(model, items, weights),
		matcher:      quizmatch.New(itemFeats, quizFeats),
	}
}

// Engine serves recommendations against the currently active snapshot. The
// snapshot reference swaps atomically on reload, so in-flight calls observe
// either fully the old or fully the new generation.
type Engine struct {
	snapshot atomic.Pointer[Snapshot]
	states   UserStateSource
	cfg      config.Recommend
}

// New creates an engine with no snapshot loaded; every recommend call
// returns empty results until Swap installs one.
func New(states UserStateSource, cfg config.Recommend) *Engine {
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = 6
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 20
	}
	return &Engine{states: states, cfg: cfg}
}

// Weights returns the content blend configured for this engine.
func (e *Engine) Weights() content.Weights {
	w := content.Weights{
		Profile:        e.cfg.ProfileWeight,
		Goal:           e.cfg.GoalWeight,
		ColdStartScore: e.cfg.ColdStartScore,
	}
	if w == (content.Weights{}) {
		w = content.DefaultWeights()
	}
	return w
}

// Swap atomically installs a new snapshot.
func (e *Engine) Swap(s *Snapshot) {
	e.snapshot.Store(s)
	if s != nil {
		logger.Info("snapshot installed",
			"version", s.Version,
			"items", len(s.Items),
			"quizzes", quizCount(s),
		)
	}
}

func quizCount(s *Snapshot) int {
	if s.QuizFeatures == nil {
		return 0
	}
	return s.QuizFeatures.Len()
}

// Active returns the current snapshot, or nil before the first Swap.
func (e *Engine) Active() *Snapshot {
	return e.snapshot.Load()
}

// RecommendContent ranks catalog items for a user. Empty goals fall back to
// the user's persisted goals; a zero maxLevel falls back to the persisted
// level hint. The result never exceeds k and never includes items from the
// user's known-topic set.
func (e *Engine) RecommendContent(ctx context.Context, userID string, k, maxLevel int, goals []string) ([]core.Recommendation, error) {
	snap := e.Active()
	if snap == nil {
		return []core.Recommendation{}, nil
	}
	if k <= 0 {
		k = e.cfg.DefaultK
	}

	state, err := e.states.UserState(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading user state: %w", err)
	}
	known := make(map[string]bool)
	if state != nil {
		if len(goals) == 0 {
			goals = state.Goals
		}
		if maxLevel == 0 {
			maxLevel = state.LevelHint
		}
		for _, t := range state.KnownTopics {
			known[t] = true
		}
	}

	recent, err := e.states.RecentItemIDs(ctx, userID, e.cfg.RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("loading recent interactions: %w", err)
	}

	recs := snap.recommender.Recommend(content.Request{
		K:        k,
		MaxLevel: maxLevel,
		Goals:    goals,
		Recent:   recent,
		Known:    known,
	})
	if recs == nil {
		recs = []core.Recommendation{}
	}
	return recs, nil
}

// RecommendCollaborative scores items by latent factors. Without a trained
// collaborative model the call degrades to catalog order, tagged
// cold-start; it never fails for lack of candidates.
func (e *Engine) RecommendCollaborative(userID string, k int) ([]core.Recommendation, error) {
	snap := e.Active()
	if snap == nil {
		return []core.Recommendation{}, nil
	}
	if k <= 0 {
		k = e.cfg.DefaultK
	}
	if snap.Collab == nil {
		return catalogOrder(snap.Items, k), nil
	}
	recs := snap.Collab.Recommend(userID, k)
	if recs == nil {
		recs = []core.Recommendation{}
	}
	return recs, nil
}

// catalogOrder is the terminal fallback of the collaborative chain.
func catalogOrder(items []content.ItemMeta, k int) []core.Recommendation {
	if k > len(items) {
		k = len(items)
	}
	recs := make([]core.Recommendation, 0, k)
	for _, meta := range items[:k] {
		recs = append(recs, core.Recommendation{
			ID:        meta.ID,
			Kind:      core.RecCollaborative,
			Reasons:   []string{"cold-start"},
			ColdStart: true,
		})
	}
	return recs
}

// RecommendQuiz ranks the quizzes linked to one topic item. A topic with no
// linked quizzes yields an empty list.
func (e *Engine) RecommendQuiz(topicID string, k int) ([]core.Recommendation, error) {
	snap := e.Active()
	if snap == nil {
		return []core.Recommendation{}, nil
	}
	if k <= 0 {
		k = e.cfg.DefaultK
	}
	return snap.matcher.Recommend(topicID, k), nil
}
