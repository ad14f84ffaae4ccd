package content

import (
	"testing"

	"lessonrec/internal/core"
	"lessonrec/internal/vsm"
)

func scenarioItems() []core.CatalogItem {
	return []core.CatalogItem{
		{ID: "chords-1", Title: "Open Chords", Summary: "open chord shapes for beginners", Topic: "chords", Tags: []string{"chord"}, Level: 1},
		{ID: "rhythm-1", Title: "Strumming", Summary: "strumming rhythm patterns down up", Topic: "rhythm", Tags: []string{"rhythm"}, Level: 1},
		{ID: "mixed-1", Title: "Chord Rhythm Workout", Summary: "chord changes with rhythm strumming", Topic: "practice", Tags: []string{"chord", "rhythm"}, Level: 2},
		{ID: "scales-1", Title: "Pentatonic", Summary: "pentatonic scale lead playing", Topic: "scales", Tags: []string{"scale"}, Level: 3},
	}
}

func scenarioRecommender(t *testing.T) *Recommender {
	t.Helper()
	items := scenarioItems()
	model := vsm.Fit(items, vsm.Options{})
	return NewRecommender(model, MetaFromItems(items), DefaultWeights())
}

func TestMetaFromItems(t *testing.T) {
	items := append(scenarioItems(), core.CatalogItem{Title: "no id"})
	meta := MetaFromItems(items)
	if len(meta) != 4 {
		t.Fatalf("got %d metas, want 4", len(meta))
	}
	for i, m := range meta {
		if m.ID != items[i].ID {
			t.Errorf("meta[%d] = %s, want catalog order %s", i, m.ID, items[i].ID)
		}
	}
}

func TestRecommend_GoalsSteerRanking(t *testing.T) {
	r := scenarioRecommender(t)
	recs := r.Recommend(Request{K: 4, Goals: []string{"rhythm", "strumming"}})
	if len(recs) == 0 {
		t.Fatal("expected recommendations")
	}
	if recs[0].ID != "rhythm-1" {
		t.Errorf("top recommendation = %s, want rhythm-1", recs[0].ID)
	}
	if recs[0].Kind != core.RecContent {
		t.Errorf("kind = %q, want %q", recs[0].Kind, core.RecContent)
	}
	if recs[0].ColdStart {
		t.Error("model-path results must not be tagged cold-start")
	}
}

func TestRecommend_HistoryDominatesBlend(t *testing.T) {
	r := scenarioRecommender(t)
	// History on the chord item, stated goal elsewhere: with the 0.8/0.2
	// blend the profile side should still pull chord-adjacent content up.
	recs := r.Recommend(Request{K: 1, Goals: []string{"scale"}, Recent: []string{"chords-1"}})
	if len(recs) != 1 {
		t.Fatalf("got %d recommendations, want 1", len(recs))
	}
	if recs[0].ID != "mixed-1" {
		t.Errorf("top recommendation = %s, want the chord-overlapping mixed-1", recs[0].ID)
	}
}

func TestRecommend_ExcludesRecentItems(t *testing.T) {
	r := scenarioRecommender(t)
	recs := r.Recommend(Request{K: 4, Goals: []string{"rhythm"}, Recent: []string{"rhythm-1"}})
	for _, rec := range recs {
		if rec.ID == "rhythm-1" {
			t.Error("recently seen item must not be recommended")
		}
	}
}

func TestRecommend_LevelCeiling(t *testing.T) {
	r := scenarioRecommender(t)
	recs := r.Recommend(Request{K: 4, MaxLevel: 1, Goals: []string{"scale", "chord"}})
	for _, rec := range recs {
		if rec.Level > 1 {
			t.Errorf("item %s level %d breaks the ceiling", rec.ID, rec.Level)
		}
	}
}

func TestRecommend_LevelZeroNeverExcluded(t *testing.T) {
	items := []core.CatalogItem{
		{ID: "unleveled", Title: "Misc", Summary: "assorted guitar topics", Topic: "misc"},
		{ID: "hard", Title: "Sweep Picking", Summary: "advanced sweep picking arpeggios", Topic: "lead", Level: 5},
	}
	model := vsm.Fit(items, vsm.Options{})
	r := NewRecommender(model, MetaFromItems(items), DefaultWeights())

	recs := r.Recommend(Request{K: 2, MaxLevel: 2, Goals: []string{"guitar"}})
	found := false
	for _, rec := range recs {
		if rec.ID == "hard" {
			t.Error("level 5 item breaks a ceiling of 2")
		}
		if rec.ID == "unleveled" {
			found = true
		}
	}
	if !found {
		t.Error("item without a level must pass any ceiling")
	}
}

func TestRecommend_KnownTopicsExcluded(t *testing.T) {
	r := scenarioRecommender(t)
	known := map[string]bool{"chord": true}
	recs := r.Recommend(Request{K: 4, Goals: []string{"chord", "rhythm"}, Known: known})
	for _, rec := range recs {
		if rec.ID == "chords-1" || rec.ID == "mixed-1" {
			t.Errorf("item %s carries a known tag and must be excluded", rec.ID)
		}
	}
}

func TestRecommend_KnownTopicMatchesTopicField(t *testing.T) {
	r := scenarioRecommender(t)
	recs := r.Recommend(Request{K: 4, Goals: []string{"scale"}, Known: map[string]bool{"scales": true}})
	for _, rec := range recs {
		if rec.ID == "scales-1" {
			t.Error("known topic matching the Topic field must exclude the item")
		}
	}
}

func TestRecommend_BackfillsFromColdStart(t *testing.T) {
	r := scenarioRecommender(t)
	// Everything recently seen except one item: the model path yields a
	// single hit and the shortfall must come from the heuristic.
	recs := r.Recommend(Request{
		K:      3,
		Goals:  []string{"rhythm"},
		Recent: []string{"rhythm-1", "mixed-1", "scales-1"},
	})
	if len(recs) != 1 {
		t.Fatalf("got %d recommendations, want 1 (only chords-1 is unseen)", len(recs))
	}
	if recs[0].ID != "chords-1" {
		t.Errorf("got %s, want chords-1", recs[0].ID)
	}
}

func TestRecommend_BackfillNeverRepeats(t *testing.T) {
	items := scenarioItems()
	// A model over a different, tiny catalog so most metas have no row and
	// the heuristic supplies the rest.
	model := vsm.Fit(items[:1], vsm.Options{})
	r := NewRecommender(model, MetaFromItems(items), DefaultWeights())

	recs := r.Recommend(Request{K: 4, Goals: []string{"chord"}})
	seen := make(map[string]bool)
	for _, rec := range recs {
		if seen[rec.ID] {
			t.Errorf("item %s delivered twice", rec.ID)
		}
		seen[rec.ID] = true
	}
}

func TestRecommend_NoModelFallsBackToColdStart(t *testing.T) {
	r := NewRecommender(nil, MetaFromItems(scenarioItems()), DefaultWeights())
	recs := r.Recommend(Request{K: 2, Goals: []string{"chord"}})
	if len(recs) != 2 {
		t.Fatalf("got %d recommendations, want 2", len(recs))
	}
	for _, rec := range recs {
		if !rec.ColdStart {
			t.Error("results without a model must be tagged cold-start")
		}
		if rec.Score != DefaultWeights().ColdStartScore {
			t.Errorf("score = %f, want the fixed heuristic confidence", rec.Score)
		}
	}
	if recs[0].ID != "chords-1" && recs[0].ID != "mixed-1" {
		t.Errorf("top cold-start pick %s should overlap the goal", recs[0].ID)
	}
}

func TestColdStart_Ordering(t *testing.T) {
	items := []core.CatalogItem{
		{ID: "a", Topic: "rhythm", Tags: []string{"chord"}, Level: 1},  // overlap 2
		{ID: "b", Topic: "other", Tags: []string{"chord"}, Level: 3},   // overlap 1, higher level
		{ID: "c", Topic: "other", Tags: []string{"chord"}, Level: 1},   // overlap 1
		{ID: "d", Topic: "misc", Tags: []string{"unrelated"}, Level: 5}, // overlap 0
	}
	r := NewRecommender(nil, MetaFromItems(items), DefaultWeights())

	recs := r.ColdStart(4, 0, []string{"chord", "rhythm"}, nil, nil)
	want := []string{"a", "b", "c", "d"}
	for i, rec := range recs {
		if rec.ID != want[i] {
			t.Errorf("position %d = %s, want %s (overlap desc, level desc, catalog order)", i, rec.ID, want[i])
		}
	}
}

func TestColdStart_StableTieBreak(t *testing.T) {
	items := []core.CatalogItem{
		{ID: "first", Tags: []string{"x"}, Level: 2},
		{ID: "second", Tags: []string{"x"}, Level: 2},
		{ID: "third", Tags: []string{"x"}, Level: 2},
	}
	r := NewRecommender(nil, MetaFromItems(items), DefaultWeights())
	recs := r.ColdStart(3, 0, []string{"x"}, nil, nil)
	want := []string{"first", "second", "third"}
	for i, rec := range recs {
		if rec.ID != want[i] {
			t.Errorf("full ties should keep catalog order, position %d = %s", i, rec.ID)
		}
	}
}

func TestColdStart_RespectsExcludeAndFilters(t *testing.T) {
	r := NewRecommender(nil, MetaFromItems(scenarioItems()), DefaultWeights())
	recs := r.ColdStart(4, 1, []string{"chord"}, map[string]bool{"rhythm": true}, map[string]bool{"chords-1": true})
	// chords-1 excluded, mixed-1 (level 2, rhythm tag) filtered twice over,
	// rhythm-1 known, scales-1 over the ceiling.
	if len(recs) != 0 {
		t.Errorf("expected no survivors, got %v", recs)
	}
}

func TestRecommend_NonPositiveK(t *testing.T) {
	r := scenarioRecommender(t)
	if recs := r.Recommend(Request{K: 0}); recs != nil {
		t.Errorf("k=0 should yield nil, got %v", recs)
	}
}
