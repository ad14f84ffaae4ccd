package quizmatch

import (
	"fmt"
	"testing"

	"lessonrec/internal/core"
	"lessonrec/internal/features"
)

func buildMatcher(t *testing.T) *Matcher {
	t.Helper()
	items := []core.CatalogItem{
		{ID: "chords-1", Tags: []string{"chord", "beginner"}, Skills: []string{"fretting"}, Difficulty: 1},
		{ID: "rhythm-1", Tags: []string{"rhythm"}, Skills: []string{"strumming"}, Difficulty: 2},
	}
	quizzes := []core.Quiz{
		{ID: "quiz-exact", ItemID: "chords-1", Tags: []string{"chord", "beginner"}, Skills: []string{"fretting"}, Difficulty: 1},
		{ID: "quiz-partial", ItemID: "chords-1", Tags: []string{"chord"}, Difficulty: 4},
		{ID: "quiz-offtopic", ItemID: "chords-1", Tags: []string{"rhythm"}, Difficulty: 3},
		{ID: "quiz-other", ItemID: "rhythm-1", Tags: []string{"rhythm"}, Skills: []string{"strumming"}, Difficulty: 2},
	}
	vocab := features.BuildVocabulary(items)
	valid := map[string]bool{"chords-1": true, "rhythm-1": true}
	return New(
		features.BuildItemMatrix(vocab, items),
		features.BuildQuizMatrix(vocab, quizzes, valid),
	)
}

func TestRecommend_RanksByFeatureSimilarity(t *testing.T) {
	m := buildMatcher(t)
	recs := m.Recommend("chords-1", 3)
	if len(recs) != 3 {
		t.Fatalf("got %d quizzes, want 3", len(recs))
	}
	if recs[0].ID != "quiz-exact" {
		t.Errorf("top quiz = %s, want the exact feature match", recs[0].ID)
	}
	if recs[2].ID != "quiz-offtopic" {
		t.Errorf("weakest match = %s, want quiz-offtopic", recs[2].ID)
	}
	for i := 1; i < len(recs); i++ {
		if recs[i].Score > recs[i-1].Score {
			t.Errorf("scores not descending at %d", i)
		}
	}
}

func TestRecommend_OnlyOwnedQuizzesAreCandidates(t *testing.T) {
	m := buildMatcher(t)
	recs := m.Recommend("chords-1", 10)
	for _, r := range recs {
		if r.ID == "quiz-other" {
			t.Error("quiz owned by another topic must not be a candidate")
		}
	}
	if len(recs) != 3 {
		t.Errorf("got %d quizzes, want all 3 owned by the topic", len(recs))
	}
}

func TestRecommend_Reasons(t *testing.T) {
	m := buildMatcher(t)
	recs := m.Recommend("chords-1", 1)
	if len(recs) != 1 {
		t.Fatal("expected one quiz")
	}
	r := recs[0]
	if r.Kind != core.RecQuiz {
		t.Errorf("kind = %q, want %q", r.Kind, core.RecQuiz)
	}
	if len(r.Reasons) != 2 {
		t.Fatalf("reasons = %v, want similarity source and score", r.Reasons)
	}
	if r.Reasons[0] != "similar_to:chords-1" {
		t.Errorf("reason[0] = %q", r.Reasons[0])
	}
	if want := fmt.Sprintf("score:%.3f", r.Score); r.Reasons[1] != want {
		t.Errorf("reason[1] = %q, want %q", r.Reasons[1], want)
	}
}

func TestRecommend_UnknownTopic(t *testing.T) {
	m := buildMatcher(t)
	recs := m.Recommend("no-such-topic", 5)
	if recs == nil {
		t.Fatal("unknown topic should yield an empty slice, not nil")
	}
	if len(recs) != 0 {
		t.Errorf("got %d quizzes for an unknown topic", len(recs))
	}
}

func TestRecommend_TopicWithoutQuizzes(t *testing.T) {
	m := buildMatcher(t)
	recs := m.Recommend("rhythm-1", 5)
	if len(recs) != 1 || recs[0].ID != "quiz-other" {
		t.Fatalf("unexpected quizzes for rhythm-1: %v", recs)
	}

	items := []core.CatalogItem{{ID: "lonely", Tags: []string{"x"}}}
	vocab := features.BuildVocabulary(items)
	empty := New(
		features.BuildItemMatrix(vocab, items),
		features.BuildQuizMatrix(vocab, nil, map[string]bool{"lonely": true}),
	)
	if recs := empty.Recommend("lonely", 5); len(recs) != 0 {
		t.Errorf("topic without quizzes should yield an empty list, got %v", recs)
	}
}

func TestRecommend_KTruncates(t *testing.T) {
	m := buildMatcher(t)
	if got := len(m.Recommend("chords-1", 2)); got != 2 {
		t.Errorf("k=2 should truncate to 2, got %d", got)
	}
	if got := len(m.Recommend("chords-1", 0)); got != 0 {
		t.Errorf("k=0 should yield nothing, got %d", got)
	}
}
