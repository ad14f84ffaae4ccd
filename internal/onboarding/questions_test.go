package onboarding

import (
	"reflect"
	"testing"
)

func TestDefaultQuestions_Shape(t *testing.T) {
	if len(DefaultQuestions) != 6 {
		t.Fatalf("survey has %d questions, want 6", len(DefaultQuestions))
	}
	keys := make(map[string]bool)
	for _, q := range DefaultQuestions {
		if q.Key == "" || q.Title == "" {
			t.Errorf("question %q missing key or title", q.Key)
		}
		if keys[q.Key] {
			t.Errorf("duplicate question key %q", q.Key)
		}
		keys[q.Key] = true
		if len(q.Options) == 0 {
			t.Errorf("question %q has no options", q.Key)
		}
		if q.Multi && q.Key != "basic" {
			t.Errorf("only the basics question is multi-select, got %q", q.Key)
		}
	}
	if !keys["basic"] || !keys["aim"] || !keys["exp"] {
		t.Error("survey must cover aim, experience and basics")
	}
}

func TestAnswersToGoals(t *testing.T) {
	answers := map[string]any{
		"aim":   "strum_sing",
		"style": "pop",
		"basic": []any{"open_chords"},
	}
	goals := AnswersToGoals(answers)

	// Question order fixes goal order: aim before basic before style.
	want := []string{"rhythm", "strumming", "accompaniment", "open-chords", "chord", "pop", "ballad"}
	if !reflect.DeepEqual(goals, want) {
		t.Errorf("goals = %v, want %v", goals, want)
	}
}

func TestAnswersToGoals_Deduplicates(t *testing.T) {
	// "strumming" arrives from both the aim and the basics answers.
	answers := map[string]any{
		"aim":   "strum_sing",
		"basic": []any{"strumming_basic"},
	}
	goals := AnswersToGoals(answers)
	count := 0
	for _, g := range goals {
		if g == "strumming" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("goal repeated %d times, want deduplication", count)
	}
}

func TestAnswersToGoals_ToleratesBadInput(t *testing.T) {
	answers := map[string]any{
		"aim":     "no_such_option",
		"basic":   []any{42, "open_chords"},
		"unknown": "ignored",
		"style":   7,
	}
	goals := AnswersToGoals(answers)
	want := []string{"open-chords", "chord"}
	if !reflect.DeepEqual(goals, want) {
		t.Errorf("goals = %v, want %v", goals, want)
	}

	if got := AnswersToGoals(nil); len(got) != 0 {
		t.Errorf("nil answers should give no goals, got %v", got)
	}
}

func TestAnswersToGoals_StringSliceAnswers(t *testing.T) {
	// Answers decoded from typed clients arrive as []string, not []any.
	goals := AnswersToGoals(map[string]any{"basic": []string{"tuning"}})
	want := []string{"tuning", "ear", "setup"}
	if !reflect.DeepEqual(goals, want) {
		t.Errorf("goals = %v, want %v", goals, want)
	}
}

func TestKnownTopics(t *testing.T) {
	known := KnownTopics(map[string]any{"basic": []any{"open_chords", "tuning"}})
	want := []string{"open_chords", "tuning"}
	if !reflect.DeepEqual(known, want) {
		t.Errorf("known = %v, want %v", known, want)
	}

	if got := KnownTopics(map[string]any{}); got != nil {
		t.Errorf("no basics answer should give no known topics, got %v", got)
	}
}

func TestInferMaxLevel(t *testing.T) {
	tests := []struct {
		name    string
		answers map[string]any
		want    int
	}{
		{"brand new", map[string]any{"exp": "brand_new"}, 1},
		{"no answers", map[string]any{}, 1},
		{"some basics", map[string]any{"exp": "some_basics"}, 2},
		{
			"three basics without barre",
			map[string]any{"basic": []any{"open_chords", "tuning", "metronome"}},
			2,
		},
		{
			"barre alone is not enough",
			map[string]any{"basic": []any{"barre_try"}},
			1,
		},
		{
			"barre plus breadth",
			map[string]any{"basic": []any{"barre_try", "open_chords", "tuning"}},
			3,
		},
		{
			"experience and basics combine",
			map[string]any{"exp": "some_basics", "basic": []any{"barre_try", "open_chords", "metronome", "tuning"}},
			3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferMaxLevel(tt.answers); got != tt.want {
				t.Errorf("InferMaxLevel = %d, want %d", got, tt.want)
			}
		})
	}
}
