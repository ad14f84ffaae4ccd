package onboarding

// Question is one onboarding survey entry. "basic" is multi-select and its
// choices double as the user's known-topic set.
type Question struct {
	Key     string   `json:"key"`
	Title   string   `json:"title"`
	Multi   bool     `json:"multi,omitempty"`
	Options []Option `json:"options"`
}

// Option is one selectable answer.
type Option struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// DefaultQuestions is the static onboarding survey shown to new users.
var DefaultQuestions = []Question{
	{
		Key:   "aim",
		Title: "Which goal do you want to reach first?",
		Options: []Option{
			{Key: "strum_sing", Label: "Strumming & accompaniment"},
			{Key: "fingerstyle", Label: "Basic fingerstyle"},
			{Key: "theory", Label: "Understand chords & keys"},
			{Key: "solo", Label: "Solo & techniques (bend/slide)"},
		},
	},
	{
		Key:   "exp",
		Title: "How much guitar experience do you have?",
		Options: []Option{
			{Key: "brand_new", Label: "Brand new (never played)"},
			{Key: "touched", Label: "Touched a guitar, know a little"},
			{Key: "some_basics", Label: "Learned some basics (open chords, counting)"},
		},
	},
	{
		Key:   "basic",
		Title: "What have you already learned? (select all that apply)",
		Multi: true,
		Options: []Option{
			{Key: "open_chords", Label: "Open chords (C, G, Am, Em...)"},
			{Key: "strumming_basic", Label: "Basic strumming patterns"},
			{Key: "tuning", Label: "Tuning by yourself"},
			{Key: "metronome", Label: "Practicing with a metronome"},
			{Key: "barre_try", Label: "Tried barre chords"},
			{Key: "reading_charts", Label: "Reading chord charts"},
		},
	},
	{
		Key:   "style",
		Title: "Which style do you enjoy most?",
		Options: []Option{
			{Key: "pop", Label: "Pop/Ballad"},
			{Key: "rock", Label: "Rock/Power"},
			{Key: "blues", Label: "Blues"},
		},
	},
	{
		Key:   "time",
		Title: "How much time can you practice per day?",
		Options: []Option{
			{Key: "t15", Label: "~15 minutes"},
			{Key: "t30", Label: "~30 minutes"},
			{Key: "t60", Label: "~60 minutes"},
		},
	},
	{
		Key:   "gear",
		Title: "Which instrument do you have?",
		Options: []Option{
			{Key: "acoustic", Label: "Acoustic guitar"},
			{Key: "electric", Label: "Electric guitar"},
			{Key: "none", Label: "None yet (watching videos, planning to buy)"},
		},
	},
}

// answerGoals maps question key → option key → goal tags.
var answerGoals = map[string]map[string][]string{
	"aim": {
		"strum_sing":  {"rhythm", "strumming", "accompaniment"},
		"fingerstyle": {"fingerstyle", "arpeggio", "pima"},
		"theory":      {"theory", "chord", "tone", "roman"},
		"solo":        {"solo", "bend", "slide", "hammer", "pulloff"},
	},
	"style": {
		"pop":   {"pop", "ballad"},
		"rock":  {"rock", "power"},
		"blues": {"blues", "pentatonic"},
	},
	"exp": {
		"brand_new":   {"level1"},
		"touched":     {"level1"},
		"some_basics": {"level2"},
	},
	"basic": {
		"open_chords":     {"open-chords", "chord"},
		"strumming_basic": {"strumming", "rhythm"},
		"tuning":          {"tuning", "ear", "setup"},
		"metronome":       {"metronome", "timing", "subdivision"},
		"barre_try":       {"barre", "strength"},
		"reading_charts":  {"chart-reading", "songbook"},
	},
	"time": {
		"t15": {"short-lesson"},
		"t30": {"medium-lesson"},
		"t60": {"long-lesson"},
	},
	"gear": {
		"acoustic": {"acoustic"},
		"electric": {"electric"},
		"none":     {"prep", "no-guitar"},
	},
}

// AnswersToGoals merges the goal tags of every answer, preserving first
// occurrence order and dropping duplicates. The "basic" answer may be a
// list of choices.
func AnswersToGoals(answers map[string]any) []string {
	var goals []string
	seen := make(map[string]bool)
	add := func(qk, choice string) {
		for _, g := range answerGoals[qk][choice] {
			if g != "" && !seen[g] {
				goals = append(goals, g)
				seen[g] = true
			}
		}
	}
	for _, q := range DefaultQuestions {
		answer, ok := answers[q.Key]
		if !ok {
			continue
		}
		switch v := answer.(type) {
		case []any:
			for _, choice := range v {
				if s, ok := choice.(string); ok {
					add(q.Key, s)
				}
			}
		case []string:
			for _, s := range v {
				add(q.Key, s)
			}
		case string:
			add(q.Key, v)
		}
	}
	return goals
}

// KnownTopics extracts the already-mastered skills from the "basic"
// multi-select answer; these feed the known-topic exclusion filter.
func KnownTopics(answers map[string]any) []string {
	var known []string
	switch v := answers["basic"].(type) {
	case []any:
		for _, choice := range v {
			if s, ok := choice.(string); ok {
				known = append(known, s)
			}
		}
	case []string:
		known = append(known, v...)
	}
	return known
}

// InferMaxLevel derives a level hint (1..3) from the experience answer and
// how many basics the user already ticked.
func InferMaxLevel(answers map[string]any) int {
	level := 1
	if exp, _ := answers["exp"].(string); exp == "some_basics" {
		level = 2
	}

	basics := KnownTopics(answers)
	hasBarre := false
	for _, b := range basics {
		if b == "barre_try" {
			hasBarre = true
		}
	}
	if hasBarre && len(basics) >= 3 {
		level = max(level, 3)
	} else if len(basics) >= 3 {
		level = max(level, 2)
	}

	if level < 1 {
		level = 1
	}
	if level > 3 {
		level = 3
	}
	return level
}
