package core

import "time"

// CatalogItem represents a single lesson in the catalog. Items are immutable
// once a model snapshot has been built from them; a new training run works on
// a fresh corpus snapshot.
type CatalogItem struct {
	ID         string    `json:"id"`         // Stable identifier across vectorization runs
	Title      string    `json:"title"`      // Display title
	Summary    string    `json:"summary"`    // Short free-text summary
	Topic      string    `json:"topic"`      // Single topic label
	Tags       []string  `json:"tags"`       // Tag set
	Skills     []string  `json:"skills"`     // Skill set (feature vocabulary axis)
	Level      int       `json:"level"`      // Difficulty ceiling axis, 0 when unspecified
	Difficulty int       `json:"difficulty"` // 1..5, default 3; trailing feature dimension
	Markdown   string    `json:"markdown"`   // Free-text body
	Prereqs    []string  `json:"prereqs"`    // Prerequisite names/slugs
	Blocks     []Block   `json:"blocks"`     // Structured content blocks
	QuizPool   []QuizRef `json:"quiz_pool"`  // Embedded quiz references (tags only)
}

// Block is one structured content block inside a lesson body.
type Block struct {
	Type     string     `json:"type"`     // Block kind (text, image, list, table, code)
	Text     string     `json:"text"`     // Plain text content
	Caption  string     `json:"caption"`  // Image/table caption
	Items    []string   `json:"items"`    // List entries
	Rows     [][]string `json:"rows"`     // Table cell values
	Language string     `json:"language"` // Code block language tag
}

// QuizRef is a lightweight embedded quiz reference carried inside an item's
// quiz pool; only its tags feed the text extractor.
type QuizRef struct {
	Tags []string `json:"tags"`
}

// Quiz represents a quiz linked to one catalog item. Many quizzes may share
// an owning item; a quiz whose owning item is unknown is dropped before
// vectorization.
type Quiz struct {
	ID         string   `json:"id"`         // Quiz identifier
	ItemID     string   `json:"item_id"`    // Owning topic-item identifier
	Tags       []string `json:"tags"`       // Tag set
	Skills     []string `json:"skills"`     // Skill set
	Difficulty int      `json:"difficulty"` // 1..5, default 3
}

// UserState holds the per-user learning state read by the recommenders. The
// core never mutates it.
type UserState struct {
	UserID      string         `json:"user_id"`
	Goals       []string       `json:"goals"`        // Explicit stated goal tags
	KnownTopics []string       `json:"known_topics"` // Mastered tags/topics, excluded from results
	LevelHint   int            `json:"level_hint"`   // Inferred max level, 0 when unknown
	Answers     map[string]any `json:"answers"`      // Raw onboarding answers
}

// Interaction is one user/item event from the activity log.
type Interaction struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ItemID    string    `json:"item_id"`
	Type      string    `json:"type"`  // view, complete, quiz_pass, ...
	Score     float64   `json:"score"` // Optional event score
	CreatedAt time.Time `json:"created_at"`
}

// RecKind discriminates which recommender produced a result.
type RecKind string

const (
	RecContent       RecKind = "content"
	RecCollaborative RecKind = "collaborative"
	RecQuiz          RecKind = "quiz"
)

// Recommendation is one ranked result. All recommenders share this shape;
// Kind tells the caller which per-kind fields are meaningful (Title/Topic/
// Level for content, Reasons for collaborative and quiz results).
type Recommendation struct {
	ID        string   `json:"id"`
	Kind      RecKind  `json:"kind"`
	Score     float64  `json:"score"`
	Title     string   `json:"title,omitempty"`
	Topic     string   `json:"topic,omitempty"`
	Level     int      `json:"level,omitempty"`
	Reasons   []string `json:"reasons,omitempty"`
	ColdStart bool     `json:"cold_start,omitempty"` // True when produced by a fallback strategy
}
