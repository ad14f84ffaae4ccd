package features

import (
	"math"
	"sort"

	"lessonrec/internal/core"
)

// normEpsilon keeps the row normalization defined for all-zero rows.
const normEpsilon = 1e-8

// DefaultDifficulty is assumed when a record carries no difficulty.
const DefaultDifficulty = 3

// Vocabulary is the ordered tag and skill token set shared by item and quiz
// feature vectors. Ordering is lexicographic, so index assignment is
// deterministic across runs. The feature dimension is fixed once built;
// rebuilding the vocabulary requires rebuilding every dependent matrix.
type Vocabulary struct {
	Tags   []string `json:"tags"`
	Skills []string `json:"skills"`

	tagIndex   map[string]int
	skillIndex map[string]int
}

// BuildVocabulary derives the vocabulary from the full item corpus.
func BuildVocabulary(items []core.CatalogItem) *Vocabulary {
	tagSet := make(map[string]bool)
	skillSet := make(map[string]bool)
	for _, item := range items {
		for _, t := range item.Tags {
			tagSet[t] = true
		}
		for _, s := range item.Skills {
			skillSet[s] = true
		}
	}
	v := &Vocabulary{
		Tags:   sortedKeys(tagSet),
		Skills: sortedKeys(skillSet),
	}
	v.buildIndex()
	return v
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (v *Vocabulary) buildIndex() {
	v.tagIndex = make(map[string]int, len(v.Tags))
	for i, t := range v.Tags {
		v.tagIndex[t] = i
	}
	v.skillIndex = make(map[string]int, len(v.Skills))
	for i, s := range v.Skills {
		v.skillIndex[s] = i
	}
}

// Dim is the feature vector dimension: one slot per tag, one per skill, and
// a trailing normalized-difficulty slot.
func (v *Vocabulary) Dim() int {
	return len(v.Tags) + len(v.Skills) + 1
}

// Row builds one normalized feature vector from a record's tags, skills and
// difficulty. Tokens outside the vocabulary are ignored. The trailing
// dimension is difficulty/5; the whole row is L2-normalized with a small
// epsilon so all-zero rows stay defined.
func (v *Vocabulary) Row(tags, skills []string, difficulty int) []float64 {
	if v.tagIndex == nil {
		v.buildIndex()
	}
	row := make([]float64, v.Dim())
	for _, t := range tags {
		if i, ok := v.tagIndex[t]; ok {
			row[i] = 1.0
		}
	}
	off := len(v.Tags)
	for _, s := range skills {
		if i, ok := v.skillIndex[s]; ok {
			row[off+i] = 1.0
		}
	}
	row[len(row)-1] = clampDifficulty(difficulty) / 5.0

	var sum float64
	for _, x := range row {
		sum += x * x
	}
	inv := 1 / (math.Sqrt(sum) + normEpsilon)
	for i := range row {
		row[i] *= inv
	}
	return row
}

func clampDifficulty(d int) float64 {
	if d == 0 {
		d = DefaultDifficulty
	}
	if d < 1 {
		d = 1
	}
	if d > 5 {
		d = 5
	}
	return float64(d)
}

// Matrix holds one feature row per record plus the identifier↔row mapping.
// Item and quiz matrices built from the same vocabulary share a coordinate
// space, so their rows are directly comparable.
type Matrix struct {
	Rows    [][]float64 `json:"rows"`
	RowToID []string    `json:"row_to_id"`
	// OwnerIDs is aligned with Rows for quiz matrices: the owning
	// topic-item identifier per quiz. Nil for item matrices.
	OwnerIDs []string `json:"owner_ids,omitempty"`

	idToRow map[string]int
}

// BuildItemMatrix vectorizes every catalog item against the vocabulary.
// Items without an identifier are skipped.
func BuildItemMatrix(vocab *Vocabulary, items []core.CatalogItem) *Matrix {
	m := &Matrix{}
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		m.Rows = append(m.Rows, vocab.Row(item.Tags, item.Skills, item.Difficulty))
		m.RowToID = append(m.RowToID, item.ID)
	}
	m.buildIndex()
	return m
}

// BuildQuizMatrix vectorizes quizzes against the same vocabulary. Quizzes
// whose owning item is not in validItems are dropped before vectorization.
func BuildQuizMatrix(vocab *Vocabulary, quizzes []core.Quiz, validItems map[string]bool) *Matrix {
	m := &Matrix{}
	for _, q := range quizzes {
		if q.ID == "" || !validItems[q.ItemID] {
			continue
		}
		m.Rows = append(m.Rows, vocab.Row(q.Tags, q.Skills, q.Difficulty))
		m.RowToID = append(m.RowToID, q.ID)
		m.OwnerIDs = append(m.OwnerIDs, q.ItemID)
	}
	m.buildIndex()
	return m
}

func (m *Matrix) buildIndex() {
	m.idToRow = make(map[string]int, len(m.RowToID))
	for i, id := range m.RowToID {
		m.idToRow[id] = i
	}
}

// Len returns the number of rows.
func (m *Matrix) Len() int { return len(m.Rows) }

// RowIndex returns the row for an identifier.
func (m *Matrix) RowIndex(id string) (int, bool) {
	if m.idToRow == nil {
		m.buildIndex()
	}
	i, ok := m.idToRow[id]
	return i, ok
}

// Dot returns the dot product of two feature rows. Both rows being
// unit-normalized, this equals their cosine similarity.
func Dot(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}
