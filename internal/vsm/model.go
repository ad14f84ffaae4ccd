package vsm

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"lessonrec/internal/core"
	"lessonrec/internal/textextract"
)

// Options controls fitting of the content model.
type Options struct {
	UseReduction  bool // Project TF-IDF rows into a latent space via truncated SVD
	MaxComponents int  // Component ceiling for the reduction; 0 means 256
}

// Model is a fitted vector-space model over the catalog: the TF-IDF
// transform, an optional latent-space projection, and one unit-norm row per
// item. The transform applied to any query string yields a vector in the
// same coordinate space as the document rows, so similarity is a dot
// product.
type Model struct {
	Vectorizer *Vectorizer `json:"vectorizer"`
	Projection [][]float64 `json:"projection,omitempty"` // term-space → latent-space, one row per term
	Docs       [][]float64 `json:"docs"`                 // one unit-norm row per item
	RowToID    []string    `json:"row_to_id"`            // row index → item identifier

	idToRow map[string]int
}

// Fit builds the content model from the catalog. Items without an
// identifier are skipped. An empty corpus yields a well-formed empty model
// that reports Loaded() == false.
func Fit(items []core.CatalogItem, opts Options) *Model {
	var docs []string
	var ids []string
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		docs = append(docs, textextract.BuildDocument(item))
		ids = append(ids, item.ID)
	}

	m := &Model{
		Vectorizer: FitVectorizer(docs),
		Docs:       make([][]float64, len(docs)),
		RowToID:    ids,
	}
	for i, doc := range docs {
		m.Docs[i] = m.Vectorizer.Transform(doc)
	}

	if opts.UseReduction {
		m.reduce(opts.MaxComponents)
	}
	m.buildIndex()
	return m
}

// reduce replaces the TF-IDF rows with their truncated-SVD projection and
// records the term-space projection for queries. Rows are re-normalized to
// unit norm afterwards. Reduction is skipped when the corpus is too small
// to support at least two components.
func (m *Model) reduce(maxComponents int) {
	n := len(m.Docs)
	d := m.Vectorizer.Dim()
	if maxComponents <= 0 {
		maxComponents = 256
	}
	// Never more components than documents minus one, and at least two.
	k := maxComponents
	if n-1 < k {
		k = n - 1
	}
	if k < 2 {
		k = 2
	}
	if k > n || k > d {
		return
	}

	x := mat.NewDense(n, d, nil)
	for i, row := range m.Docs {
		x.SetRow(i, row)
	}

	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	sigma := svd.Values(nil)

	// Document rows become U_k * diag(S_k), unit-normalized.
	reduced := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, k)
		for j := 0; j < k; j++ {
			row[j] = u.At(i, j) * sigma[j]
		}
		normalize(row)
		reduced[i] = row
	}

	// Queries project through V_k: (1×d)·(d×k).
	projection := make([][]float64, d)
	for t := 0; t < d; t++ {
		row := make([]float64, k)
		for j := 0; j < k; j++ {
			row[j] = v.At(t, j)
		}
		projection[t] = row
	}

	m.Docs = reduced
	m.Projection = projection
}

func (m *Model) buildIndex() {
	m.idToRow = make(map[string]int, len(m.RowToID))
	for i, id := range m.RowToID {
		m.idToRow[id] = i
	}
}

// Loaded reports whether the model holds a usable transform and a non-empty
// document matrix.
func (m *Model) Loaded() bool {
	return m != nil && m.Vectorizer != nil && len(m.Docs) > 0
}

// RowIndex returns the matrix row for an item identifier.
func (m *Model) RowIndex(id string) (int, bool) {
	if m.idToRow == nil {
		m.buildIndex()
	}
	i, ok := m.idToRow[id]
	return i, ok
}

// TransformQuery maps an arbitrary query string (for example goal tags
// joined by spaces) into the document coordinate space, unit-normalized.
func (m *Model) TransformQuery(text string) []float64 {
	vec := m.Vectorizer.Transform(text)
	if m.Projection == nil {
		return vec
	}
	k := len(m.Projection[0])
	projected := make([]float64, k)
	for t, w := range vec {
		if w == 0 {
			continue
		}
		row := m.Projection[t]
		for j := 0; j < k; j++ {
			projected[j] += w * row[j]
		}
	}
	normalize(projected)
	return projected
}

// SimilarityToAll returns the cosine similarity of a query vector against
// every document row. A nil or zero query yields a zero vector.
func (m *Model) SimilarityToAll(query []float64) []float64 {
	scores := make([]float64, len(m.Docs))
	if len(query) == 0 {
		return scores
	}
	for i, row := range m.Docs {
		scores[i] = Cosine(query, row)
	}
	return scores
}

// MeanRow averages the document rows at the given indices. Returns nil when
// no indices are given.
func (m *Model) MeanRow(rows []int) []float64 {
	if len(rows) == 0 || len(m.Docs) == 0 {
		return nil
	}
	dim := len(m.Docs[0])
	mean := make([]float64, dim)
	for _, r := range rows {
		for j, x := range m.Docs[r] {
			mean[j] += x
		}
	}
	inv := 1 / float64(len(rows))
	for j := range mean {
		mean[j] *= inv
	}
	return mean
}

// Cosine computes cosine similarity between two vectors of equal length.
// Mismatched lengths or zero vectors score 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	den := math.Sqrt(na) * math.Sqrt(nb)
	if den == 0 {
		return 0
	}
	return dot / den
}
