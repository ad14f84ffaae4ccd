package vsm

import (
	"math"
	"sort"

	"lessonrec/internal/textextract"
)

// maxDocFreq drops terms present in more than this share of documents.
const maxDocFreq = 0.9

// Vectorizer is a fitted TF-IDF transform over unigrams and bigrams.
// The term list is sorted, so index assignment is reproducible for the
// same corpus.
type Vectorizer struct {
	Terms []string  `json:"terms"` // Ordered vocabulary
	IDF   []float64 `json:"idf"`   // Smoothed inverse document frequency per term

	index map[string]int
}

// FitVectorizer learns the vocabulary and IDF weights from a corpus of
// documents. Terms must appear in at least one document and in at most 90%
// of documents. An empty corpus yields a vectorizer with an empty
// vocabulary.
func FitVectorizer(docs []string) *Vectorizer {
	n := len(docs)
	docFreq := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool)
		for _, term := range textextract.Terms(doc) {
			if !seen[term] {
				docFreq[term]++
				seen[term] = true
			}
		}
	}

	ceiling := int(math.Floor(maxDocFreq * float64(n)))
	if ceiling < 1 {
		ceiling = 1
	}
	terms := make([]string, 0, len(docFreq))
	for term, df := range docFreq {
		if df >= 1 && df <= ceiling {
			terms = append(terms, term)
		}
	}
	sort.Strings(terms)

	v := &Vectorizer{
		Terms: terms,
		IDF:   make([]float64, len(terms)),
		index: make(map[string]int, len(terms)),
	}
	for i, term := range terms {
		v.index[term] = i
		// Smoothed IDF: ln((1+n)/(1+df)) + 1, never negative or zero.
		v.IDF[i] = math.Log(float64(1+n)/float64(1+docFreq[term])) + 1
	}
	return v
}

// Dim returns the vocabulary size.
func (v *Vectorizer) Dim() int { return len(v.Terms) }

// Transform maps a text into its L2-normalized TF-IDF vector in the fitted
// coordinate space. Unknown terms are ignored.
func (v *Vectorizer) Transform(text string) []float64 {
	v.ensureIndex()
	vec := make([]float64, len(v.Terms))
	for _, term := range textextract.Terms(text) {
		if i, ok := v.index[term]; ok {
			vec[i] += v.IDF[i]
		}
	}
	normalize(vec)
	return vec
}

// ensureIndex rebuilds the term lookup after JSON decoding.
func (v *Vectorizer) ensureIndex() {
	if v.index == nil {
		v.index = make(map[string]int, len(v.Terms))
		for i, term := range v.Terms {
			v.index[term] = i
		}
	}
}

func normalize(vec []float64) {
	var sum float64
	for _, x := range vec {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range vec {
		vec[i] *= inv
	}
}
