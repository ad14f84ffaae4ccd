package textextract

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// accentFolder decomposes characters and strips combining marks, so that
// near-duplicate tokens like "resume" and "résumé" merge into one term.
var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldAccents lowercases s and removes diacritics.
func FoldAccents(s string) string {
	folded, _, err := transform.String(accentFolder, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Tokenize splits folded text into word tokens. Runs of letters and digits
// form tokens; everything else separates them.
func Tokenize(s string) []string {
	return strings.FieldsFunc(FoldAccents(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Terms returns the unigrams and bigrams of a text, in document order.
// Bigrams are adjacent word pairs joined by a single space.
func Terms(s string) []string {
	words := Tokenize(s)
	if len(words) == 0 {
		return nil
	}
	terms := make([]string, 0, 2*len(words)-1)
	terms = append(terms, words...)
	for i := 0; i+1 < len(words); i++ {
		terms = append(terms, words[i]+" "+words[i+1])
	}
	return terms
}
