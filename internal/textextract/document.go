package textextract

import (
	"strings"

	"lessonrec/internal/core"
)

// BuildDocument flattens a catalog item into the single text string fed to
// the vector-space model. Field order is fixed so repeated runs over the
// same corpus produce identical documents: title, summary, topic, tags,
// prereqs, markdown body, structured block text, embedded quiz-pool tags.
// Missing fields contribute empty strings.
func BuildDocument(item core.CatalogItem) string {
	parts := []string{
		item.Title,
		item.Summary,
		item.Topic,
		strings.Join(item.Tags, " "),
		strings.Join(item.Prereqs, " "),
		item.Markdown,
		blocksText(item.Blocks),
		quizPoolTags(item.QuizPool),
	}
	return strings.Join(parts, " ")
}

func blocksText(blocks []core.Block) string {
	var texts []string
	for _, b := range blocks {
		var t []string
		if b.Text != "" {
			t = append(t, b.Text)
		}
		if b.Caption != "" {
			t = append(t, b.Caption)
		}
		t = append(t, b.Items...)
		for _, row := range b.Rows {
			t = append(t, row...)
		}
		if b.Language != "" {
			t = append(t, b.Language)
		}
		texts = append(texts, strings.Join(t, " "))
	}
	return strings.Join(texts, " ")
}

func quizPoolTags(pool []core.QuizRef) string {
	var tags []string
	for _, q := range pool {
		tags = append(tags, q.Tags...)
	}
	return strings.Join(tags, " ")
}
