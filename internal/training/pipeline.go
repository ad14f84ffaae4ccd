package training

import (
	"context"
	"fmt"
	"time"

	"lessonrec/internal/artifacts"
	"lessonrec/internal/collab"
	"lessonrec/internal/config"
	"lessonrec/internal/content"
	"lessonrec/internal/core"
	"lessonrec/internal/features"
	"lessonrec/internal/logger"
	"lessonrec/internal/vsm"
)

// CorpusSource supplies the full corpus snapshot a training run operates
// on: the ordered catalog, the quiz corpus and the interaction log.
type CorpusSource interface {
	ListItems(ctx context.Context) ([]core.CatalogItem, error)
	ListQuizzes(ctx context.Context) ([]core.Quiz, error)
	ListInteractions(ctx context.Context) ([]core.Interaction, error)
}

// Options carries the training parameters, typically taken from config.
type Options struct {
	UseReduction   bool
	MaxComponents  int
	Factors        int
	Iterations     int
	Regularization float64
}

// FromConfig maps the training config section onto pipeline options.
func FromConfig(cfg config.Training) Options {
	return Options{
		UseReduction:   cfg.UseReduction,
		MaxComponents:  cfg.MaxComponents,
		Factors:        cfg.Factors,
		Iterations:     cfg.Iterations,
		Regularization: cfg.Regularization,
	}
}

// Run executes one full offline training pass over the corpus: vocabulary,
// feature matrices, content model, interaction matrix, popularity and the
// ALS factors. Every fit tolerates an empty corpus and produces well-formed
// empty artifacts. Records without identifiers are dropped individually.
func Run(ctx context.Context, src CorpusSource, opts Options) (*artifacts.Bundle, error) {
	started := time.Now()

	rawItems, err := src.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	items := validItems(rawItems)

	quizzes, err := src.ListQuizzes(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading quizzes: %w", err)
	}
	events, err := src.ListInteractions(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading interactions: %w", err)
	}

	vocab := features.BuildVocabulary(items)
	itemFeats := features.BuildItemMatrix(vocab, items)

	valid := make(map[string]bool, len(items))
	itemIDs := make([]string, 0, len(items))
	for _, item := range items {
		valid[item.ID] = true
		itemIDs = append(itemIDs, item.ID)
	}
	quizFeats := features.BuildQuizMatrix(vocab, quizzes, valid)

	model := vsm.Fit(items, vsm.Options{
		UseReduction:  opts.UseReduction,
		MaxComponents: opts.MaxComponents,
	})

	meta := content.MetaFromItems(items)

	interactions := collab.BuildInteractions(events, itemIDs)
	cm, err := collab.Train(interactions, collab.Options{
		Factors:        opts.Factors,
		Iterations:     opts.Iterations,
		Regularization: opts.Regularization,
	})
	if err != nil {
		return nil, fmt.Errorf("training collaborative model: %w", err)
	}
	cm.Popularity = collab.ComputePopularity(events, valid)

	logger.Info("training run complete",
		"items", len(items),
		"quizzes", quizFeats.Len(),
		"users", len(interactions.UserIDs),
		"vocab_dim", vocab.Dim(),
		"terms", model.Vectorizer.Dim(),
		"duration", time.Since(started).String(),
	)

	return &artifacts.Bundle{
		Model:        model,
		Items:        meta,
		Vocab:        vocab,
		ItemFeatures: itemFeats,
		QuizFeatures: quizFeats,
		Collab:       cm,
	}, nil
}

// RunAndSave trains and persists the resulting snapshot into dir.
func RunAndSave(ctx context.Context, src CorpusSource, dir string, opts Options) (*artifacts.Bundle, error) {
	bundle, err := Run(ctx, src, opts)
	if err != nil {
		return nil, err
	}
	if err := artifacts.Save(dir, bundle); err != nil {
		return nil, fmt.Errorf("persisting snapshot: %w", err)
	}
	return bundle, nil
}

// validItems drops records without a stable identifier. The rest of the
// batch proceeds.
func validItems(items []core.CatalogItem) []core.CatalogItem {
	out := items[:0:0]
	for _, item := range items {
		if item.ID == "" {
			logger.Warn("dropping catalog record without identifier", "title", item.Title)
			continue
		}
		out = append(out, item)
	}
	return out
}
