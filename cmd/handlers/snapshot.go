package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"lessonrec/internal/artifacts"
	"lessonrec/internal/config"
	"lessonrec/internal/content"
	"lessonrec/internal/engine"
	"lessonrec/internal/logger"
	"lessonrec/internal/store"
)

// buildEngine opens the store and an engine pre-loaded with the persisted
// snapshot. When no snapshot has been trained yet, a metadata-only snapshot
// is installed so every recommend path degrades to its cold-start fallback
// instead of failing.
func buildEngine(ctx context.Context, cfg *config.Config) (*engine.Engine, *store.Store, error) {
	st, err := store.NewStore(cfg.StorePath())
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}

	eng := engine.New(st, cfg.Recommend)

	bundle, err := artifacts.Load(cfg.SnapshotDir())
	switch {
	case err == nil:
		eng.Swap(engine.NewSnapshot(
			bundle.Model, bundle.Items, bundle.Collab,
			bundle.ItemFeatures, bundle.QuizFeatures,
			eng.Weights(),
		))
	case errors.Is(err, os.ErrNotExist):
		logger.Warn("no trained snapshot found, serving cold-start only", "dir", cfg.SnapshotDir())
		items, listErr := st.ListItems(ctx)
		if listErr != nil {
			st.Close()
			return nil, nil, fmt.Errorf("loading catalog: %w", listErr)
		}
		eng.Swap(engine.NewSnapshot(nil, content.MetaFromItems(items), nil, nil, nil, eng.Weights()))
	default:
		// Dimension mismatches and corrupt artifacts are fatal; serving
		// against them would produce garbage scores.
		st.Close()
		return nil, nil, fmt.Errorf("loading snapshot: %w", err)
	}

	return eng, st, nil
}
