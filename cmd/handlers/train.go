package handlers

import (
	"fmt"

	"github.com/spf13/cobra"

	"lessonrec/internal/config"
	"lessonrec/internal/store"
	"lessonrec/internal/training"
)

// NewTrainCmd creates the train command.
func NewTrainCmd() *cobra.Command {
	var (
		factors    int
		iterations int
		reg        float64
		noReduce   bool
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the recommendation models from the stored corpus",
		Long: `Run one full offline training pass over the catalog, quizzes and
interaction events in the store, then persist the resulting snapshot
to the model store directory. A running server picks the new snapshot
up on its next /train call or restart.`,
		Example: `  # Train with configured parameters
  lessonrec train

  # Train with a larger factor model
  lessonrec train --factors 128 --iterations 30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()

			st, err := store.NewStore(cfg.StorePath())
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer st.Close()

			opts := training.FromConfig(cfg.Training)
			if factors > 0 {
				opts.Factors = factors
			}
			if iterations > 0 {
				opts.Iterations = iterations
			}
			if reg > 0 {
				opts.Regularization = reg
			}
			if noReduce {
				opts.UseReduction = false
			}

			bundle, err := training.RunAndSave(cmd.Context(), st, cfg.SnapshotDir(), opts)
			if err != nil {
				return fmt.Errorf("training: %w", err)
			}

			fmt.Printf("Trained snapshot saved to %s\n", cfg.SnapshotDir())
			fmt.Printf("  items:   %d\n", len(bundle.Items))
			fmt.Printf("  terms:   %d\n", bundle.Model.Vectorizer.Dim())
			fmt.Printf("  users:   %d\n", len(bundle.Collab.UserIDs))
			return nil
		},
	}

	cmd.Flags().IntVar(&factors, "factors", 0, "latent factor count (overrides config)")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "ALS iteration count (overrides config)")
	cmd.Flags().Float64Var(&reg, "reg", 0, "ALS regularization (overrides config)")
	cmd.Flags().BoolVar(&noReduce, "no-reduce", false, "skip dimensionality reduction of the content model")

	return cmd
}
