package handlers

import (
	"fmt"

	"github.com/spf13/cobra"

	"lessonrec/internal/config"
)

// NewQuizCmd creates the quiz command.
func NewQuizCmd() *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "quiz <item-id>",
		Short: "Print quizzes matched to a catalog item",
		Long: `Print the quizzes most similar to a catalog item, ranked by feature
similarity over shared tags, skills and difficulty. Only quizzes
attached to the item are candidates.`,
		Example: `  # Top quizzes for an item
  lessonrec quiz lesson-open-chords

  # Limit to the best match
  lessonrec quiz lesson-open-chords --k 1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()

			eng, st, err := buildEngine(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			recs, err := eng.RecommendQuiz(args[0], k)
			if err != nil {
				return fmt.Errorf("matching quizzes: %w", err)
			}

			printRecommendations(recs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&k, "k", "k", 0, "number of quizzes (default from config)")

	return cmd
}
