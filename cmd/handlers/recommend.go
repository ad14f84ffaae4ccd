package handlers

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lessonrec/internal/config"
	"lessonrec/internal/core"
)

// NewRecommendCmd creates the recommend command.
func NewRecommendCmd() *cobra.Command {
	var (
		k             int
		maxLevel      int
		goals         []string
		collaborative bool
	)

	cmd := &cobra.Command{
		Use:   "recommend <user-id>",
		Short: "Print recommendations for a user",
		Long: `Print content recommendations for a user from the latest trained
snapshot. Goals, level ceiling and known topics are resolved from the
user's stored learning state; flags override the stored values.

With --collaborative the latent-factor model is used instead of the
content model, falling back to popularity for unknown users.`,
		Example: `  # Content recommendations for a user
  lessonrec recommend user-42

  # Override goals and limit results
  lessonrec recommend user-42 --goals chords,rhythm --k 3

  # Collaborative recommendations
  lessonrec recommend user-42 --collaborative`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := args[0]
			cfg := config.Get()

			eng, st, err := buildEngine(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			var recs []core.Recommendation
			if collaborative {
				recs, err = eng.RecommendCollaborative(userID, k)
			} else {
				recs, err = eng.RecommendContent(cmd.Context(), userID, k, maxLevel, goals)
			}
			if err != nil {
				return fmt.Errorf("recommending: %w", err)
			}

			printRecommendations(recs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&k, "k", "k", 0, "number of recommendations (default from config)")
	cmd.Flags().IntVar(&maxLevel, "max-level", 0, "level ceiling (overrides stored learning state)")
	cmd.Flags().StringSliceVar(&goals, "goals", nil, "goal topics (overrides stored learning state)")
	cmd.Flags().BoolVar(&collaborative, "collaborative", false, "use the collaborative model")

	return cmd
}

func printRecommendations(recs []core.Recommendation) {
	if len(recs) == 0 {
		fmt.Println("No recommendations.")
		return
	}
	for i, r := range recs {
		title := r.Title
		if title == "" {
			title = r.ID
		}
		fmt.Printf("%2d. %-40s score=%.3f", i+1, title, r.Score)
		if r.Topic != "" {
			fmt.Printf("  topic=%s", r.Topic)
		}
		if r.Level > 0 {
			fmt.Printf("  level=%d", r.Level)
		}
		if r.ColdStart {
			fmt.Print("  (cold-start)")
		}
		fmt.Println()
		if len(r.Reasons) > 0 {
			fmt.Printf("    %s\n", strings.Join(r.Reasons, ", "))
		}
	}
}
