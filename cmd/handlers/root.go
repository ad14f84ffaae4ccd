package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lessonrec/internal/config"
)

var cfgFile string

// NewRootCmd creates the lessonrec root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lessonrec",
		Short: "Hybrid lesson and quiz recommender",
		Long: `Lessonrec - Hybrid Recommendation Engine

Ranks learning items and quizzes for a user from a catalog, blending
content similarity, interaction history, stated goals and collaborative
signal, with difficulty ceilings and known-topic exclusion.

Core workflows:
  • Import:   load catalog items, quizzes and interaction events
  • Train:    fit the content and collaborative models offline
  • Serve:    expose recommend endpoints over HTTP
  • Recommend: score a single user from the command line

Examples:
  # Import a catalog and train
  lessonrec import items catalog.jsonl
  lessonrec train

  # Serve recommendations
  lessonrec serve

  # Ad-hoc recommendation
  lessonrec recommend user-42 --k 5 --goals rhythm,chord`,
		Version: "1.0.0",
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .lessonrec.yaml)")

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewTrainCmd())
	rootCmd.AddCommand(NewRecommendCmd())
	rootCmd.AddCommand(NewQuizCmd())
	rootCmd.AddCommand(NewImportCmd())

	cobra.OnInitialize(initConfig)

	return rootCmd
}

// initConfig reads in the config file and environment variables.
func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config: %v\n", err)
	}
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
