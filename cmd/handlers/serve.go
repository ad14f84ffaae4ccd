package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lessonrec/internal/config"
	"lessonrec/internal/logger"
	"lessonrec/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the recommendation HTTP server",
		Long: `Start the HTTP server exposing recommendation, onboarding, catalog,
and training endpoints.

The server loads the latest trained snapshot from the model store on
startup. When no snapshot exists yet, requests are answered from the
cold-start fallbacks until a training run completes.`,
		Example: `  # Start on the configured port (default 8085)
  lessonrec serve

  # Start on a specific port
  lessonrec serve --port 9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			if port > 0 {
				cfg.Server.Port = port
			}

			eng, st, err := buildEngine(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			srv := server.New(eng, st, *cfg)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("server starting", "port", cfg.Server.Port)
				errCh <- srv.Start()
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return fmt.Errorf("server error: %w", err)
			case sig := <-quit:
				logger.Info("shutting down", "signal", sig.String())
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")

	return cmd
}
