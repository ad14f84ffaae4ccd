package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"lessonrec/internal/config"
	"lessonrec/internal/engine"
	"lessonrec/internal/logger"
	"lessonrec/internal/store"
	"lessonrec/internal/training"
)

// Server exposes the recommendation engine over HTTP. Recommend endpoints
// are read-only against the engine's active snapshot; the train endpoint
// runs the offline pipeline and swaps in the new snapshot atomically.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	engine     *engine.Engine
	store      *store.Store
	cfg        config.Config
	log        *slog.Logger
}

// New creates the HTTP server around an engine and its backing store.
func New(eng *engine.Engine, st *store.Store, cfg config.Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		engine: eng,
		store:  st,
		cfg:    cfg,
		log:    logger.Get(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  parseDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: parseDuration(cfg.Server.WriteTimeout, 30*time.Second),
	}
	return s
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return fallback
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	origins := strings.Split(s.cfg.Server.AllowOrigins, ",")
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/questions", s.handleQuestions)
	s.router.Post("/answers", s.handleSaveAnswers)

	s.router.Post("/recommend", s.handleRecommendContent)
	s.router.Get("/recommend/collaborative", s.handleRecommendCollaborative)
	s.router.Get("/recommend/quiz", s.handleRecommendQuiz)

	s.router.Post("/train", s.handleTrain)

	s.router.Route("/catalog", func(r chi.Router) {
		r.Post("/items", s.handleImportItems)
		r.Post("/quizzes", s.handleImportQuizzes)
	})
	s.router.Post("/events", s.handleAddEvents)
}

// Start runs the server until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("starting HTTP server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// reloadSnapshot trains on the current corpus and swaps the engine to the
// fresh snapshot.
func (s *Server) reloadSnapshot(ctx context.Context) error {
	bundle, err := training.RunAndSave(ctx, s.store, s.cfg.SnapshotDir(), training.FromConfig(s.cfg.Training))
	if err != nil {
		return err
	}
	s.engine.Swap(engine.NewSnapshot(
		bundle.Model, bundle.Items, bundle.Collab,
		bundle.ItemFeatures, bundle.QuizFeatures,
		s.engine.Weights(),
	))
	return nil
}
