package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"lessonrec/internal/core"
	"lessonrec/internal/onboarding"
)

// RecommendRequest is the body of POST /recommend.
type RecommendRequest struct {
	UserID   string   `json:"user_id"`
	K        int      `json:"k"`
	MaxLevel int      `json:"max_level"`
	Goals    []string `json:"goals"`
}

// SaveAnswersRequest is the body of POST /answers.
type SaveAnswersRequest struct {
	UserID  string         `json:"user_id"`
	Answers map[string]any `json:"answers"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Active()
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"model_loaded": snap != nil && snap.Content.Loaded(),
	})
}

func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{"questions": onboarding.DefaultQuestions})
}

// handleSaveAnswers stores onboarding answers, deriving the goal tags, the
// level hint, and the known-topic set from them.
func (s *Server) handleSaveAnswers(w http.ResponseWriter, r *http.Request) {
	var req SaveAnswersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		s.respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	state := core.UserState{
		UserID:      req.UserID,
		Goals:       onboarding.AnswersToGoals(req.Answers),
		KnownTopics: onboarding.KnownTopics(req.Answers),
		LevelHint:   onboarding.InferMaxLevel(req.Answers),
		Answers:     req.Answers,
	}
	if err := s.store.SaveUserState(r.Context(), state); err != nil {
		s.log.Error("failed to save learning state", "error", err, "user_id", req.UserID)
		s.respondError(w, http.StatusInternalServerError, "failed to save answers")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"goals":      state.Goals,
		"level_hint": state.LevelHint,
		"known":      state.KnownTopics,
	})
}

func (s *Server) handleRecommendContent(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		s.respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	recs, err := s.engine.RecommendContent(r.Context(), req.UserID, req.K, req.MaxLevel, req.Goals)
	if err != nil {
		s.log.Error("content recommend failed", "error", err, "user_id", req.UserID)
		s.respondError(w, http.StatusInternalServerError, "recommendation failed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"items": recs})
}

func (s *Server) handleRecommendCollaborative(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	k := queryInt(r, "k")

	recs, err := s.engine.RecommendCollaborative(userID, k)
	if err != nil {
		s.log.Error("collaborative recommend failed", "error", err, "user_id", userID)
		s.respondError(w, http.StatusInternalServerError, "recommendation failed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"user_id": userID, "items": recs})
}

func (s *Server) handleRecommendQuiz(w http.ResponseWriter, r *http.Request) {
	topicID := r.URL.Query().Get("item_id")
	if topicID == "" {
		s.respondError(w, http.StatusBadRequest, "item_id is required")
		return
	}
	k := queryInt(r, "k")

	recs, err := s.engine.RecommendQuiz(topicID, k)
	if err != nil {
		s.log.Error("quiz recommend failed", "error", err, "item_id", topicID)
		s.respondError(w, http.StatusInternalServerError, "recommendation failed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"item_id": topicID, "quiz": recs})
}

// handleTrain runs the full offline pipeline against the stored corpus and
// atomically installs the resulting snapshot.
func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	if err := s.reloadSnapshot(r.Context()); err != nil {
		s.log.Error("training run failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "training failed")
		return
	}
	snap := s.engine.Active()
	s.respondJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"version": snap.Version,
		"items":   len(snap.Items),
	})
}

func (s *Server) handleImportItems(w http.ResponseWriter, r *http.Request) {
	var items []core.CatalogItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	stored, err := s.store.ReplaceItems(r.Context(), items)
	if err != nil {
		s.log.Error("catalog import failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "import failed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"ok": true, "count": stored})
}

func (s *Server) handleImportQuizzes(w http.ResponseWriter, r *http.Request) {
	var quizzes []core.Quiz
	if err := json.NewDecoder(r.Body).Decode(&quizzes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	stored, err := s.store.ReplaceQuizzes(r.Context(), quizzes)
	if err != nil {
		s.log.Error("quiz import failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "import failed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"ok": true, "count": stored})
}

func (s *Server) handleAddEvents(w http.ResponseWriter, r *http.Request) {
	var events []core.Interaction
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	stored, err := s.store.AddInteractions(r.Context(), events)
	if err != nil {
		s.log.Error("event import failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "import failed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"ok": true, "count": stored})
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
