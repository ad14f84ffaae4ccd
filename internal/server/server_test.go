package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"lessonrec/internal/config"
	"lessonrec/internal/engine"
	"lessonrec/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	st, err := store.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.Config{}
	cfg.App.DataDir = dir
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Training.SnapshotDir = filepath.Join(dir, "model_store")
	cfg.Training.UseReduction = false
	cfg.Training.Factors = 2
	cfg.Training.Iterations = 3
	cfg.Training.Regularization = 0.01
	cfg.Recommend.DefaultK = 6
	cfg.Server.AllowOrigins = "*"

	eng := engine.New(st, cfg.Recommend)
	return New(eng, st, cfg)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, decoded
}

func seedCatalog(t *testing.T, s *Server) {
	t.Helper()
	items := []map[string]any{
		{"id": "chords-1", "title": "Open Chords", "summary": "open chord shapes", "topic": "chords", "tags": []string{"chord"}, "level": 1, "difficulty": 1},
		{"id": "rhythm-1", "title": "Strumming", "summary": "strumming rhythm patterns", "topic": "rhythm", "tags": []string{"rhythm"}, "level": 1, "difficulty": 2},
		{"id": "scales-1", "title": "Pentatonic", "summary": "pentatonic scale positions", "topic": "scales", "tags": []string{"scale"}, "level": 3, "difficulty": 3},
	}
	if rec, _ := doJSON(t, s, http.MethodPost, "/catalog/items", items); rec.Code != http.StatusOK {
		t.Fatalf("catalog import failed: %d %s", rec.Code, rec.Body.String())
	}

	quizzes := []map[string]any{
		{"id": "q1", "item_id": "chords-1", "tags": []string{"chord"}, "difficulty": 1},
	}
	if rec, _ := doJSON(t, s, http.MethodPost, "/catalog/quizzes", quizzes); rec.Code != http.StatusOK {
		t.Fatalf("quiz import failed: %d", rec.Code)
	}

	events := []map[string]any{
		{"user_id": "alice", "item_id": "chords-1", "type": "completed"},
		{"user_id": "bob", "item_id": "rhythm-1", "type": "viewed"},
	}
	if rec, _ := doJSON(t, s, http.MethodPost, "/events", events); rec.Code != http.StatusOK {
		t.Fatalf("event import failed: %d", rec.Code)
	}
}

func trainOnce(t *testing.T, s *Server) {
	t.Helper()
	rec, body := doJSON(t, s, http.MethodPost, "/train", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("train failed: %d %s", rec.Code, rec.Body.String())
	}
	if body["ok"] != true {
		t.Fatalf("train response: %v", body)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec, body := doJSON(t, s, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status %d", rec.Code)
	}
	if body["status"] != "ok" || body["model_loaded"] != false {
		t.Errorf("untrained health = %v", body)
	}

	seedCatalog(t, s)
	trainOnce(t, s)

	_, body = doJSON(t, s, http.MethodGet, "/health", nil)
	if body["model_loaded"] != true {
		t.Errorf("trained health = %v", body)
	}
}

func TestQuestions(t *testing.T) {
	s := newTestServer(t)
	rec, body := doJSON(t, s, http.MethodGet, "/questions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("questions status %d", rec.Code)
	}
	questions, ok := body["questions"].([]any)
	if !ok || len(questions) == 0 {
		t.Errorf("questions payload = %v", body)
	}
}

func TestSaveAnswers(t *testing.T) {
	s := newTestServer(t)

	rec, body := doJSON(t, s, http.MethodPost, "/answers", map[string]any{
		"user_id": "alice",
		"answers": map[string]any{
			"aim":   "strum_sing",
			"exp":   "some_basics",
			"basic": []string{"open_chords", "tuning", "metronome"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("answers status %d: %s", rec.Code, rec.Body.String())
	}
	if body["ok"] != true {
		t.Errorf("answers response = %v", body)
	}
	if lh, _ := body["level_hint"].(float64); lh != 2 {
		t.Errorf("level_hint = %v, want 2", body["level_hint"])
	}
	goals, _ := body["goals"].([]any)
	if len(goals) == 0 || goals[0] != "rhythm" {
		t.Errorf("goals = %v", goals)
	}

	rec, _ = doJSON(t, s, http.MethodPost, "/answers", map[string]any{"answers": map[string]any{}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing user_id should be rejected, got %d", rec.Code)
	}
}

func TestRecommendContentEndpoint(t *testing.T) {
	s := newTestServer(t)
	seedCatalog(t, s)
	trainOnce(t, s)

	rec, body := doJSON(t, s, http.MethodPost, "/recommend", map[string]any{
		"user_id":   "stranger",
		"k":         2,
		"max_level": 1,
		"goals":     []string{"rhythm"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("recommend status %d: %s", rec.Code, rec.Body.String())
	}
	items, _ := body["items"].([]any)
	if len(items) == 0 || len(items) > 2 {
		t.Fatalf("items = %v", items)
	}
	top, _ := items[0].(map[string]any)
	if top["id"] != "rhythm-1" {
		t.Errorf("top item = %v, want rhythm-1", top["id"])
	}
	for _, it := range items {
		m, _ := it.(map[string]any)
		if lvl, _ := m["level"].(float64); lvl > 1 {
			t.Errorf("item %v breaks the level ceiling", m["id"])
		}
	}

	rec, _ = doJSON(t, s, http.MethodPost, "/recommend", map[string]any{"k": 2})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing user_id should be rejected, got %d", rec.Code)
	}
}

func TestRecommendCollaborativeEndpoint(t *testing.T) {
	s := newTestServer(t)
	seedCatalog(t, s)
	trainOnce(t, s)

	rec, body := doJSON(t, s, http.MethodGet, "/recommend/collaborative?user_id=alice&k=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("collaborative status %d: %s", rec.Code, rec.Body.String())
	}
	items, _ := body["items"].([]any)
	if len(items) == 0 {
		t.Error("collaborative response has no items")
	}

	rec, _ = doJSON(t, s, http.MethodGet, "/recommend/collaborative", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing user_id should be rejected, got %d", rec.Code)
	}
}

func TestRecommendQuizEndpoint(t *testing.T) {
	s := newTestServer(t)
	seedCatalog(t, s)
	trainOnce(t, s)

	rec, body := doJSON(t, s, http.MethodGet, "/recommend/quiz?item_id=chords-1&k=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("quiz status %d: %s", rec.Code, rec.Body.String())
	}
	quiz, _ := body["quiz"].([]any)
	if len(quiz) != 1 {
		t.Fatalf("quiz = %v, want the single linked quiz", quiz)
	}
	top, _ := quiz[0].(map[string]any)
	if top["id"] != "q1" {
		t.Errorf("quiz id = %v", top["id"])
	}

	// A topic without quizzes is an empty list, not an error.
	rec, body = doJSON(t, s, http.MethodGet, "/recommend/quiz?item_id=rhythm-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("empty quiz status %d", rec.Code)
	}
	if quiz, _ := body["quiz"].([]any); len(quiz) != 0 {
		t.Errorf("quiz = %v, want empty", quiz)
	}

	rec, _ = doJSON(t, s, http.MethodGet, "/recommend/quiz", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing item_id should be rejected, got %d", rec.Code)
	}
}

func TestRecommendBeforeTraining(t *testing.T) {
	s := newTestServer(t)
	seedCatalog(t, s)

	rec, body := doJSON(t, s, http.MethodPost, "/recommend", map[string]any{"user_id": "anyone", "k": 3})
	if rec.Code != http.StatusOK {
		t.Fatalf("recommend before training should still answer, got %d", rec.Code)
	}
	if items, ok := body["items"].([]any); !ok || len(items) != 0 {
		t.Errorf("no snapshot means empty items, got %v", body["items"])
	}
}

func TestImportValidation(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/catalog/items", bytes.NewBufferString("not json"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body should be rejected, got %d", rec.Code)
	}

	// Records missing identifiers are dropped individually, not fatally.
	r2, body := doJSON(t, s, http.MethodPost, "/catalog/items", []map[string]any{
		{"title": "no id"},
		{"id": "ok"},
	})
	if r2.Code != http.StatusOK {
		t.Fatalf("partial import should succeed, got %d", r2.Code)
	}
	if count, _ := body["count"].(float64); count != 1 {
		t.Errorf("count = %v, want 1", body["count"])
	}
}
