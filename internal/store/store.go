package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"lessonrec/internal/core"
	"lessonrec/internal/logger"
)

// Store is the SQLite-backed persistence layer for the catalog, the quiz
// corpus, the interaction event log and per-user learning states. The
// recommendation core only ever reads from it; writes happen through the
// import surfaces.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the database under dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "lessonrec.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	itemsTable := `
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		data TEXT NOT NULL
	);`

	quizzesTable := `
	CREATE TABLE IF NOT EXISTS quizzes (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		data TEXT NOT NULL
	);`

	eventsTable := `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		type TEXT,
		score REAL,
		created_at DATETIME
	);`

	statesTable := `
	CREATE TABLE IF NOT EXISTS learning_states (
		user_id TEXT PRIMARY KEY,
		goals TEXT,
		known_topics TEXT,
		level_hint INTEGER,
		answers TEXT
	);`

	eventsIndex := `CREATE INDEX IF NOT EXISTS idx_events_user_time ON events (user_id, created_at DESC);`

	for _, stmt := range []string{itemsTable, quizzesTable, eventsTable, statesTable, eventsIndex} {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReplaceItems swaps the whole catalog for a new ordered snapshot. Records
// without an identifier are rejected individually and logged; the batch
// continues. Returns the number of stored items.
func (s *Store) ReplaceItems(ctx context.Context, items []core.CatalogItem) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin catalog replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM items"); err != nil {
		return 0, fmt.Errorf("clear catalog: %w", err)
	}

	stored := 0
	for _, item := range items {
		if item.ID == "" {
			logger.Warn("dropping catalog record without identifier", "title", item.Title)
			continue
		}
		data, err := json.Marshal(item)
		if err != nil {
			return 0, fmt.Errorf("marshal item %s: %w", item.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO items (id, position, data) VALUES (?, ?, ?)",
			item.ID, stored, string(data)); err != nil {
			return 0, fmt.Errorf("insert item %s: %w", item.ID, err)
		}
		stored++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit catalog replace: %w", err)
	}
	return stored, nil
}

// ListItems returns the catalog in its stored order.
func (s *Store) ListItems(ctx context.Context) ([]core.CatalogItem, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT data FROM items ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	var items []core.CatalogItem
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var item core.CatalogItem
		if err := json.Unmarshal([]byte(data), &item); err != nil {
			return nil, fmt.Errorf("unmarshal item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ReplaceQuizzes swaps the quiz corpus. Records missing an identifier or an
// owning item are rejected individually; the batch continues.
func (s *Store) ReplaceQuizzes(ctx context.Context, quizzes []core.Quiz) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin quiz replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM quizzes"); err != nil {
		return 0, fmt.Errorf("clear quizzes: %w", err)
	}

	stored := 0
	for _, q := range quizzes {
		if q.ID == "" || q.ItemID == "" {
			logger.Warn("dropping quiz record without identifiers", "id", q.ID, "item_id", q.ItemID)
			continue
		}
		data, err := json.Marshal(q)
		if err != nil {
			return 0, fmt.Errorf("marshal quiz %s: %w", q.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO quizzes (id, item_id, position, data) VALUES (?, ?, ?, ?)",
			q.ID, q.ItemID, stored, string(data)); err != nil {
			return 0, fmt.Errorf("insert quiz %s: %w", q.ID, err)
		}
		stored++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit quiz replace: %w", err)
	}
	return stored, nil
}

// ListQuizzes returns the quiz corpus in its stored order.
func (s *Store) ListQuizzes(ctx context.Context) ([]core.Quiz, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT data FROM quizzes ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []core.Quiz
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var q core.Quiz
		if err := json.Unmarshal([]byte(data), &q); err != nil {
			return nil, fmt.Errorf("unmarshal quiz: %w", err)
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

// AddInteractions appends events to the log, assigning identifiers and
// timestamps where missing. Events without user or item are rejected
// individually.
func (s *Store) AddInteractions(ctx context.Context, events []core.Interaction) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin event insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stored := 0
	for _, ev := range events {
		if ev.UserID == "" || ev.ItemID == "" {
			logger.Warn("dropping event without user or item", "user_id", ev.UserID, "item_id", ev.ItemID)
			continue
		}
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO events (id, user_id, item_id, type, score, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			ev.ID, ev.UserID, ev.ItemID, ev.Type, ev.Score, ev.CreatedAt); err != nil {
			return 0, fmt.Errorf("insert event: %w", err)
		}
		stored++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit event insert: %w", err)
	}
	return stored, nil
}

// ListInteractions returns the full event log, oldest first.
func (s *Store) ListInteractions(ctx context.Context) ([]core.Interaction, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, item_id, type, score, created_at FROM events ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []core.Interaction
	for rows.Next() {
		var ev core.Interaction
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.ItemID, &ev.Type, &ev.Score, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// RecentItemIDs returns the item identifiers of a user's most recent
// interactions, most-recent-first.
func (s *Store) RecentItemIDs(ctx context.Context, userID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT item_id FROM events WHERE user_id = ? ORDER BY created_at DESC LIMIT ?", userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SaveUserState upserts a user's learning state.
func (s *Store) SaveUserState(ctx context.Context, state core.UserState) error {
	goals, _ := json.Marshal(state.Goals)
	known, _ := json.Marshal(state.KnownTopics)
	answers, _ := json.Marshal(state.Answers)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO learning_states (user_id, goals, known_topics, level_hint, answers)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		 goals = excluded.goals, known_topics = excluded.known_topics,
		 level_hint = excluded.level_hint, answers = excluded.answers`,
		state.UserID, string(goals), string(known), state.LevelHint, string(answers))
	if err != nil {
		return fmt.Errorf("save learning state for %s: %w", state.UserID, err)
	}
	return nil
}

// UserState loads a user's learning state; a missing user yields (nil, nil).
func (s *Store) UserState(ctx context.Context, userID string) (*core.UserState, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT goals, known_topics, level_hint, answers FROM learning_states WHERE user_id = ?", userID)

	var goals, known, answers string
	state := &core.UserState{UserID: userID}
	err := row.Scan(&goals, &known, &state.LevelHint, &answers)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load learning state for %s: %w", userID, err)
	}
	_ = json.Unmarshal([]byte(goals), &state.Goals)
	_ = json.Unmarshal([]byte(known), &state.KnownTopics)
	_ = json.Unmarshal([]byte(answers), &state.Answers)
	return state, nil
}
