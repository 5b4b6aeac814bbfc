package mapping

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/todosync/pkg/types"
)

// Compile-time interface check.
var _ types.MappingStore = (*SQLiteStore)(nil)

// Schema DDL for the SQLite mapping store.
const (
	createSessions = `CREATE TABLE IF NOT EXISTS sessions (
    session_id TEXT PRIMARY KEY,
    epic_id TEXT NOT NULL
);`

	createTodos = `CREATE TABLE IF NOT EXISTS todos (
    session_id TEXT NOT NULL,
    todo_id TEXT NOT NULL,
    issue_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    PRIMARY KEY (session_id, todo_id)
);`

	createOutcomes = `CREATE TABLE IF NOT EXISTS outcomes (
    session_id TEXT NOT NULL,
    todo_id TEXT NOT NULL,
    outcome TEXT NOT NULL,
    PRIMARY KEY (session_id, todo_id)
);`

	createSyncState = `CREATE TABLE IF NOT EXISTS sync_state (
    key TEXT PRIMARY KEY,
    value INTEGER NOT NULL
);`
)

var schemaStatements = []string{createSessions, createTodos, createOutcomes, createSyncState}

const lastSyncKey = "last_sync"

// SQLiteStore keeps the mapping in a SQLite database. Each Save rewrites
// every table inside one transaction, so the document is still replaced as
// a whole. The database is opened per call and closed afterwards.
type SQLiteStore struct {
	path string
	now  func() time.Time
}

// NewSQLiteStore returns a store for the database at path.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path, now: time.Now}
}

// Path returns the database location.
func (s *SQLiteStore) Path() string {
	return s.path
}

// open opens the database and ensures the schema exists.
func (s *SQLiteStore) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, err
	}
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// Load reads all tables into a Mapping. A missing database yields an empty
// mapping; an unreadable one yields an empty mapping and an error wrapping
// types.ErrMappingCorrupt.
func (s *SQLiteStore) Load(ctx context.Context) (*types.Mapping, error) {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return types.NewMapping(), nil
	}

	db, err := s.open(ctx)
	if err != nil {
		return types.NewMapping(), fmt.Errorf("%w: opening %s: %v", types.ErrMappingCorrupt, s.path, err)
	}
	defer db.Close()

	m, err := loadTables(ctx, db)
	if err != nil {
		return types.NewMapping(), fmt.Errorf("%w: reading %s: %v", types.ErrMappingCorrupt, s.path, err)
	}
	return m, nil
}

func loadTables(ctx context.Context, db *sql.DB) (*types.Mapping, error) {
	m := types.NewMapping()

	rows, err := db.QueryContext(ctx, "SELECT session_id, epic_id FROM sessions")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var sessionID, epicID string
		if err := rows.Scan(&sessionID, &epicID); err != nil {
			rows.Close()
			return nil, err
		}
		m.Sessions[sessionID] = epicID
		m.Todos[sessionID] = &types.Links{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.QueryContext(ctx, "SELECT session_id, todo_id, issue_id FROM todos ORDER BY session_id, seq")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var sessionID, todoID, issueID string
		if err := rows.Scan(&sessionID, &todoID, &issueID); err != nil {
			rows.Close()
			return nil, err
		}
		m.Link(sessionID, todoID, issueID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.QueryContext(ctx, "SELECT session_id, todo_id, outcome FROM outcomes")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var sessionID, todoID, outcome string
		if err := rows.Scan(&sessionID, &todoID, &outcome); err != nil {
			rows.Close()
			return nil, err
		}
		m.SetOutcome(sessionID, todoID, outcome)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var lastSync sql.NullInt64
	err = db.QueryRowContext(ctx, "SELECT value FROM sync_state WHERE key = ?", lastSyncKey).Scan(&lastSync)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	m.LastSync = lastSync.Int64
	return m, nil
}

// Save refreshes LastSync and replaces all rows in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, m *types.Mapping) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating mapping directory: %w", err)
	}
	_, statErr := os.Stat(s.path)
	firstWrite := errors.Is(statErr, os.ErrNotExist)

	db, err := s.open(ctx)
	if err != nil && !firstWrite {
		// Load treated the unreadable database as empty; keep it aside.
		if renameErr := os.Rename(s.path, s.path+".corrupt"); renameErr == nil {
			db, err = s.open(ctx)
		}
	}
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer db.Close()

	m.Touch(s.now())
	if err := saveTables(ctx, db, m); err != nil {
		return fmt.Errorf("saving mapping: %w", err)
	}

	if firstWrite {
		if err := EnsureIgnored(dir, filepath.Base(s.path)); err != nil {
			return fmt.Errorf("updating .gitignore: %w", err)
		}
	}
	return nil
}

func saveTables(ctx context.Context, db *sql.DB, m *types.Mapping) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"sessions", "todos", "outcomes"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}

	for _, sessionID := range m.SessionIDs() {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO sessions (session_id, epic_id) VALUES (?, ?)",
			sessionID, m.Sessions[sessionID]); err != nil {
			return err
		}
	}
	for sessionID := range m.Todos {
		for seq, link := range m.Links(sessionID) {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO todos (session_id, todo_id, issue_id, seq) VALUES (?, ?, ?, ?)",
				sessionID, link.TodoID, link.IssueID, seq); err != nil {
				return err
			}
		}
	}
	for sessionID, outcomes := range m.Outcomes {
		for todoID, outcome := range outcomes {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO outcomes (session_id, todo_id, outcome) VALUES (?, ?, ?)",
				sessionID, todoID, outcome); err != nil {
				return err
			}
		}
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO sync_state (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		lastSyncKey, m.LastSync); err != nil {
		return err
	}

	return tx.Commit()
}
