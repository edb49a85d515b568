package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tododeck/internal/todo"
)

// Cursor is the pagination position saved alongside the snapshot.
type Cursor struct {
	Page    int
	HasMore bool
}

// Store is a local SQLite cache of the last todo snapshot.
type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("db path is empty")
	}
	if !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	const todos = `
CREATE TABLE IF NOT EXISTS todos (
	id INTEGER PRIMARY KEY,
	user_id INTEGER NOT NULL DEFAULT 0,
	title TEXT NOT NULL,
	completed INTEGER NOT NULL DEFAULT 0,
	position INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`
	const syncState = `
CREATE TABLE IF NOT EXISTS sync_state (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`
	for _, ddl := range []string{todos, syncState} {
		if _, err := s.db.Exec(ddl); err != nil {
			return err
		}
	}
	return nil
}

// LoadTodos returns the cached records in their saved order.
func (s *Store) LoadTodos() ([]todo.Record, error) {
	rows, err := s.db.Query(`SELECT id, user_id, title, completed, created_at, updated_at FROM todos ORDER BY position;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []todo.Record
	for rows.Next() {
		var r todo.Record
		var completed int
		var createdStr, updatedStr string
		if err := rows.Scan(&r.ID, &r.UserID, &r.Title, &completed, &createdStr, &updatedStr); err != nil {
			return nil, err
		}
		r.Completed = completed == 1
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdStr); err != nil {
			return nil, fmt.Errorf("todo %d created_at: %w", r.ID, err)
		}
		if r.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedStr); err != nil {
			return nil, fmt.Errorf("todo %d updated_at: %w", r.ID, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// SaveTodos replaces the cached snapshot with records in one transaction.
func (s *Store) SaveTodos(records []todo.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM todos;`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO todos (id, user_id, title, completed, position, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?);`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range records {
		completed := 0
		if r.Completed {
			completed = 1
		}
		_, err := stmt.Exec(r.ID, r.UserID, r.Title, completed, i,
			r.CreatedAt.UTC().Format(time.RFC3339Nano), r.UpdatedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("insert todo %d: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// LoadCursor returns the saved pagination cursor. ok is false when none was saved.
func (s *Store) LoadCursor() (c Cursor, ok bool, err error) {
	rows, err := s.db.Query(`SELECT key, value FROM sync_state WHERE key IN ('page', 'has_more');`)
	if err != nil {
		return Cursor{}, false, err
	}
	defer rows.Close()

	found := 0
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Cursor{}, false, err
		}
		switch key {
		case "page":
			if c.Page, err = strconv.Atoi(value); err != nil {
				return Cursor{}, false, fmt.Errorf("page: %w", err)
			}
		case "has_more":
			if c.HasMore, err = strconv.ParseBool(value); err != nil {
				return Cursor{}, false, fmt.Errorf("has_more: %w", err)
			}
		}
		found++
	}
	if err := rows.Err(); err != nil {
		return Cursor{}, false, err
	}
	return c, found == 2, nil
}

func (s *Store) SaveCursor(c Cursor) error {
	_, err := s.db.Exec(`INSERT INTO sync_state (key, value) VALUES ('page', ?), ('has_more', ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value;`, strconv.Itoa(c.Page), strconv.FormatBool(c.HasMore))
	return err
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
