// Package store provides the SQLite session storage layer.
//
// A session is one comparison run: the query the user typed and the raw
// stories fetched for it. Only fetched source data is stored; computed
// artifacts (projections, clusters, summaries, concept graphs) are held in
// process caches and recomputed on demand. The default DSN is ":memory:",
// so sessions live only as long as the process unless a file path is
// configured.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abpatramsft/hackernews-compare-tool/internal/hn"
)

// DefaultDBPath keeps everything in memory unless overridden.
const DefaultDBPath = ":memory:"

// Session records one fetch of stories for a query.
type Session struct {
	ID        string
	Query     string
	CreatedAt time.Time
}

// Store persists sessions and their stories.
type Store interface {
	SaveSession(ctx context.Context, s Session, stories []hn.Story) error
	GetSession(ctx context.Context, id string) (*Session, error)
	GetStories(ctx context.Context, sessionID string) ([]hn.Story, error)
	ListSessions(ctx context.Context, limit int) ([]Session, error)
	Close() error
}

// SQLiteStore implements Store on SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at dbPath. Pass ":memory:" for
// an in-process database.
func NewStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// An in-memory DSN gives each connection its own database; a single
	// connection keeps all queries on the same one.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS stories (
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	story_id TEXT NOT NULL,
	title TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	hn_url TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL DEFAULT '',
	score INTEGER NOT NULL DEFAULT 0,
	author TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP,
	comments_count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (session_id, position)
);

CREATE INDEX IF NOT EXISTS idx_stories_session ON stories(session_id);
`
	_, err := s.db.Exec(schema)
	return err
}

// SaveSession stores the session row and its stories atomically. Saving an
// existing session ID replaces its stories.
func (s *SQLiteStore) SaveSession(ctx context.Context, sess Session, stories []hn.Story) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, query, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET query=excluded.query, created_at=excluded.created_at`,
		sess.ID, sess.Query, sess.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM stories WHERE session_id = ?`, sess.ID); err != nil {
		return fmt.Errorf("clearing stories: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO stories (session_id, position, story_id, title, url, hn_url, body, score, author, created_at, comments_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, st := range stories {
		if _, err := stmt.ExecContext(ctx,
			sess.ID, i, st.ID, st.Title, st.URL, st.HNURL, st.Text,
			st.Score, st.Author, st.CreatedAt.UTC(), st.CommentsCount); err != nil {
			return fmt.Errorf("inserting story %s: %w", st.ID, err)
		}
	}
	return tx.Commit()
}

// GetSession returns the session, or nil when the ID is unknown.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, query, created_at FROM sessions WHERE id = ?`, id)
	var sess Session
	if err := row.Scan(&sess.ID, &sess.Query, &sess.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	return &sess, nil
}

// GetStories returns the session's stories in fetch order. A known session
// with no stories yields an empty slice; an unknown session also yields an
// empty slice (callers distinguish via GetSession).
func (s *SQLiteStore) GetStories(ctx context.Context, sessionID string) ([]hn.Story, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT story_id, title, url, hn_url, body, score, author, created_at, comments_count
		 FROM stories WHERE session_id = ? ORDER BY position`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying stories: %w", err)
	}
	defer rows.Close()

	var stories []hn.Story
	for rows.Next() {
		var st hn.Story
		if err := rows.Scan(&st.ID, &st.Title, &st.URL, &st.HNURL, &st.Text,
			&st.Score, &st.Author, &st.CreatedAt, &st.CommentsCount); err != nil {
			return nil, fmt.Errorf("scanning story: %w", err)
		}
		stories = append(stories, st)
	}
	return stories, rows.Err()
}

// ListSessions returns the most recent sessions, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, created_at FROM sessions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Query, &sess.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
