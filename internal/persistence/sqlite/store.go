// Package sqlite keeps the document as a single row in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/liamchampton/write-my-performance-review/internal/domain"
	"github.com/liamchampton/write-my-performance-review/internal/observability"
	"github.com/liamchampton/write-my-performance-review/internal/persistence"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	name       TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// Store implements domain.DocumentStore on SQLite.
type Store struct {
	db *sql.DB
}

// Open creates the database at path if needed and ensures the schema.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite db path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load implements domain.DocumentStore.
func (s *Store) Load(ctx context.Context) (*domain.Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE name = ?`, persistence.DefaultDocumentName).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		doc := domain.NewDocument()
		if err := s.Save(ctx, doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "load", Err: err}
	}

	doc, err := persistence.Decode([]byte(body))
	if err != nil {
		return nil, &domain.StorageError{Op: "load", Err: err}
	}
	return doc, nil
}

// Save implements domain.DocumentStore.
func (s *Store) Save(ctx context.Context, doc *domain.Document) error {
	body, err := persistence.Encode(doc)
	if err != nil {
		return &domain.StorageError{Op: "encode", Err: err}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		persistence.DefaultDocumentName, string(body), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return &domain.StorageError{Op: "save", Err: err}
	}

	observability.RecordDocumentSaved(doc)
	return nil
}
