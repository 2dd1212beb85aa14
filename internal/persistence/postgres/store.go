// Package postgres keeps the document as a single JSONB row in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/liamchampton/write-my-performance-review/internal/domain"
	"github.com/liamchampton/write-my-performance-review/internal/observability"
	"github.com/liamchampton/write-my-performance-review/internal/persistence"
)

const schema = `CREATE TABLE IF NOT EXISTS tracker_documents (
	name       TEXT PRIMARY KEY,
	body       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Store provides Postgres-backed persistence for the tracker document.
type Store struct {
	pool *pgxpool.Pool
	name string
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, name: persistence.DefaultDocumentName}
}

// EnsureSchema creates the documents table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Load implements domain.DocumentStore.
func (s *Store) Load(ctx context.Context) (*domain.Document, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT body FROM tracker_documents WHERE name=$1`, s.name).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			doc := domain.NewDocument()
			if err := s.Save(ctx, doc); err != nil {
				return nil, err
			}
			return doc, nil
		}
		return nil, &domain.StorageError{Op: "load", Err: err}
	}

	doc, err := persistence.Decode(body)
	if err != nil {
		return nil, &domain.StorageError{Op: "load", Err: err}
	}
	return doc, nil
}

// Save implements domain.DocumentStore by upserting the whole document in one transaction.
func (s *Store) Save(ctx context.Context, doc *domain.Document) (err error) {
	body, err := persistence.Encode(doc)
	if err != nil {
		return &domain.StorageError{Op: "encode", Err: err}
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return &domain.StorageError{Op: "save", Err: err}
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const upsert = `INSERT INTO tracker_documents (name, body, updated_at)
        VALUES ($1, $2::jsonb, NOW())
        ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`

	if _, err = tx.Exec(ctx, upsert, s.name, string(body)); err != nil {
		return &domain.StorageError{Op: "save", Err: err}
	}
	if err = tx.Commit(ctx); err != nil {
		return &domain.StorageError{Op: "save", Err: err}
	}

	observability.RecordDocumentSaved(doc)
	return nil
}
