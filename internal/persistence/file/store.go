// Package file stores the document as a single pretty-printed JSON file.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/liamchampton/write-my-performance-review/internal/domain"
	"github.com/liamchampton/write-my-performance-review/internal/observability"
	"github.com/liamchampton/write-my-performance-review/internal/persistence"
)

// Store reads and rewrites one JSON document on the given filesystem.
type Store struct {
	fs   afero.Fs
	path string
}

// NewStore constructs a Store for path on fs.
func NewStore(fs afero.Fs, path string) *Store {
	return &Store{fs: fs, path: path}
}

// Load implements domain.DocumentStore. A missing file is created with the
// default document before it is returned.
func (s *Store) Load(ctx context.Context) (*domain.Document, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			doc := domain.NewDocument()
			if err := s.Save(ctx, doc); err != nil {
				return nil, err
			}
			return doc, nil
		}
		return nil, &domain.StorageError{Op: "load", Err: err}
	}

	doc, err := persistence.Decode(data)
	if err != nil {
		return nil, &domain.StorageError{Op: "load", Err: fmt.Errorf("%s: %w", s.path, err)}
	}
	return doc, nil
}

// Save implements domain.DocumentStore. The document is written to a temporary
// file next to the target and renamed over it.
func (s *Store) Save(_ context.Context, doc *domain.Document) error {
	data, err := persistence.Encode(doc)
	if err != nil {
		return &domain.StorageError{Op: "encode", Err: err}
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return &domain.StorageError{Op: "save", Err: err}
	}

	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(s.path)+"-*")
	if err != nil {
		return &domain.StorageError{Op: "save", Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return &domain.StorageError{Op: "save", Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return &domain.StorageError{Op: "save", Err: err}
	}
	if err := s.fs.Chmod(tmpName, 0o644); err != nil {
		_ = s.fs.Remove(tmpName)
		return &domain.StorageError{Op: "save", Err: err}
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		_ = s.fs.Remove(tmpName)
		return &domain.StorageError{Op: "save", Err: err}
	}

	observability.RecordDocumentSaved(doc)
	return nil
}
