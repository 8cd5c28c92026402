// Package store persists the full task board snapshot as a single JSON
// document. Every operation works on the whole document: Load returns the
// current snapshot, Save overwrites it completely. Mutations go through
// Update, which serializes the load-modify-save sequence behind a mutex so
// two concurrent mutations can never clobber each other.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	domain "github.com/example/taskboard/domain/task"
)

// ErrStorageUnavailable is returned when the on-disk snapshot exists but
// cannot be read or parsed. Callers must treat this as unavailable storage,
// not as an empty board.
var ErrStorageUnavailable = errors.New("storage unavailable")

// Store provides access to the persisted board document.
type Store struct {
	path string
	mu   sync.Mutex
}

// New creates a store backed by the JSON file at path. The file is created
// lazily on first save.
func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the full current snapshot. A missing file yields a fresh empty
// document; absent optional collections in an existing snapshot are
// backfilled to empty. A malformed snapshot is a fatal read error.
func (s *Store) Load() (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save overwrites the snapshot with doc. There is no merge or partial
// update.
func (s *Store) Save(doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(doc)
}

// Update runs fn against the current snapshot and saves the result. The
// whole load-modify-save sequence holds the store lock, so concurrent
// updates are applied one at a time and no update is lost. If fn returns an
// error the snapshot is left untouched.
func (s *Store) Update(fn func(doc *domain.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.save(doc)
}

func (s *Store) load() (*domain.Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NewDocument(), nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrStorageUnavailable, s.path, err)
	}

	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrStorageUnavailable, s.path, err)
	}

	// Older snapshots may predate some collections.
	if doc.Tasks == nil {
		doc.Tasks = []domain.Task{}
	}
	if doc.Activity == nil {
		doc.Activity = []domain.ActivityEntry{}
	}
	if doc.Archived == nil {
		doc.Archived = []domain.Task{}
	}
	if doc.Comments == nil {
		doc.Comments = []domain.Comment{}
	}
	if doc.TaskDocuments == nil {
		doc.TaskDocuments = map[string][]domain.DocumentLink{}
	}

	return &doc, nil
}

func (s *Store) save(doc *domain.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	// Write-then-rename so a crash mid-write never leaves a truncated
	// snapshot behind.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}
