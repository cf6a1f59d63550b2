package catalog

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/glorpus-work/apkstash/pkg/errutils"
	"github.com/glorpus-work/apkstash/pkg/model"
	"github.com/mholt/archives"
)

// Store persists catalog rows keyed by file URI.
type Store interface {
	// List returns every row ordered by file name.
	List(ctx context.Context) ([]model.ArchiveFile, error)
	// Get returns the row for uri or an error wrapping errutils.ErrNotFound.
	Get(ctx context.Context, uri string) (model.ArchiveFile, error)
	// Apply deletes then inserts in one transaction. Either every change is
	// visible afterwards or none is.
	Apply(ctx context.Context, inserts []model.ArchiveFile, deletes []string) error
	Upsert(ctx context.Context, files ...model.ArchiveFile) error
	Delete(ctx context.Context, uris ...string) error
}

// MetaResolver reads owning-app metadata from an open archive.
type MetaResolver interface {
	Resolve(ctx context.Context, f archives.ReaderAtSeeker) (model.ApkMeta, error)
}

// MemoryStore is a Store held in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]model.ArchiveFile

	// FailDelete, when set, is consulted for every delete inside Apply and
	// Delete; a non-nil result aborts the whole call.
	FailDelete func(uri string) error
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]model.ArchiveFile)}
}

// List returns every row ordered by file name, then URI.
func (s *MemoryStore) List(ctx context.Context) ([]model.ArchiveFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, errutils.Classify(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ArchiveFile, 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, row)
	}
	SortByName(out)
	return out, nil
}

// Get returns the row for uri.
func (s *MemoryStore) Get(_ context.Context, uri string) (model.ArchiveFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[uri]
	if !ok {
		return model.ArchiveFile{}, errutils.ErrNotFoundWithName("archive", uri)
	}
	return row, nil
}

// Apply stages the changes on a copy and swaps it in only when every change
// succeeded.
func (s *MemoryStore) Apply(ctx context.Context, inserts []model.ArchiveFile, deletes []string) error {
	if err := ctx.Err(); err != nil {
		return errutils.Classify(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[string]model.ArchiveFile, len(s.rows)+len(inserts))
	for k, v := range s.rows {
		staged[k] = v
	}
	for _, uri := range deletes {
		if s.FailDelete != nil {
			if err := s.FailDelete(uri); err != nil {
				return fmt.Errorf("failed to delete %s: %w", uri, err)
			}
		}
		delete(staged, uri)
	}
	for _, row := range inserts {
		if _, exists := staged[row.FileURI]; exists {
			return fmt.Errorf("failed to insert %s: %w", row.FileURI, errutils.ErrAlreadyExists)
		}
		staged[row.FileURI] = row
	}
	s.rows = staged
	return nil
}

// Upsert inserts or replaces rows.
func (s *MemoryStore) Upsert(ctx context.Context, files ...model.ArchiveFile) error {
	if err := ctx.Err(); err != nil {
		return errutils.Classify(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range files {
		s.rows[f.FileURI] = f
	}
	return nil
}

// Delete removes rows. Unknown URIs are ignored.
func (s *MemoryStore) Delete(ctx context.Context, uris ...string) error {
	return s.Apply(ctx, nil, uris)
}

// SortByName orders rows by file name, breaking ties on URI.
func SortByName(rows []model.ArchiveFile) {
	slices.SortFunc(rows, func(a, b model.ArchiveFile) int {
		if c := cmp.Compare(a.FileName, b.FileName); c != 0 {
			return c
		}
		return cmp.Compare(a.FileURI, b.FileURI)
	})
}
