package source

import (
	"context"
	"fmt"
	"time"

	"github.com/riftforge/assets/internal/digest"
	"github.com/riftforge/assets/internal/persist"
)

// BlobStore is the slice of the persistence layer the store source reads
// through. *persist.BlobRepo implements it; tests substitute a fake.
type BlobStore interface {
	Get(ctx context.Context, name string) (*persist.Blob, error)
	Stat(ctx context.Context, name string) (*persist.BlobInfo, error)
}

// Store serves assets from the Postgres blob store. Every read re-checks
// the blake2b digest recorded at publish time; a mismatch is surfaced as a
// load failure rather than handing corrupt bytes to an importer.
type Store struct {
	blobs BlobStore
}

func NewStore(blobs BlobStore) *Store {
	return &Store{blobs: blobs}
}

func (s *Store) Load(ctx context.Context, name string) ([]byte, error) {
	b, err := s.fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	return b.Data, nil
}

func (s *Store) Modified(ctx context.Context, name string) (time.Time, error) {
	cleaned, err := CleanName(name)
	if err != nil {
		return time.Time{}, err
	}
	info, err := s.blobs.Stat(ctx, cleaned)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat blob %q: %w", name, err)
	}
	if info == nil {
		return time.Time{}, fmt.Errorf("asset %q: %w", name, ErrNotFound)
	}
	return info.UpdatedAt, nil
}

// LoadWithInfo reads bytes and metadata in one round trip.
func (s *Store) LoadWithInfo(ctx context.Context, name string) ([]byte, Info, error) {
	b, err := s.fetch(ctx, name)
	if err != nil {
		return nil, Info{}, err
	}
	return b.Data, Info{ModTime: b.UpdatedAt, Size: b.Size}, nil
}

func (s *Store) fetch(ctx context.Context, name string) (*persist.Blob, error) {
	cleaned, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	b, err := s.blobs.Get(ctx, cleaned)
	if err != nil {
		return nil, fmt.Errorf("get blob %q: %w", name, err)
	}
	if b == nil {
		return nil, fmt.Errorf("asset %q: %w", name, ErrNotFound)
	}
	if err := digest.Verify(b.Data, b.Digest); err != nil {
		return nil, fmt.Errorf("blob %q corrupt: %w", name, err)
	}
	return b, nil
}
