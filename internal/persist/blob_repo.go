package persist

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/riftforge/assets/internal/digest"
)

// Blob is one stored asset: its bytes plus the blake2b digest recorded at
// write time, so readers can detect corruption.
type Blob struct {
	Name      string
	Data      []byte
	Digest    []byte
	Size      int64
	UpdatedAt time.Time
}

// BlobInfo is blob metadata without the payload.
type BlobInfo struct {
	Name      string
	Digest    []byte
	Size      int64
	UpdatedAt time.Time
}

type BlobRepo struct {
	db *DB
}

func NewBlobRepo(db *DB) *BlobRepo {
	return &BlobRepo{db: db}
}

// Get returns a blob by name, or nil if not stored.
func (r *BlobRepo) Get(ctx context.Context, name string) (*Blob, error) {
	b := &Blob{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT name, data, digest, size, updated_at
		 FROM asset_blobs WHERE name = $1`, name,
	).Scan(&b.Name, &b.Data, &b.Digest, &b.Size, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Stat returns blob metadata by name, or nil if not stored.
func (r *BlobRepo) Stat(ctx context.Context, name string) (*BlobInfo, error) {
	info := &BlobInfo{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT name, digest, size, updated_at
		 FROM asset_blobs WHERE name = $1`, name,
	).Scan(&info.Name, &info.Digest, &info.Size, &info.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return info, nil
}

// Put upserts a blob, stamping its digest. updated_at moves only when the
// content actually changed, so reload watchers never see a no-op publish as
// a modification. Returns whether the stored content changed.
func (r *BlobRepo) Put(ctx context.Context, name string, data []byte) (bool, error) {
	d := digest.Sum(data)
	tag, err := r.db.Pool.Exec(ctx,
		`INSERT INTO asset_blobs (name, data, digest, size, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (name) DO UPDATE
		    SET data = EXCLUDED.data, digest = EXCLUDED.digest,
		        size = EXCLUDED.size, updated_at = now()
		  WHERE asset_blobs.digest <> EXCLUDED.digest`,
		name, data, d, int64(len(data)),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes a blob. Returns whether it existed.
func (r *BlobRepo) Delete(ctx context.Context, name string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM asset_blobs WHERE name = $1`, name,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// List returns metadata for every blob under prefix, ordered by name. An
// empty prefix lists everything.
func (r *BlobRepo) List(ctx context.Context, prefix string) ([]BlobInfo, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT name, digest, size, updated_at
		 FROM asset_blobs
		 WHERE starts_with(name, $1)
		 ORDER BY name`, prefix,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []BlobInfo
	for rows.Next() {
		var info BlobInfo
		if err := rows.Scan(&info.Name, &info.Digest, &info.Size, &info.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, info)
	}
	return result, rows.Err()
}
