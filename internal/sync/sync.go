// Package sync mirrors an asset directory into the blob store and back.
// The daemon's store-backed entries read what push publishes.
package sync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/riftforge/assets/internal/digest"
	"github.com/riftforge/assets/internal/persist"
	"github.com/riftforge/assets/internal/source"
)

// Store is the slice of the blob repository the sync operations use.
// *persist.BlobRepo implements it; tests substitute an in-memory fake.
type Store interface {
	Get(ctx context.Context, name string) (*persist.Blob, error)
	Stat(ctx context.Context, name string) (*persist.BlobInfo, error)
	Put(ctx context.Context, name string, data []byte) (bool, error)
	Delete(ctx context.Context, name string) (bool, error)
	List(ctx context.Context, prefix string) ([]persist.BlobInfo, error)
}

type Options struct {
	Prefix string // restrict to names with this prefix
	Prune  bool   // push: delete store blobs with no local file
	DryRun bool   // report actions without writing
}

// Result counts what one operation did (or would do, under DryRun).
type Result struct {
	Pushed    int
	Pulled    int
	Unchanged int
	Pruned    int
}

// Push uploads local files whose content digest differs from the stored
// blob. Dotfiles and dot-directories are skipped the way the daemon's dir
// source never serves them.
func Push(ctx context.Context, st Store, root string, opts Options, out io.Writer) (Result, error) {
	var res Result
	local := make(map[string]struct{}, 256)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name, err := source.CleanName(filepath.ToSlash(rel))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if opts.Prefix != "" && !strings.HasPrefix(name, opts.Prefix) {
			return nil
		}
		local[name] = struct{}{}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		info, err := st.Stat(ctx, name)
		if err != nil {
			return err
		}
		if info != nil && digest.Equal(info.Digest, digest.Sum(data)) {
			res.Unchanged++
			return nil
		}
		if opts.DryRun {
			fmt.Fprintf(out, "would push %s (%d bytes)\n", name, len(data))
			res.Pushed++
			return nil
		}
		if _, err := st.Put(ctx, name, data); err != nil {
			return fmt.Errorf("put %s: %w", name, err)
		}
		fmt.Fprintf(out, "pushed %s (%d bytes)\n", name, len(data))
		res.Pushed++
		return nil
	})
	if err != nil {
		return res, err
	}

	if opts.Prune {
		infos, err := st.List(ctx, opts.Prefix)
		if err != nil {
			return res, err
		}
		for _, info := range infos {
			if _, ok := local[info.Name]; ok {
				continue
			}
			if opts.DryRun {
				fmt.Fprintf(out, "would prune %s\n", info.Name)
				res.Pruned++
				continue
			}
			if _, err := st.Delete(ctx, info.Name); err != nil {
				return res, fmt.Errorf("delete %s: %w", info.Name, err)
			}
			fmt.Fprintf(out, "pruned %s\n", info.Name)
			res.Pruned++
		}
	}
	return res, nil
}

// Pull downloads blobs whose digest differs from the local file, writing
// atomically so the daemon's watcher never observes a half-written asset.
// Every blob is digest-verified before it touches disk.
func Pull(ctx context.Context, st Store, root string, opts Options, out io.Writer) (Result, error) {
	var res Result

	infos, err := st.List(ctx, opts.Prefix)
	if err != nil {
		return res, err
	}
	for _, info := range infos {
		b, err := st.Get(ctx, info.Name)
		if err != nil {
			return res, err
		}
		if b == nil {
			continue // deleted between List and Get
		}
		if err := digest.Verify(b.Data, b.Digest); err != nil {
			return res, fmt.Errorf("blob %s: %w", b.Name, err)
		}
		// Never let a store row write outside the root.
		name, err := source.CleanName(b.Name)
		if err != nil {
			return res, fmt.Errorf("blob %s: %w", b.Name, err)
		}

		path := filepath.Join(root, filepath.FromSlash(name))
		if cur, err := os.ReadFile(path); err == nil && digest.Equal(digest.Sum(cur), b.Digest) {
			res.Unchanged++
			continue
		}
		if opts.DryRun {
			fmt.Fprintf(out, "would pull %s (%d bytes)\n", name, b.Size)
			res.Pulled++
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return res, err
		}
		if err := atomic.WriteFile(path, bytes.NewReader(b.Data)); err != nil {
			return res, fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(out, "pulled %s (%d bytes)\n", name, b.Size)
		res.Pulled++
	}
	return res, nil
}
