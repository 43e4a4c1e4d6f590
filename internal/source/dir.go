package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Dir serves assets from a directory tree on disk.
type Dir struct {
	root string
}

func NewDir(root string) *Dir {
	return &Dir{root: root}
}

func (d *Dir) Root() string { return d.root }

func (d *Dir) Load(ctx context.Context, name string) ([]byte, error) {
	p, err := d.resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("asset %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("read asset %q: %w", name, err)
	}
	return data, nil
}

func (d *Dir) Modified(ctx context.Context, name string) (time.Time, error) {
	p, err := d.resolve(ctx, name)
	if err != nil {
		return time.Time{}, err
	}
	fi, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, fmt.Errorf("asset %q: %w", name, ErrNotFound)
		}
		return time.Time{}, fmt.Errorf("stat asset %q: %w", name, err)
	}
	return fi.ModTime(), nil
}

func (d *Dir) LoadWithInfo(ctx context.Context, name string) ([]byte, Info, error) {
	mod, err := d.Modified(ctx, name)
	if err != nil {
		return nil, Info{}, err
	}
	data, err := d.Load(ctx, name)
	if err != nil {
		return nil, Info{}, err
	}
	return data, Info{ModTime: mod, Size: int64(len(data))}, nil
}

func (d *Dir) resolve(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleaned, err := CleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(d.root, filepath.FromSlash(cleaned)), nil
}
