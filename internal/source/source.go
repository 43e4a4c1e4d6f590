package source

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

var (
	// ErrNotFound means the source has no entry under the given name.
	ErrNotFound = errors.New("source: not found")
	// ErrInvalidName rejects names that are absolute, escape the root, or
	// use host path separators.
	ErrInvalidName = errors.New("source: invalid name")
)

// Info describes one entry at read time. ModTime is comparison-only; it is
// never interpreted as wall-clock truth across different sources.
type Info struct {
	ModTime time.Time
	Size    int64
}

// Source provides raw asset bytes by logical name. Names are forward-slash
// relative paths regardless of host conventions. Load returns, best effort,
// the bytes that existed when Modified was last queried; reload detection
// tolerates the race (worst case is one extra reimport).
type Source interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Modified(ctx context.Context, name string) (time.Time, error)
	LoadWithInfo(ctx context.Context, name string) ([]byte, Info, error)
}

// CleanName canonicalizes a logical name: forward slashes only, relative,
// no escaping the root.
func CleanName(name string) (string, error) {
	if name == "" || strings.ContainsRune(name, '\\') {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == ".." ||
		strings.HasPrefix(cleaned, "../") || strings.HasPrefix(cleaned, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return cleaned, nil
}
