package loader

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/riftforge/assets/internal/core/asset"
	"github.com/riftforge/assets/internal/core/handle"
	"github.com/riftforge/assets/internal/pipeline"
	"github.com/riftforge/assets/internal/source"
)

// Loader is the public entry point of the subsystem: name + format in,
// strong handle out, import work dispatched in the background. One loader
// serves every asset type; per-type state lives in the storages.
type Loader struct {
	src   source.Source
	exec  pipeline.Executor
	log   *zap.Logger
	cache *PathCache

	mu sync.Mutex // serializes the cache-miss path per loader
}

func New(src source.Source, exec pipeline.Executor, log *zap.Logger) *Loader {
	return &Loader{
		src:   src,
		exec:  exec,
		log:   log,
		cache: NewPathCache(),
	}
}

// Cache exposes the path cache for periodic pruning.
func (l *Loader) Cache() *PathCache { return l.cache }

// Source returns the default byte source.
func (l *Loader) Source() source.Source { return l.src }

// Load returns a handle for the named asset, importing each live key at
// most once. The handle is usable immediately; the asset itself appears
// after the storage integrates the finished import. load never blocks on
// import work, and the only errors it returns are an invalid name and
// slot exhaustion.
func Load[A any](l *Loader, st *asset.Storage[A], name string, f asset.Format) (handle.Handle[A], error) {
	return LoadFrom(l, st, l.src, name, f)
}

// LoadFrom is Load with the byte source overridden, for tests and alternate
// backends.
func LoadFrom[A any](l *Loader, st *asset.Storage[A], src source.Source, name string, f asset.Format) (handle.Handle[A], error) {
	key, err := Key(name, f.Name())
	if err != nil {
		return handle.Handle[A]{}, err
	}

	if h, ok := upgrade[A](l.cache, key); ok {
		return h, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if h, ok := upgrade[A](l.cache, key); ok {
		return h, nil
	}

	tk := l.submit(src, name, f)
	h, err := st.AllocateLoading(name, tk)
	if err != nil {
		return handle.Handle[A]{}, fmt.Errorf("allocate slot for %q: %w", name, err)
	}
	if prev, had := l.cache.Insert(key, h.Downgrade()); had {
		prev.Release()
	}
	l.log.Debug("import submitted", zap.String("key", key), zap.String("storage", st.Name()))
	return h, nil
}

// Reload forces a fresh import for a key whose slot is still alive; holders
// of existing handles see the new content once it integrates. Returns false
// when the slot is gone, in which case a plain Load starts over.
func Reload[A any](l *Loader, st *asset.Storage[A], name string, f asset.Format) (bool, error) {
	return ReloadFrom(l, st, l.src, name, f)
}

func ReloadFrom[A any](l *Loader, st *asset.Storage[A], src source.Source, name string, f asset.Format) (bool, error) {
	key, err := Key(name, f.Name())
	if err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := upgrade[A](l.cache, key)
	if !ok {
		return false, nil
	}
	defer h.Release()

	tk := l.submit(src, name, f)
	if !st.Resubmit(h, name, tk) {
		return false, nil
	}
	l.log.Debug("reimport submitted", zap.String("key", key))
	return true, nil
}

// submit packages one import: source read plus format parse, classified
// into the error taxonomy as it fails.
func (l *Loader) submit(src source.Source, name string, f asset.Format) *pipeline.Ticket {
	return l.exec.Submit(func(ctx context.Context) (any, error) {
		raw, err := src.Load(ctx, name)
		if err != nil {
			return nil, &asset.LoadError{Name: name, Op: asset.OpSource, Err: err}
		}
		data, err := f.Import(name, raw)
		if err != nil {
			return nil, &asset.LoadError{Name: name, Op: asset.OpFormat, Err: err}
		}
		return data, nil
	})
}

// upgrade resolves the typed weak handle cached under key. A stale entry or
// a key occupied by another asset type reads as a miss.
func upgrade[A any](c *PathCache, key string) (handle.Handle[A], bool) {
	ref, ok := c.Lookup(key)
	if !ok {
		return handle.Handle[A]{}, false
	}
	w, ok := ref.(handle.Weak[A])
	if !ok {
		return handle.Handle[A]{}, false
	}
	return w.Upgrade()
}
