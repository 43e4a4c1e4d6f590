package watch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/riftforge/assets/internal/source"
)

// entry is one tracked asset: where its bytes come from, the newest
// modification time acted on, and how to resubmit the import.
type entry struct {
	name     string
	src      source.Source
	seen     time.Time
	resubmit func() error
}

// Watcher polls byte sources for newer modification times and triggers
// reimports. Poll runs from the owning thread's tick, so hot reload adds
// no second concurrency domain; an event-driven notifier could layer on
// top by just bumping source timestamps.
type Watcher struct {
	log *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

func NewWatcher(log *zap.Logger) *Watcher {
	return &Watcher{
		log:     log,
		entries: make(map[string]*entry, 32),
	}
}

// Track starts watching name. seen is the modification time already loaded;
// a zero seen adopts the first timestamp the next Poll observes.
func (w *Watcher) Track(name string, src source.Source, seen time.Time, resubmit func() error) {
	w.mu.Lock()
	w.entries[name] = &entry{name: name, src: src, seen: seen, resubmit: resubmit}
	w.mu.Unlock()
}

func (w *Watcher) Forget(name string) {
	w.mu.Lock()
	delete(w.entries, name)
	w.mu.Unlock()
}

func (w *Watcher) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

// Poll checks every tracked entry once and resubmits each whose source
// reports a newer timestamp. A zero or unreadable timestamp never reloads.
// An entry whose resubmission fails keeps its old timestamp and is retried
// on the next poll. Returns the number of reimports triggered.
func (w *Watcher) Poll(ctx context.Context) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := 0
	for _, e := range w.entries {
		mod, err := e.src.Modified(ctx, e.name)
		if err != nil {
			w.log.Debug("modified probe failed", zap.String("asset", e.name), zap.Error(err))
			continue
		}
		if mod.IsZero() {
			continue
		}
		if e.seen.IsZero() {
			e.seen = mod // adopt the baseline, do not reload
			continue
		}
		if !mod.After(e.seen) {
			continue
		}
		if err := e.resubmit(); err != nil {
			w.log.Warn("reimport failed", zap.String("asset", e.name), zap.Error(err))
			continue
		}
		e.seen = mod
		n++
		w.log.Info("asset changed, reimport submitted",
			zap.String("asset", e.name), zap.Time("modified", mod))
	}
	return n
}
