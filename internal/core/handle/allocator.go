package handle

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
)

// ErrExhausted means the 32-bit slot index space is used up. Unlike a bad
// asset this is not recoverable; callers treat it as fatal.
var ErrExhausted = errors.New("handle: slot index space exhausted")

// slotMeta carries the per-index counters. Metas are allocated once and
// never freed, so a *slotMeta stays valid across table growth.
type slotMeta struct {
	gen    atomic.Uint32
	strong atomic.Uint32
	weak   atomic.Uint32
}

// Allocator issues generation-tagged slots and tracks strong/weak counts.
// Retain, Release and Upgrade are safe from any goroutine; Allocate and
// Collect must not race each other and normally run on the owning thread.
type Allocator struct {
	mu    sync.RWMutex
	metas []*slotMeta
	free  []uint32
	next  uint32

	deadMu sync.Mutex
	dead   []uint32
}

func NewAllocator() *Allocator {
	return &Allocator{
		metas: make([]*slotMeta, 0, 1024),
		free:  make([]uint32, 0, 256),
	}
}

// Allocate pops a reclaimed index (generation already bumped) or appends a
// new one. The returned slot starts with strong = 1, weak = 0.
func (a *Allocator) Allocate() (Slot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		m := a.metas[idx]
		m.strong.Store(1)
		return NewSlot(idx, m.gen.Load()), nil
	}
	if a.next == math.MaxUint32 {
		return 0, ErrExhausted
	}
	idx := a.next
	a.next++
	m := &slotMeta{}
	m.gen.Store(1)
	m.strong.Store(1)
	a.metas = append(a.metas, m)
	return NewSlot(idx, 1), nil
}

// Retain increments the strong count. The caller must already own a strong
// reference to the slot; a stale generation is ignored.
func (a *Allocator) Retain(s Slot) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m := a.lookup(s)
	if m == nil {
		return
	}
	m.strong.Add(1)
}

// Release decrements the strong count. The transition to zero marks the
// index collectible; stored data stays in place until the next Collect.
func (a *Allocator) Release(s Slot) {
	a.mu.RLock()
	m := a.lookup(s)
	if m == nil {
		a.mu.RUnlock()
		return
	}
	for {
		cur := m.strong.Load()
		if cur == 0 {
			a.mu.RUnlock()
			return // already dead (double release)
		}
		if m.strong.CompareAndSwap(cur, cur-1) {
			a.mu.RUnlock()
			if cur == 1 {
				a.deadMu.Lock()
				a.dead = append(a.dead, s.Index())
				a.deadMu.Unlock()
			}
			return
		}
	}
}

func (a *Allocator) RetainWeak(s Slot) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if m := a.lookup(s); m != nil {
		m.weak.Add(1)
	}
}

func (a *Allocator) ReleaseWeak(s Slot) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m := a.lookup(s)
	if m == nil {
		return
	}
	for {
		cur := m.weak.Load()
		if cur == 0 {
			return
		}
		if m.weak.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// Upgrade retains the slot only if its generation still matches and the
// strong count is nonzero at this instant. Collect holds the write lock,
// so the slot cannot be reclaimed and reissued mid-upgrade.
func (a *Allocator) Upgrade(s Slot) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m := a.lookup(s)
	if m == nil {
		return false
	}
	for {
		cur := m.strong.Load()
		if cur == 0 {
			return false
		}
		if m.strong.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// Alive reports whether the slot's generation matches and strong > 0.
func (a *Allocator) Alive(s Slot) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m := a.lookup(s)
	return m != nil && m.strong.Load() > 0
}

// Collect reclaims every index whose strong count dropped to zero since the
// last pass: bump the generation, return the index to the free list, and
// hand the old-generation slot to fn so owners can drop stored state.
// Runs on the owning thread.
func (a *Allocator) Collect(fn func(Slot)) int {
	a.deadMu.Lock()
	dead := a.dead
	a.dead = nil
	a.deadMu.Unlock()
	if len(dead) == 0 {
		return 0
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, idx := range dead {
		m := a.metas[idx]
		if m.strong.Load() != 0 {
			continue
		}
		old := m.gen.Load()
		m.gen.Add(1)
		m.weak.Store(0)
		a.free = append(a.free, idx)
		if fn != nil {
			fn(NewSlot(idx, old))
		}
		n++
	}
	return n
}

// Len returns the number of indices ever allocated.
func (a *Allocator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.metas)
}

// InUse counts slots currently holding at least one strong reference.
func (a *Allocator) InUse() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	n := 0
	for _, m := range a.metas {
		if m.strong.Load() > 0 {
			n++
		}
	}
	return n
}

// lookup resolves the meta for s, or nil if the index is out of range or
// the generation is stale. Caller holds a.mu.
func (a *Allocator) lookup(s Slot) *slotMeta {
	idx := s.Index()
	if int(idx) >= len(a.metas) {
		return nil
	}
	m := a.metas[idx]
	if m.gen.Load() != s.Generation() {
		return nil
	}
	return m
}
