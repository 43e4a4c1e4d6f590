package asset

import (
	"sync"

	"github.com/riftforge/assets/internal/core/handle"
	"github.com/riftforge/assets/internal/pipeline"
)

type phase uint8

const (
	phaseLoading phase = iota
	phaseLoaded
	phaseFailed
)

// slotState is the tagged per-slot state: Loading (ticket outstanding),
// Loaded (asset set), or Failed (err set). Exactly one applies at a time.
type slotState[A any] struct {
	phase phase
	asset A
	err   error
}

// pendingImport tracks one unit of background work for a slot. Once a
// conversion defers, the ticket is spent and data carries over instead.
type pendingImport struct {
	slot     handle.Slot
	name     string
	tk       *pipeline.Ticket
	data     any
	deferred bool
}

// Storage holds every slot of one asset type. Handles keep slots alive;
// Process is the only place slot state leaves Loading, and it must be
// called from the owning thread, never concurrently with itself.
type Storage[A any] struct {
	name  string
	alloc *handle.Allocator

	mu      sync.RWMutex
	states  map[handle.Slot]*slotState[A]
	pending []pendingImport
	obs     Observer
}

func New[A any](name string) *Storage[A] {
	return &Storage[A]{
		name:   name,
		alloc:  handle.NewAllocator(),
		states: make(map[handle.Slot]*slotState[A], 256),
	}
}

func (s *Storage[A]) Name() string { return s.name }

// SetObserver installs transition hooks fired during Process.
func (s *Storage[A]) SetObserver(obs Observer) {
	s.mu.Lock()
	s.obs = obs
	s.mu.Unlock()
}

// AllocateLoading claims a fresh slot in the Loading state and returns its
// first strong handle. Callers never block on the import itself; the only
// possible error is slot exhaustion, which is fatal.
func (s *Storage[A]) AllocateLoading(name string, tk *pipeline.Ticket) (handle.Handle[A], error) {
	slot, err := s.alloc.Allocate()
	if err != nil {
		return handle.Handle[A]{}, err
	}
	s.mu.Lock()
	s.states[slot] = &slotState[A]{phase: phaseLoading}
	s.pending = append(s.pending, pendingImport{slot: slot, name: name, tk: tk})
	s.mu.Unlock()
	return handle.Adopt[A](slot, s.alloc), nil
}

// Resubmit queues a fresh import for an already-occupied slot (hot reload,
// manual retry). The slot keeps its generation, and its current Loaded or
// Failed state stays visible until the new result integrates.
func (s *Storage[A]) Resubmit(h handle.Handle[A], name string, tk *pipeline.Ticket) bool {
	if !h.Alive() {
		return false
	}
	s.mu.Lock()
	s.pending = append(s.pending, pendingImport{slot: h.Slot(), name: name, tk: tk})
	s.mu.Unlock()
	return true
}

// integration carries one finished pending import through the unlocked
// conversion phase back under the lock.
type integration[A any] struct {
	pi         pendingImport
	phase      phase
	asset      A
	err        *LoadError
	requeue    bool
	data       any
	integrated bool
}

// Process drains completed background work: errors and conversion failures
// turn slots Failed (and land in sink), deferrals requeue, successes turn
// slots Loaded. Work still in flight stays pending for the next call.
// Conversions run outside the storage lock so converters may themselves
// load sub-assets. Returns the number of slots that changed state.
func (s *Storage[A]) Process(convert Converter[A], sink *Sink) int {
	s.mu.Lock()
	var ready []pendingImport
	keep := s.pending[:0]
	for _, pi := range s.pending {
		if pi.deferred || pi.tk.Done() {
			ready = append(ready, pi)
		} else {
			keep = append(keep, pi)
		}
	}
	s.pending = keep
	obs := s.obs
	s.mu.Unlock()

	if len(ready) == 0 {
		return 0
	}

	results := make([]integration[A], 0, len(ready))
	for _, pi := range ready {
		if !s.alloc.Alive(pi.slot) {
			continue // every strong handle dropped; discard the result
		}
		data := pi.data
		if !pi.deferred {
			var err error
			data, err = pi.tk.Result()
			if err != nil {
				results = append(results, integration[A]{pi: pi, phase: phaseFailed, err: asLoadError(pi.name, err)})
				continue
			}
		}
		out, err := convert(data)
		switch {
		case err != nil:
			results = append(results, integration[A]{pi: pi, phase: phaseFailed, err: &LoadError{Name: pi.name, Op: OpConvert, Err: err}})
		case out.deferred:
			results = append(results, integration[A]{pi: pi, requeue: true, data: data})
		default:
			results = append(results, integration[A]{pi: pi, phase: phaseLoaded, asset: out.asset})
		}
	}

	n := 0
	s.mu.Lock()
	for i := range results {
		r := &results[i]
		if r.requeue {
			s.pending = append(s.pending, pendingImport{slot: r.pi.slot, name: r.pi.name, data: r.data, deferred: true})
			continue
		}
		st, ok := s.states[r.pi.slot]
		if !ok {
			continue
		}
		st.phase = r.phase
		if r.phase == phaseLoaded {
			st.asset = r.asset
			st.err = nil
		} else {
			var zero A
			st.asset = zero
			st.err = r.err
		}
		r.integrated = true
		n++
	}
	s.mu.Unlock()

	for i := range results {
		r := &results[i]
		if !r.integrated {
			continue
		}
		if r.phase == phaseFailed {
			if sink != nil {
				sink.Push(r.err)
			}
			if obs != nil {
				obs.AssetFailed(r.pi.name, r.pi.slot, r.err)
			}
		} else if obs != nil {
			obs.AssetLoaded(r.pi.name, r.pi.slot)
		}
	}
	return n
}

// Get returns the asset behind a live handle, or false while the slot is
// Loading or Failed. The pointer stays valid until the slot is swept or
// overwritten by a reload; callers read, they do not keep it across ticks.
func (s *Storage[A]) Get(h handle.Handle[A]) (*A, bool) {
	if !h.Alive() {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[h.Slot()]
	if !ok || st.phase != phaseLoaded {
		return nil, false
	}
	return &st.asset, true
}

// Sweep reclaims every slot whose strong count reached zero, dropping the
// stored asset and bumping the generation so stale weak handles can never
// upgrade into the index's next occupant. Owning thread only.
func (s *Storage[A]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alloc.Collect(func(dead handle.Slot) {
		delete(s.states, dead)
	})
}

// StorageStats is a point-in-time snapshot for reporting.
type StorageStats struct {
	Slots   int // indices ever allocated
	Live    int // slots holding at least one strong handle
	Pending int // imports awaiting completion or integration
}

func (s *Storage[A]) Stats() StorageStats {
	s.mu.RLock()
	pending := len(s.pending)
	s.mu.RUnlock()
	return StorageStats{
		Slots:   s.alloc.Len(),
		Live:    s.alloc.InUse(),
		Pending: pending,
	}
}
