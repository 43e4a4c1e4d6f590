package handle

// Handle is a strong, type-tagged reference to a slot. It keeps the slot
// (and whatever asset occupies it) alive until released. Handles are
// comparable: two handles are equal iff they name the same slot of the
// same allocator and the same asset type.
type Handle[A any] struct {
	slot  Slot
	alloc *Allocator
}

// Adopt wraps a slot whose strong reference the caller already owns.
// Used by storages right after Allocate; everyone else gets handles by
// cloning or upgrading.
func Adopt[A any](s Slot, a *Allocator) Handle[A] {
	return Handle[A]{slot: s, alloc: a}
}

// Clone takes an additional strong reference to the same slot.
func (h Handle[A]) Clone() Handle[A] {
	if h.alloc != nil {
		h.alloc.Retain(h.slot)
	}
	return h
}

// Release drops this strong reference. The handle must not be used after.
func (h Handle[A]) Release() {
	if h.alloc != nil {
		h.alloc.Release(h.slot)
	}
}

// Downgrade takes a weak reference without touching the strong count.
func (h Handle[A]) Downgrade() Weak[A] {
	if h.alloc != nil {
		h.alloc.RetainWeak(h.slot)
	}
	return Weak[A]{slot: h.slot, alloc: h.alloc}
}

func (h Handle[A]) Slot() Slot { return h.slot }

// Alive reports whether the slot still holds a strong count under this
// handle's generation. False for the zero Handle.
func (h Handle[A]) Alive() bool {
	return h.alloc != nil && h.alloc.Alive(h.slot)
}

// Weak observes a slot without keeping it alive. Upgrade yields a strong
// handle only while the slot's generation is current and some strong
// reference still exists.
type Weak[A any] struct {
	slot  Slot
	alloc *Allocator
}

// Upgrade attempts to take a strong reference. Failure is an expected
// outcome once the slot has been reclaimed, not an error.
func (w Weak[A]) Upgrade() (Handle[A], bool) {
	if w.alloc == nil || !w.alloc.Upgrade(w.slot) {
		return Handle[A]{}, false
	}
	return Handle[A]{slot: w.slot, alloc: w.alloc}, true
}

// Release drops the weak reference. The weak handle must not be used after.
func (w Weak[A]) Release() {
	if w.alloc != nil {
		w.alloc.ReleaseWeak(w.slot)
	}
}

func (w Weak[A]) Slot() Slot { return w.slot }

// Alive probes liveness without retaining.
func (w Weak[A]) Alive() bool {
	return w.alloc != nil && w.alloc.Alive(w.slot)
}
