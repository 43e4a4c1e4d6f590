package handle

import "fmt"

// Slot encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. Generation increments on reclaim to invalidate stale refs.
// Generations start at 1, so the zero Slot never names a live slot.
type Slot uint64

func NewSlot(index uint32, generation uint32) Slot {
	return Slot(uint64(generation)<<32 | uint64(index))
}

func (s Slot) Index() uint32      { return uint32(s) }
func (s Slot) Generation() uint32 { return uint32(s >> 32) }
func (s Slot) IsZero() bool       { return s == 0 }

func (s Slot) String() string {
	return fmt.Sprintf("%d@%d", s.Index(), s.Generation())
}
