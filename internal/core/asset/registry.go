package asset

// Tickable is the non-generic face of a bound storage, so the tick loop can
// fan out integration and sweeps without knowing asset types.
type Tickable interface {
	Name() string
	Integrate(sink *Sink) int
	Sweep() int
	Stats() StorageStats
}

// Bound pairs a storage with its owning-thread converter.
type Bound[A any] struct {
	st      *Storage[A]
	convert Converter[A]
}

func Bind[A any](st *Storage[A], convert Converter[A]) *Bound[A] {
	return &Bound[A]{st: st, convert: convert}
}

func (b *Bound[A]) Name() string { return b.st.Name() }

func (b *Bound[A]) Integrate(sink *Sink) int { return b.st.Process(b.convert, sink) }

func (b *Bound[A]) Sweep() int { return b.st.Sweep() }

func (b *Bound[A]) Stats() StorageStats { return b.st.Stats() }

// Registry tracks every bound storage and fans per-tick operations out to
// all of them. Registration happens at boot; ticking is owning-thread.
type Registry struct {
	tables []Tickable
}

func NewRegistry() *Registry {
	return &Registry{tables: make([]Tickable, 0, 8)}
}

func (r *Registry) Register(t Tickable) {
	r.tables = append(r.tables, t)
}

// IntegrateAll runs one Process pass over every storage, in registration
// order. Order between asset types carries no semantic weight.
func (r *Registry) IntegrateAll(sink *Sink) int {
	n := 0
	for _, t := range r.tables {
		n += t.Integrate(sink)
	}
	return n
}

// SweepAll reclaims dead slots in every storage.
func (r *Registry) SweepAll() int {
	n := 0
	for _, t := range r.tables {
		n += t.Sweep()
	}
	return n
}

func (r *Registry) Each(fn func(Tickable)) {
	for _, t := range r.tables {
		fn(t)
	}
}

func (r *Registry) Len() int { return len(r.tables) }
