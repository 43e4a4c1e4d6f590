package asset

import "github.com/riftforge/assets/internal/core/handle"

// Format turns raw bytes into intermediate data on a worker goroutine.
// Import must be side-effect-free with respect to shared engine state; the
// result crosses to the owning thread through the pipeline ticket.
type Format interface {
	Name() string
	Import(name string, raw []byte) (any, error)
}

// Converter is the owning-thread step that turns intermediate data into
// the final asset. Converters needing engine context (sub-asset loads,
// lookup tables) capture it as a closure.
type Converter[A any] func(data any) (Outcome[A], error)

// Outcome is the result of one conversion step: the finished asset, or a
// deferral for multi-step assets still waiting on something (typically
// sub-asset handles). Deferred slots stay Loading and the converter runs
// again with the same data on the next Process.
type Outcome[A any] struct {
	asset    A
	deferred bool
}

func Ready[A any](a A) Outcome[A] { return Outcome[A]{asset: a} }

func Defer[A any]() Outcome[A] { return Outcome[A]{deferred: true} }

// Value returns the finished asset, or false for a deferral.
func (o Outcome[A]) Value() (A, bool) { return o.asset, !o.deferred }

// Observer receives slot transitions during Process, on the owning thread.
type Observer interface {
	AssetLoaded(name string, s handle.Slot)
	AssetFailed(name string, s handle.Slot, err error)
}
