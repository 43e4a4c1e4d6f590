package event

import "github.com/riftforge/assets/internal/core/handle"

// Asset lifecycle events. Kind is the storage name the asset belongs to
// ("table", "script", ...), Name the manifest path within it.

type AssetLoaded struct {
	Name string
	Kind string
	Slot handle.Slot
}

type AssetFailed struct {
	Name string
	Kind string
	Err  error
}

// AssetReloaded fires when the watcher resubmits a changed asset and the
// new bytes finish integrating.
type AssetReloaded struct {
	Name string
	Kind string
}

// CachePruned fires after a maintenance pass drops dead path-cache entries.
type CachePruned struct {
	Removed int
}

// BusObserver forwards storage transitions onto the bus. One instance per
// storage, carrying the storage's kind.
type BusObserver struct {
	bus  *Bus
	kind string
}

func NewBusObserver(bus *Bus, kind string) *BusObserver {
	return &BusObserver{bus: bus, kind: kind}
}

func (o *BusObserver) AssetLoaded(name string, s handle.Slot) {
	Emit(o.bus, AssetLoaded{Name: name, Kind: o.kind, Slot: s})
}

func (o *BusObserver) AssetFailed(name string, s handle.Slot, err error) {
	Emit(o.bus, AssetFailed{Name: name, Kind: o.kind, Err: err})
}
