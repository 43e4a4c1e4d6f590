package system

import (
	"time"

	"github.com/riftforge/assets/internal/core/asset"
	coresys "github.com/riftforge/assets/internal/core/system"
)

// IntegrateSystem drains finished import tickets into their storages.
// Phase 1 (Integrate). This is the only place slots leave Loading, which
// keeps asset state single-writer without per-slot locks.
type IntegrateSystem struct {
	reg  *asset.Registry
	sink *asset.Sink
}

func NewIntegrateSystem(reg *asset.Registry, sink *asset.Sink) *IntegrateSystem {
	return &IntegrateSystem{reg: reg, sink: sink}
}

func (s *IntegrateSystem) Phase() coresys.Phase { return coresys.PhaseIntegrate }

func (s *IntegrateSystem) Update(_ time.Duration) {
	s.reg.IntegrateAll(s.sink)
}
