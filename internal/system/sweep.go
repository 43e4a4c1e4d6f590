package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/riftforge/assets/internal/core/asset"
	coresys "github.com/riftforge/assets/internal/core/system"
)

// SweepSystem reclaims slots whose strong count dropped to zero.
// Phase 2 (Sweep), interval-gated: dead slots only cost memory, so
// reclaiming them every tick buys nothing.
type SweepSystem struct {
	reg       *asset.Registry
	log       *zap.Logger
	tickCount int
	interval  int // sweep every N ticks
}

func NewSweepSystem(reg *asset.Registry, log *zap.Logger, intervalTicks int) *SweepSystem {
	if intervalTicks < 1 {
		intervalTicks = 1
	}
	return &SweepSystem{reg: reg, log: log, interval: intervalTicks}
}

func (s *SweepSystem) Phase() coresys.Phase { return coresys.PhaseSweep }

func (s *SweepSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0

	if n := s.reg.SweepAll(); n > 0 {
		s.log.Debug("swept dead slots", zap.Int("count", n))
	}
}
