package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/riftforge/assets/internal/core/event"
	coresys "github.com/riftforge/assets/internal/core/system"
	"github.com/riftforge/assets/internal/loader"
)

// PruneSystem drops path-cache entries whose weak handles died, so the
// cache cannot grow monotonically under churn. Phase 4 (Maintain).
type PruneSystem struct {
	cache     *loader.PathCache
	bus       *event.Bus
	log       *zap.Logger
	tickCount int
	interval  int // prune every N ticks
}

func NewPruneSystem(cache *loader.PathCache, bus *event.Bus, log *zap.Logger, intervalTicks int) *PruneSystem {
	if intervalTicks < 1 {
		intervalTicks = 1
	}
	return &PruneSystem{cache: cache, bus: bus, log: log, interval: intervalTicks}
}

func (s *PruneSystem) Phase() coresys.Phase { return coresys.PhaseMaintain }

func (s *PruneSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0

	n := s.cache.ClearDead()
	if n == 0 {
		return
	}
	event.Emit(s.bus, event.CachePruned{Removed: n})
	s.log.Debug("pruned path cache", zap.Int("removed", n), zap.Int("remaining", s.cache.Len()))
}
