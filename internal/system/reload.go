package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	coresys "github.com/riftforge/assets/internal/core/system"
	"github.com/riftforge/assets/internal/watch"
)

// ReloadSystem polls tracked sources for newer content and resubmits
// changed assets. Phase 0 (Poll). Runs every interval ticks so a slow
// Stat backend cannot drag every tick.
type ReloadSystem struct {
	ctx       context.Context
	watcher   *watch.Watcher
	log       *zap.Logger
	tickCount int
	interval  int // poll every N ticks
}

func NewReloadSystem(ctx context.Context, w *watch.Watcher, log *zap.Logger, intervalTicks int) *ReloadSystem {
	if intervalTicks < 1 {
		intervalTicks = 1
	}
	return &ReloadSystem{ctx: ctx, watcher: w, log: log, interval: intervalTicks}
}

func (s *ReloadSystem) Phase() coresys.Phase { return coresys.PhasePoll }

func (s *ReloadSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0

	n := s.watcher.Poll(s.ctx)
	if n > 0 {
		s.log.Debug("reload poll complete", zap.Int("resubmitted", n))
	}
}
