package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/riftforge/assets/internal/core/asset"
	"github.com/riftforge/assets/internal/core/event"
	coresys "github.com/riftforge/assets/internal/core/system"
	"github.com/riftforge/assets/internal/pipeline"
)

// ReportSystem delivers last tick's events, surfaces accumulated load
// errors, and periodically logs storage and pipeline statistics.
// Phase 3 (Report).
type ReportSystem struct {
	bus       *event.Bus
	sink      *asset.Sink
	reg       *asset.Registry
	pool      *pipeline.Pool
	log       *zap.Logger
	tickCount int
	statsTick int // log stats every N ticks, 0 disables
}

func NewReportSystem(bus *event.Bus, sink *asset.Sink, reg *asset.Registry, pool *pipeline.Pool, log *zap.Logger, statsEveryTicks int) *ReportSystem {
	return &ReportSystem{
		bus:       bus,
		sink:      sink,
		reg:       reg,
		pool:      pool,
		log:       log,
		statsTick: statsEveryTicks,
	}
}

func (s *ReportSystem) Phase() coresys.Phase { return coresys.PhaseReport }

func (s *ReportSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()

	for _, le := range s.sink.Drain() {
		s.log.Warn("asset load failed",
			zap.String("asset", le.Name),
			zap.String("op", string(le.Op)),
			zap.Error(le.Err))
	}

	if s.statsTick <= 0 {
		return
	}
	s.tickCount++
	if s.tickCount < s.statsTick {
		return
	}
	s.tickCount = 0
	s.logStats()
}

func (s *ReportSystem) logStats() {
	var slots, live, pending int
	s.reg.Each(func(t asset.Tickable) {
		st := t.Stats()
		slots += st.Slots
		live += st.Live
		pending += st.Pending
	})
	ps := s.pool.Stats()
	s.log.Info("asset stats",
		zap.Int("slots", slots),
		zap.Int("live", live),
		zap.Int("pending", pending),
		zap.Int("queued", s.pool.QueueLen()),
		zap.Uint64("imports", ps.Completed),
		zap.Uint64("import_failures", ps.Failed))
}
