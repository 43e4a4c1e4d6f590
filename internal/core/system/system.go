package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhasePoll      Phase = iota // 0: watcher checks sources for changes
	PhaseIntegrate              // 1: drain finished imports into storages
	PhaseSweep                  // 2: release slots with no strong refs
	PhaseReport                 // 3: dispatch events, drain error sink, stats
	PhaseMaintain               // 4: cache pruning, allocator collection
)

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
