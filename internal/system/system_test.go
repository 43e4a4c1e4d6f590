package system_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/riftforge/assets/internal/core/asset"
	"github.com/riftforge/assets/internal/core/event"
	coresys "github.com/riftforge/assets/internal/core/system"
	"github.com/riftforge/assets/internal/loader"
	"github.com/riftforge/assets/internal/pipeline"
	"github.com/riftforge/assets/internal/source"
	"github.com/riftforge/assets/internal/system"
	"github.com/riftforge/assets/internal/watch"
)

func convertString(data any) (asset.Outcome[string], error) {
	s, ok := data.(string)
	if !ok {
		return asset.Outcome[string]{}, errors.New("not a string")
	}
	return asset.Ready(s), nil
}

// Wires storage, bus, and systems through a runner and drives one tick:
// a finished import must integrate, fire AssetLoaded, and be readable.
func TestTickIntegratesAndReports(t *testing.T) {
	t.Parallel()

	st := asset.New[string]("text")
	bus := event.NewBus()
	st.SetObserver(event.NewBusObserver(bus, "text"))

	reg := asset.NewRegistry()
	reg.Register(asset.Bind(st, convertString))
	sink := asset.NewSink()
	pool := pipeline.NewPool(1, zap.NewNop())

	var loaded []event.AssetLoaded
	event.Subscribe(bus, func(ev event.AssetLoaded) { loaded = append(loaded, ev) })

	r := coresys.NewRunner()
	r.Register(system.NewIntegrateSystem(reg, sink))
	r.Register(system.NewReportSystem(bus, sink, reg, pool, zap.NewNop(), 0))

	tk := pipeline.Inline{}.Submit(func(context.Context) (any, error) {
		return "hello", nil
	})
	h, err := st.AllocateLoading("text/greet.txt", tk)
	require.NoError(t, err)
	defer h.Release()

	r.Tick(50 * time.Millisecond)

	require.Len(t, loaded, 1)
	assert.Equal(t, "text/greet.txt", loaded[0].Name)
	assert.Equal(t, "text", loaded[0].Kind)

	v, ok := st.Get(h)
	require.True(t, ok)
	assert.Equal(t, "hello", *v)
}

func TestReportSystemSurfacesLoadErrors(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	log := zap.New(core)

	st := asset.New[string]("text")
	reg := asset.NewRegistry()
	reg.Register(asset.Bind(st, convertString))
	sink := asset.NewSink()
	bus := event.NewBus()
	pool := pipeline.NewPool(1, zap.NewNop())

	tk := pipeline.Inline{}.Submit(func(context.Context) (any, error) {
		return nil, &asset.LoadError{Name: "text/bad.txt", Op: asset.OpFormat, Err: errors.New("garbled")}
	})
	h, err := st.AllocateLoading("text/bad.txt", tk)
	require.NoError(t, err)
	defer h.Release()

	r := coresys.NewRunner()
	r.Register(system.NewIntegrateSystem(reg, sink))
	r.Register(system.NewReportSystem(bus, sink, reg, pool, log, 0))
	r.Tick(50 * time.Millisecond)

	entries := logs.FilterMessage("asset load failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "text/bad.txt", fields["asset"])
	assert.Equal(t, "format", fields["op"])
}

type countingTickable struct {
	sweeps int
}

func (c *countingTickable) Name() string              { return "fake" }
func (c *countingTickable) Integrate(*asset.Sink) int { return 0 }
func (c *countingTickable) Sweep() int                { c.sweeps++; return 1 }
func (c *countingTickable) Stats() asset.StorageStats { return asset.StorageStats{} }

func TestSweepSystemHonorsInterval(t *testing.T) {
	t.Parallel()

	fake := &countingTickable{}
	reg := asset.NewRegistry()
	reg.Register(fake)

	sys := system.NewSweepSystem(reg, zap.NewNop(), 3)
	sys.Update(0)
	sys.Update(0)
	assert.Zero(t, fake.sweeps, "below the interval nothing sweeps")

	sys.Update(0)
	assert.Equal(t, 1, fake.sweeps)

	sys.Update(0)
	sys.Update(0)
	sys.Update(0)
	assert.Equal(t, 2, fake.sweeps, "counter resets after each sweep")
}

func TestPruneSystemEmitsCachePruned(t *testing.T) {
	t.Parallel()

	cache := loader.NewPathCache()
	bus := event.NewBus()
	var pruned []event.CachePruned
	event.Subscribe(bus, func(ev event.CachePruned) { pruned = append(pruned, ev) })

	cache.Insert("text:dead.txt", deadRef{})
	cache.Insert("text:live.txt", liveRef{})

	sys := system.NewPruneSystem(cache, bus, zap.NewNop(), 1)
	sys.Update(0)
	bus.SwapBuffers()
	bus.DispatchAll()

	require.Len(t, pruned, 1)
	assert.Equal(t, 1, pruned[0].Removed)
	assert.Equal(t, 1, cache.Len())
}

type deadRef struct{}

func (deadRef) Alive() bool { return false }
func (deadRef) Release()    {}

type liveRef struct{}

func (liveRef) Alive() bool { return true }
func (liveRef) Release()    {}

func TestReloadSystemPollsTrackedSources(t *testing.T) {
	t.Parallel()

	mem := source.NewMemory()
	mem.Put("tables/npc.yaml", []byte("rows: []"))

	w := watch.NewWatcher(zap.NewNop())
	calls := 0
	base := time.Now()
	w.Track("tables/npc.yaml", mem, base, func() error {
		calls++
		return nil
	})
	mem.Touch("tables/npc.yaml", base.Add(time.Second))

	sys := system.NewReloadSystem(context.Background(), w, zap.NewNop(), 2)
	sys.Update(0)
	assert.Zero(t, calls, "first update is below the poll interval")
	sys.Update(0)
	assert.Equal(t, 1, calls)
}
