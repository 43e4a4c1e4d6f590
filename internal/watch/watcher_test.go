package watch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/riftforge/assets/internal/source"
	"github.com/riftforge/assets/internal/watch"
)

func TestPollResubmitsExactlyOncePerChange(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	t0 := time.Unix(1700000000, 0)
	mem := source.NewMemory()
	require.NoError(t, mem.Put("ui/hud.yaml", []byte("rows: []"), t0))

	w := watch.NewWatcher(zap.NewNop())
	resubmits := 0
	w.Track("ui/hud.yaml", mem, t0, func() error {
		resubmits++
		return nil
	})

	assert.Equal(t, 0, w.Poll(ctx), "unchanged timestamp never reloads")
	assert.Equal(t, 0, w.Poll(ctx))

	require.NoError(t, mem.Touch("ui/hud.yaml", t0.Add(time.Second)))
	assert.Equal(t, 1, w.Poll(ctx))
	assert.Equal(t, 1, resubmits)

	assert.Equal(t, 0, w.Poll(ctx), "one change, one reimport")
	assert.Equal(t, 0, w.Poll(ctx))

	require.NoError(t, mem.Touch("ui/hud.yaml", t0.Add(2*time.Second)))
	assert.Equal(t, 1, w.Poll(ctx))
	assert.Equal(t, 2, resubmits)
}

func TestZeroOrUnknownTimestampNeverReloads(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := source.NewMemory()
	require.NoError(t, mem.Put("flat.bin", []byte{1}, time.Time{}))

	w := watch.NewWatcher(zap.NewNop())
	w.Track("flat.bin", mem, time.Time{}, func() error {
		t.Fatal("zero timestamp must not trigger")
		return nil
	})
	w.Track("missing.bin", mem, time.Time{}, func() error {
		t.Fatal("unreadable source must not trigger")
		return nil
	})

	assert.Equal(t, 0, w.Poll(ctx))
}

func TestZeroSeenAdoptsFirstTimestamp(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	t0 := time.Unix(1700000000, 0)
	mem := source.NewMemory()
	require.NoError(t, mem.Put("late.bin", []byte{1}, t0))

	w := watch.NewWatcher(zap.NewNop())
	resubmits := 0
	w.Track("late.bin", mem, time.Time{}, func() error {
		resubmits++
		return nil
	})

	assert.Equal(t, 0, w.Poll(ctx), "first poll adopts the baseline")
	assert.Equal(t, 0, w.Poll(ctx), "adopted baseline is stable")
	assert.Equal(t, 0, resubmits)

	require.NoError(t, mem.Touch("late.bin", t0.Add(time.Second)))
	assert.Equal(t, 1, w.Poll(ctx))
	assert.Equal(t, 1, resubmits)
}

func TestFailedResubmitRetriesNextPoll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	t0 := time.Unix(1700000000, 0)
	mem := source.NewMemory()
	require.NoError(t, mem.Put("a.bin", []byte{1}, t0))

	w := watch.NewWatcher(zap.NewNop())
	calls := 0
	w.Track("a.bin", mem, t0, func() error {
		calls++
		if calls == 1 {
			return errors.New("slot busy")
		}
		return nil
	})

	require.NoError(t, mem.Touch("a.bin", t0.Add(time.Second)))
	assert.Equal(t, 0, w.Poll(ctx), "failed resubmission does not count")
	assert.Equal(t, 1, w.Poll(ctx), "the change is retried, not swallowed")
	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, w.Poll(ctx))
}

func TestForgetStopsTracking(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	t0 := time.Unix(1700000000, 0)
	mem := source.NewMemory()
	require.NoError(t, mem.Put("a.bin", []byte{1}, t0))

	w := watch.NewWatcher(zap.NewNop())
	w.Track("a.bin", mem, t0, func() error { return nil })
	require.Equal(t, 1, w.Len())

	w.Forget("a.bin")
	assert.Equal(t, 0, w.Len())

	require.NoError(t, mem.Touch("a.bin", t0.Add(time.Second)))
	assert.Equal(t, 0, w.Poll(ctx))
}
