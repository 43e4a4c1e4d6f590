package pipeline_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/riftforge/assets/internal/pipeline"
)

func TestInlineRunsSynchronously(t *testing.T) {
	t.Parallel()

	tk := pipeline.Inline{}.Submit(func(context.Context) (any, error) {
		return 42, nil
	})
	require.True(t, tk.Done(), "inline tickets complete before Submit returns")
	data, err := tk.Result()
	require.NoError(t, err)
	assert.Equal(t, 42, data)
}

func TestPoolCompletesAllJobs(t *testing.T) {
	t.Parallel()

	p := pipeline.NewPool(4, zap.NewNop())
	p.Start(context.Background())
	defer p.Shutdown()

	const jobs = 64
	tickets := make([]*pipeline.Ticket, jobs)
	for i := range tickets {
		i := i
		tickets[i] = p.Submit(func(context.Context) (any, error) {
			return i, nil
		})
	}

	require.Eventually(t, func() bool {
		for _, tk := range tickets {
			if !tk.Done() {
				return false
			}
		}
		return true
	}, 5*time.Second, time.Millisecond)

	for i, tk := range tickets {
		data, err := tk.Result()
		require.NoError(t, err)
		assert.Equal(t, i, data)
	}
	assert.Equal(t, uint64(jobs), p.Stats().Completed)
}

func TestPoolPanicBecomesError(t *testing.T) {
	t.Parallel()

	p := pipeline.NewPool(1, zap.NewNop())
	p.Start(context.Background())
	defer p.Shutdown()

	tk := p.Submit(func(context.Context) (any, error) {
		panic("bad importer")
	})

	require.Eventually(t, tk.Done, 5*time.Second, time.Millisecond)
	_, err := tk.Result()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad importer")

	// The worker survives and keeps serving jobs.
	next := p.Submit(func(context.Context) (any, error) { return "ok", nil })
	require.Eventually(t, next.Done, 5*time.Second, time.Millisecond)
	data, err := next.Result()
	require.NoError(t, err)
	assert.Equal(t, "ok", data)
}

func TestShutdownDrainsQueue(t *testing.T) {
	t.Parallel()

	p := pipeline.NewPool(2, zap.NewNop())
	p.Start(context.Background())

	var ran atomic.Int32
	tickets := make([]*pipeline.Ticket, 16)
	for i := range tickets {
		tickets[i] = p.Submit(func(context.Context) (any, error) {
			time.Sleep(time.Millisecond)
			ran.Add(1)
			return nil, nil
		})
	}

	p.Shutdown()

	assert.Equal(t, int32(len(tickets)), ran.Load(), "queued jobs run before workers exit")
	for _, tk := range tickets {
		assert.True(t, tk.Done())
	}
}

func TestSubmitAfterShutdownFailsTicket(t *testing.T) {
	t.Parallel()

	p := pipeline.NewPool(1, zap.NewNop())
	p.Start(context.Background())
	p.Shutdown()

	tk := p.Submit(func(context.Context) (any, error) { return nil, nil })
	require.True(t, tk.Done())
	_, err := tk.Result()
	assert.True(t, errors.Is(err, pipeline.ErrShutdown))
}
