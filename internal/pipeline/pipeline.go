package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrShutdown is the result of any job submitted after the pool stopped.
var ErrShutdown = errors.New("pipeline: shut down")

// Job is one unit of import work: read the bytes, parse them into
// intermediate data. Runs on a worker goroutine and must not touch shared
// engine state.
type Job func(ctx context.Context) (any, error)

// Ticket is the receiver side of one submitted job. The worker fills the
// result and flips done; the owning thread polls Done once per tick.
type Ticket struct {
	done atomic.Bool
	data any
	err  error
}

// Complete fills the result and flips done. Called exactly once per ticket
// by whichever executor ran the job.
func (t *Ticket) Complete(data any, err error) {
	t.data = data
	t.err = err
	t.done.Store(true)
}

// Done reports whether the job finished. Result is only valid after Done
// returns true.
func (t *Ticket) Done() bool { return t.done.Load() }

// Result returns the job's output, valid once Done reports true.
func (t *Ticket) Result() (any, error) { return t.data, t.err }

// Executor runs import jobs. Submit never blocks and never rejects; a job
// that cannot run still gets a completed ticket carrying the error.
type Executor interface {
	Submit(job Job) *Ticket
}

// Inline runs each job synchronously inside Submit. Deterministic; used by
// tests and one-shot tools.
type Inline struct{}

func (Inline) Submit(job Job) *Ticket {
	t := &Ticket{}
	data, err := job(context.Background())
	t.Complete(data, err)
	return t
}
