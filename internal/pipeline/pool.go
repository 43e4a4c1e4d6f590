package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Pool runs jobs on a fixed set of worker goroutines. The queue is
// unbounded so Submit never blocks a caller mid-frame; workers pull in FIFO
// order but completion order is not guaranteed.
type Pool struct {
	log     *zap.Logger
	workers int

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []task
	closed bool
	wg     sync.WaitGroup

	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
}

type task struct {
	job Job
	tk  *Ticket
}

func NewPool(workers int, log *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		log:     log,
		workers: workers,
		queue:   make([]task, 0, 64),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Start launches the workers. ctx is handed to every job; cancelling it
// makes in-flight source reads fail, it does not tear down the queue.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	p.log.Info("import workers started", zap.Int("workers", p.workers))
}

// Submit queues one job and returns its ticket immediately.
func (p *Pool) Submit(job Job) *Ticket {
	t := &Ticket{}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		t.Complete(nil, ErrShutdown)
		return t
	}
	p.queue = append(p.queue, task{job: job, tk: t})
	p.mu.Unlock()
	p.cond.Signal()
	p.submitted.Add(1)
	return t
}

// Shutdown lets the queue drain, stops the workers, and waits for them.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
	p.log.Info("import workers stopped",
		zap.Uint64("submitted", p.submitted.Load()),
		zap.Uint64("completed", p.completed.Load()),
		zap.Uint64("failed", p.failed.Load()))
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return // closed and drained
		}
		tsk := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.run(ctx, tsk)
	}
}

// run executes one job. A panicking importer counts as a failed import; it
// must never take the process down.
func (p *Pool) run(ctx context.Context, tsk task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("import job panicked", zap.Any("panic", r))
			p.failed.Add(1)
			tsk.tk.Complete(nil, fmt.Errorf("import panicked: %v", r))
		}
	}()
	data, err := tsk.job(ctx)
	if err != nil {
		p.failed.Add(1)
	}
	p.completed.Add(1)
	tsk.tk.Complete(data, err)
}

// QueueLen reports jobs waiting for a worker.
func (p *Pool) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Stats is a point-in-time snapshot of pool counters.
type Stats struct {
	Submitted uint64
	Completed uint64
	Failed    uint64
}

func (p *Pool) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
	}
}
