package asset

import (
	"errors"
	"fmt"
	"sync"
)

// Op names the stage a load attempt died in.
type Op string

const (
	OpSource  Op = "source"  // byte source unreadable
	OpFormat  Op = "format"  // import/parse failure on the worker
	OpConvert Op = "convert" // owning-thread data->asset step failed
)

// LoadError records why one load attempt failed. These are recoverable:
// the slot turns Failed, the error lands in the sink, and the tick goes on.
type LoadError struct {
	Name string
	Op   Op
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Name, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// asLoadError keeps an already-classified error and wraps anything else
// (worker panics, cancelled contexts) as a format failure.
func asLoadError(name string, err error) *LoadError {
	var le *LoadError
	if errors.As(err, &le) {
		return le
	}
	return &LoadError{Name: name, Op: OpFormat, Err: err}
}

// Sink accumulates non-fatal load errors across a tick for batch reporting.
// Push may be called from any goroutine.
type Sink struct {
	mu   sync.Mutex
	errs []*LoadError
}

func NewSink() *Sink {
	return &Sink{errs: make([]*LoadError, 0, 16)}
}

func (s *Sink) Push(e *LoadError) {
	s.mu.Lock()
	s.errs = append(s.errs, e)
	s.mu.Unlock()
}

// Drain returns the accumulated errors and empties the sink.
func (s *Sink) Drain() []*LoadError {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.errs
	s.errs = nil
	return out
}

func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errs)
}
