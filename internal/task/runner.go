// Package task runs blocking work off the interactive goroutine.
//
// A submitted function runs on a pooled worker goroutine. When it returns,
// exactly one of OnResult or OnError is delivered, followed by exactly one
// OnFinished, all through the Runner's Poster so they run on the interactive
// goroutine. When the Poster rejects them, because the loop is closed, they
// run on the worker instead. Tasks cannot be cancelled and have no timeout.
package task

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/appshell/internal/logging"
)

// Func is a unit of background work.
type Func func() (any, error)

// Callbacks observe a task. Nil callbacks are skipped.
type Callbacks struct {
	OnResult   func(value any)
	OnError    func(err *TaskError)
	OnFinished func()
}

// TaskError is the failure of a background task.
type TaskError struct {
	// Err is the returned error, or a description of the panic.
	Err error
	// Panic is the recovered value when the task panicked.
	Panic any
	// Stack is the worker's stack trace when the task panicked.
	Stack []byte
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// Handle identifies a submitted task.
type Handle struct {
	id   string
	done chan struct{}
}

// ID returns the task id.
func (h *Handle) ID() string { return h.id }

// Done is closed after OnFinished has run.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until OnFinished has run. It must not be called from the
// goroutine that drains the Poster.
func (h *Handle) Wait() { <-h.done }

// Runner submits tasks to worker goroutines.
type Runner struct {
	poster Poster
	sem    chan struct{}
	wg     sync.WaitGroup
	logger *logging.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithMaxWorkers bounds the number of tasks running at once.
// Zero or less means unbounded.
func WithMaxWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.sem = make(chan struct{}, n)
		} else {
			r.sem = nil
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner delivering callbacks through poster.
func NewRunner(poster Poster, opts ...Option) *Runner {
	r := &Runner{poster: poster}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNop(r.logger).WithComponent("tasks")
	return r
}

// Submit runs fn on a worker goroutine. It never runs fn on the caller.
func (r *Runner) Submit(fn Func, cb Callbacks) *Handle {
	h := &Handle{
		id:   uuid.New().String(),
		done: make(chan struct{}),
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		if r.sem != nil {
			r.sem <- struct{}{}
		}
		value, taskErr := r.execute(fn)
		if r.sem != nil {
			<-r.sem
		}

		if taskErr != nil {
			r.logger.WithField("task", h.id).WithError(taskErr).Debug("task failed")
		}

		finish := func() {
			defer close(h.done)
			deliver(cb, value, taskErr)
		}
		if !r.poster.Post(finish) {
			r.logger.WithField("task", h.id).Debug("poster closed, delivering on worker")
			finish()
		}
	}()

	return h
}

// deliver honours the terminal contract: one outcome, then finished.
func deliver(cb Callbacks, value any, taskErr *TaskError) {
	defer func() {
		if cb.OnFinished != nil {
			cb.OnFinished()
		}
	}()

	if taskErr != nil {
		if cb.OnError != nil {
			cb.OnError(taskErr)
		}
		return
	}
	if cb.OnResult != nil {
		cb.OnResult(value)
	}
}

// execute runs fn, converting a returned error or a panic into a TaskError.
func (r *Runner) execute(fn Func) (value any, taskErr *TaskError) {
	defer func() {
		if p := recover(); p != nil {
			value = nil
			taskErr = &TaskError{
				Err:   fmt.Errorf("task panicked: %v", p),
				Panic: p,
				Stack: debug.Stack(),
			}
		}
	}()

	value, err := fn()
	if err != nil {
		var existing *TaskError
		if errors.As(err, &existing) {
			return nil, existing
		}
		return nil, &TaskError{Err: err}
	}
	return value, nil
}

// Wait blocks until every submitted task has returned and its callbacks have
// been posted. The callbacks may not have run yet.
func (r *Runner) Wait() {
	r.wg.Wait()
}
