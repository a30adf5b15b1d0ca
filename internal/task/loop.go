package task

import (
	"context"
	"sync"

	"github.com/dshills/appshell/internal/logging"
)

// Poster runs functions on the goroutine that owns shell state. Post
// reports false when fn was rejected and will never run.
type Poster interface {
	Post(fn func()) bool
}

// PosterFunc adapts a function to Poster.
type PosterFunc func(fn func())

// Post calls p(fn) and reports true.
func (p PosterFunc) Post(fn func()) bool {
	p(fn)
	return true
}

// Loop is the interactive goroutine's queue. Post may be called from any
// goroutine; posted functions run in order on the goroutine calling Run or
// RunPending.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	closed  bool

	wake chan struct{}
	done chan struct{}

	logger *logging.Logger
}

// NewLoop creates an empty loop.
func NewLoop(logger *logging.Logger) *Loop {
	return &Loop{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logging.OrNop(logger).WithComponent("loop"),
	}
}

// Post queues fn. After Close, fn is dropped and Post reports false.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.logger.Debug("dropping function posted after close")
		return false
	}
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Run executes posted functions until ctx is done or the loop is closed.
// Functions already queued when Close is called still run.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.RunPending()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			l.RunPending()
			return nil
		case <-l.wake:
		}
	}
}

// RunPending executes every queued function, including ones posted while
// draining, and returns how many ran.
func (l *Loop) RunPending() int {
	ran := 0
	for {
		l.mu.Lock()
		batch := l.pending
		l.pending = nil
		l.mu.Unlock()

		if len(batch) == 0 {
			return ran
		}
		for _, fn := range batch {
			l.call(fn)
			ran++
		}
	}
}

// call runs fn, logging a panic instead of unwinding the loop.
func (l *Loop) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("posted function panicked: %v", r)
		}
	}()
	fn()
}

// Close stops Run after the queued functions have run.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	close(l.done)
}
