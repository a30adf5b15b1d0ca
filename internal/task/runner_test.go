package task

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// record collects callback invocations on the loop goroutine.
type record struct {
	mu     sync.Mutex
	events []string
	value  any
	err    *TaskError
}

func (r *record) callbacks() Callbacks {
	return Callbacks{
		OnResult: func(v any) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, "result")
			r.value = v
		},
		OnError: func(err *TaskError) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, "error")
			r.err = err
		},
		OnFinished: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, "finished")
		},
	}
}

func (r *record) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func runLoop(t *testing.T) *Loop {
	t.Helper()
	loop := NewLoop(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return loop
}

func TestRunner_TerminalContract(t *testing.T) {
	tests := []struct {
		name       string
		fn         Func
		wantEvents string
	}{
		{
			name:       "result",
			fn:         func() (any, error) { return 42, nil },
			wantEvents: "result,finished",
		},
		{
			name:       "error",
			fn:         func() (any, error) { return nil, errors.New("boom") },
			wantEvents: "error,finished",
		},
		{
			name:       "panic",
			fn:         func() (any, error) { panic("kaboom") },
			wantEvents: "error,finished",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loop := runLoop(t)
			runner := NewRunner(loop)

			rec := &record{}
			h := runner.Submit(tt.fn, rec.callbacks())
			h.Wait()

			if got := strings.Join(rec.snapshot(), ","); got != tt.wantEvents {
				t.Errorf("events = %s, want %s", got, tt.wantEvents)
			}
		})
	}
}

func TestRunner_ResultValue(t *testing.T) {
	loop := runLoop(t)
	runner := NewRunner(loop)

	rec := &record{}
	runner.Submit(func() (any, error) { return "done", nil }, rec.callbacks()).Wait()

	if rec.value != "done" {
		t.Errorf("value = %v, want done", rec.value)
	}
}

func TestRunner_PanicCapturesStack(t *testing.T) {
	loop := runLoop(t)
	runner := NewRunner(loop)

	rec := &record{}
	runner.Submit(func() (any, error) { panic("kaboom") }, rec.callbacks()).Wait()

	if rec.err == nil {
		t.Fatal("OnError was not called")
	}
	if rec.err.Panic != "kaboom" {
		t.Errorf("Panic = %v, want kaboom", rec.err.Panic)
	}
	if len(rec.err.Stack) == 0 {
		t.Error("Stack should be captured")
	}
	if !strings.Contains(rec.err.Error(), "kaboom") {
		t.Errorf("Error() = %q, want it to mention the panic", rec.err.Error())
	}
}

func TestRunner_ErrorUnwraps(t *testing.T) {
	loop := runLoop(t)
	runner := NewRunner(loop)

	sentinel := errors.New("sentinel")
	rec := &record{}
	runner.Submit(func() (any, error) { return nil, sentinel }, rec.callbacks()).Wait()

	if !errors.Is(rec.err, sentinel) {
		t.Errorf("err = %v, want sentinel", rec.err)
	}
}

func TestRunner_NeverRunsOnCaller(t *testing.T) {
	loop := NewLoop(nil)
	runner := NewRunner(loop)

	started := make(chan struct{})
	release := make(chan struct{})
	runner.Submit(func() (any, error) {
		close(started)
		<-release
		return nil, nil
	}, Callbacks{})

	// Submit returned while the task is blocked
	<-started
	close(release)
	runner.Wait()

	if n := loop.RunPending(); n != 1 {
		t.Errorf("RunPending() = %d, want 1", n)
	}
}

func TestRunner_CallbacksWaitForLoop(t *testing.T) {
	loop := NewLoop(nil)
	runner := NewRunner(loop)

	rec := &record{}
	h := runner.Submit(func() (any, error) { return 1, nil }, rec.callbacks())
	runner.Wait()

	if len(rec.snapshot()) != 0 {
		t.Error("callbacks should not run before the loop drains")
	}
	loop.RunPending()
	<-h.Done()

	if got := strings.Join(rec.snapshot(), ","); got != "result,finished" {
		t.Errorf("events = %s", got)
	}
}

func TestRunner_ClosedLoop(t *testing.T) {
	tests := []struct {
		name string
		fn   Func
		want string
	}{
		{"result", func() (any, error) { return 1, nil }, "result,finished"},
		{"error", func() (any, error) { return nil, errors.New("boom") }, "error,finished"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loop := NewLoop(nil)
			loop.Close()

			rec := &record{}
			h := NewRunner(loop).Submit(tt.fn, rec.callbacks())

			select {
			case <-h.Done():
			case <-time.After(time.Second):
				t.Fatal("handle not done after submitting to a closed loop")
			}
			if got := strings.Join(rec.snapshot(), ","); got != tt.want {
				t.Errorf("events = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRunner_MaxWorkers(t *testing.T) {
	runner := NewRunner(PosterFunc(func(fn func()) { fn() }), WithMaxWorkers(2))

	var running, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		runner.Submit(func() (any, error) {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return nil, nil
		}, Callbacks{OnFinished: wg.Done})
	}
	wg.Wait()

	if peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestRunner_HandleIDs(t *testing.T) {
	runner := NewRunner(PosterFunc(func(fn func()) { fn() }))

	a := runner.Submit(func() (any, error) { return nil, nil }, Callbacks{})
	b := runner.Submit(func() (any, error) { return nil, nil }, Callbacks{})
	a.Wait()
	b.Wait()

	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("handle ids = %q, %q, want unique non-empty", a.ID(), b.ID())
	}
}
