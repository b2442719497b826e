package weave

import (
	"context"
	"sync"
	"sync/atomic"
)

// Progress describes an intermediate notification flowing from a widget
// through its node's future to the operation future.
type Progress struct {
	Node   Node
	Module string
	State  WidgetState
	// Value is whatever the widget passed to Notify; nil for state changes.
	Value any
}

// Future is a settle-once result of a weave or unweave call. Callers may
// create one with NewFuture and pass it through Into to collect several calls
// into the same sink.
type Future struct {
	done chan struct{}

	mu        sync.Mutex
	settled   bool
	widgets   []Widget
	err       error
	listeners []func(Progress)
}

// NewFuture returns an unsettled future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func resolved(widgets []Widget) *Future {
	f := NewFuture()
	f.Resolve(widgets)
	return f
}

// Done is closed once the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future settles.
func (f *Future) Wait() ([]Widget, error) {
	<-f.done
	return f.result()
}

// Await blocks until the future settles or ctx ends. Ending ctx does not
// affect the future itself.
func (f *Future) Await(ctx context.Context) ([]Widget, error) {
	select {
	case <-f.done:
		return f.result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Err returns the rejection error, or nil while pending or when resolved.
func (f *Future) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Settled reports whether the future has resolved or rejected.
func (f *Future) Settled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settled
}

// Resolve settles the future with widgets. It reports false when the future
// had already settled.
func (f *Future) Resolve(widgets []Widget) bool {
	return f.settle(widgets, nil)
}

// Reject settles the future with err. It reports false when the future had
// already settled.
func (f *Future) Reject(err error) bool {
	return f.settle(nil, err)
}

// Notify delivers p to progress listeners. Notifications after settlement are
// dropped.
func (f *Future) Notify(p Progress) {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return
	}
	listeners := append(([]func(Progress))(nil), f.listeners...)
	f.mu.Unlock()
	for _, fn := range listeners {
		fn(p)
	}
}

// OnProgress registers fn for subsequent progress notifications.
func (f *Future) OnProgress(fn func(Progress)) {
	if fn == nil {
		return
	}
	f.mu.Lock()
	f.listeners = append(f.listeners, fn)
	f.mu.Unlock()
}

func (f *Future) settle(widgets []Widget, err error) bool {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return false
	}
	f.settled = true
	f.widgets = widgets
	f.err = err
	f.listeners = nil
	f.mu.Unlock()
	close(f.done)
	return true
}

func (f *Future) result() ([]Widget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]Widget(nil), f.widgets...), nil
}

// WhenAll combines futures into one that resolves with every value in
// argument order once all resolve, or rejects with the first rejection it
// observes. Rejection never cancels the remaining futures. Progress from
// every input is forwarded.
func WhenAll(futures ...*Future) *Future {
	out := NewFuture()
	whenAllInto(out, futures)
	return out
}

func whenAllInto(out *Future, futures []*Future) {
	if len(futures) == 0 {
		out.Resolve(nil)
		return
	}

	values := make([][]Widget, len(futures))
	var remaining atomic.Int64
	remaining.Store(int64(len(futures)))

	for i, f := range futures {
		f.OnProgress(out.Notify)
		go func(i int, f *Future) {
			widgets, err := f.Wait()
			if err != nil {
				out.Reject(err)
				return
			}
			values[i] = widgets
			if remaining.Add(-1) == 0 {
				var all []Widget
				for _, v := range values {
					all = append(all, v...)
				}
				out.Resolve(all)
			}
		}(i, f)
	}
}

type reporterKey struct{}

// Notify reports an intermediate value from inside Widget.Start or
// Widget.Stop. It is a no-op when ctx was not provided by the engine.
func Notify(ctx context.Context, value any) {
	if report, ok := ctx.Value(reporterKey{}).(func(any)); ok {
		report(value)
	}
}

func withReporter(ctx context.Context, report func(any)) context.Context {
	return context.WithValue(ctx, reporterKey{}, report)
}
