package weave

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

type testWidget struct {
	module string
	name   string
	args   []any

	startErr   error
	stopErr    error
	startPanic any
	startGate  chan struct{}
	notify     any

	mu     sync.Mutex
	starts int
	stops  int
}

func (w *testWidget) Start(ctx context.Context) error {
	if w.startGate != nil {
		<-w.startGate
	}
	if w.startPanic != nil {
		panic(w.startPanic)
	}
	if w.notify != nil {
		Notify(ctx, w.notify)
	}
	w.mu.Lock()
	w.starts++
	w.mu.Unlock()
	return w.startErr
}

func (w *testWidget) Stop(ctx context.Context) error {
	w.mu.Lock()
	w.stops++
	w.mu.Unlock()
	return w.stopErr
}

func (w *testWidget) String() string {
	return w.name
}

func (w *testWidget) counts() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.starts, w.stops
}

// fixture registers test modules whose instances are named module#N, with
// N counted per module.
type fixture struct {
	registry *Registry

	mu      sync.Mutex
	seq     map[string]int
	widgets []*testWidget
}

func newFixture() *fixture {
	return &fixture{
		registry: NewRegistry(),
		seq:      make(map[string]int),
	}
}

func (f *fixture) add(t *testing.T, module string, configure func(*testWidget)) {
	t.Helper()
	err := f.registry.Register(module, func(node Node, module string, args ...any) (Widget, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.seq[module]++
		w := &testWidget{
			module: module,
			name:   fmt.Sprintf("%s#%d", module, f.seq[module]),
			args:   args,
		}
		if configure != nil {
			configure(w)
		}
		f.widgets = append(f.widgets, w)
		return w, nil
	})
	if err != nil {
		t.Fatalf("register %s: %v", module, err)
	}
}

func (f *fixture) engine(opts ...EngineOption) *Engine {
	return New(f.registry, append([]EngineOption{WithLogger(log.New(io.Discard))}, opts...)...)
}

func wait(t *testing.T, f *Future) ([]Widget, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	widgets, err := f.Await(ctx)
	if err == context.DeadlineExceeded && !f.Settled() {
		t.Fatalf("future did not settle")
	}
	return widgets, err
}

func names(widgets []Widget) []string {
	out := make([]string, len(widgets))
	for i, w := range widgets {
		out[i] = w.String()
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func element(id, directives string) *Element {
	el := NewElement(id)
	if directives != "" {
		el.SetAttr(AttrWeave, directives)
	}
	return el
}

func eventRecorder(node *Element, name string) <-chan Event {
	ch := make(chan Event, 8)
	node.On(name, HandlerFunc(func(ev Event) {
		ch <- ev
	}))
	return ch
}

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
		return Event{}
	}
}
