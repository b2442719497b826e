package weave

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestWeaveStartsDirectives(t *testing.T) {
	fx := newFixture()
	fx.add(t, "a/b", nil)
	fx.add(t, "c/d", nil)
	e := fx.engine()

	node := element("panel", "a/b(1, 'x', true) c/d")
	events := eventRecorder(node, EventWeave)

	widgets, err := wait(t, e.Weave(context.Background(), []Node{node}))
	if err != nil {
		t.Fatalf("weave: %v", err)
	}
	if got, want := names(widgets), []string{"a/b#1", "c/d#1"}; !equalStrings(got, want) {
		t.Fatalf("expected widgets %v, got %v", want, got)
	}

	first := widgets[0].(*testWidget)
	if len(first.args) != 3 || first.args[0] != 1 || first.args[1] != "x" || first.args[2] != true {
		t.Fatalf("unexpected args %#v", first.args)
	}
	if starts, _ := first.counts(); starts != 1 {
		t.Fatalf("expected one start, got %d", starts)
	}

	if _, ok := node.Attr(AttrWeave); ok {
		t.Fatalf("expected %s to be cleared", AttrWeave)
	}
	if woven, _ := node.Attr(AttrWoven); woven != "a/b#1 c/d#1" {
		t.Fatalf("unexpected %s: %q", AttrWoven, woven)
	}

	ev := receive(t, events)
	if got := names(ev.Widgets); !equalStrings(got, []string{"a/b#1", "c/d#1"}) {
		t.Fatalf("unexpected weave event payload %v", got)
	}
	if ev.Node != node {
		t.Fatalf("weave event carries wrong node")
	}
}

func TestWeaveSubstitutesNodeData(t *testing.T) {
	fx := newFixture()
	fx.add(t, "a/b", nil)
	e := fx.engine()

	node := element("panel", "a/b(foo, 'foo')")
	node.SetData("foo", 42)

	widgets, err := wait(t, e.Weave(context.Background(), []Node{node}))
	if err != nil {
		t.Fatalf("weave: %v", err)
	}
	args := widgets[0].(*testWidget).args
	if len(args) != 2 || args[0] != 42 || args[1] != "foo" {
		t.Fatalf("unexpected args %#v", args)
	}
}

func TestWeaveWithoutPendingDirectivesIsNoop(t *testing.T) {
	fx := newFixture()
	fx.add(t, "a/b", nil)
	e := fx.engine()

	node := element("panel", "a/b")
	if _, err := wait(t, e.Weave(context.Background(), []Node{node})); err != nil {
		t.Fatalf("first weave: %v", err)
	}

	f := e.Weave(context.Background(), []Node{node})
	if !f.Settled() {
		t.Fatalf("expected second weave to settle immediately")
	}
	widgets, err := f.Wait()
	if err != nil || len(widgets) != 0 {
		t.Fatalf("expected empty result, got %v (%v)", widgets, err)
	}
	if got := len(e.Handles(node)); got != 1 {
		t.Fatalf("expected registry of 1, got %d", got)
	}
}

func TestWeaveAttachesSingleDestroyHandler(t *testing.T) {
	fx := newFixture()
	fx.add(t, "a/b", nil)
	e := fx.engine()

	node := NewElement("panel")
	for i := 0; i < 3; i++ {
		node.SetAttr(AttrWeave, "a/b")
		if _, err := wait(t, e.Weave(context.Background(), []Node{node})); err != nil {
			t.Fatalf("weave %d: %v", i, err)
		}
	}

	if got := node.HandlerCount(EventDestroy); got != 1 {
		t.Fatalf("expected exactly one destroy handler, got %d", got)
	}
	if got := len(e.Woven([]Node{node})); got != 3 {
		t.Fatalf("expected 3 woven widgets, got %d", got)
	}
}

func TestDiscardUnweavesOnce(t *testing.T) {
	fx := newFixture()
	fx.add(t, "a/b", nil)
	e := fx.engine()

	root := NewElement("root")
	node := element("panel", "a/b")
	root.Append(node)
	unwoven := eventRecorder(node, EventUnweave)

	if _, err := wait(t, e.Weave(context.Background(), []Node{node})); err != nil {
		t.Fatalf("weave: %v", err)
	}
	node.SetAttr(AttrWeave, "")
	if _, err := wait(t, e.Weave(context.Background(), []Node{node})); err != nil {
		t.Fatalf("empty weave: %v", err)
	}

	node.Discard()
	ev := receive(t, unwoven)
	if len(ev.Widgets) != 1 {
		t.Fatalf("expected one stopped widget, got %d", len(ev.Widgets))
	}
	if _, stops := ev.Widgets[0].(*testWidget).counts(); stops != 1 {
		t.Fatalf("expected a single stop, got %d", stops)
	}
	if len(root.Children()) != 0 {
		t.Fatalf("expected node to be detached")
	}
	if got := e.Woven([]Node{node}); len(got) != 0 {
		t.Fatalf("expected nothing woven after discard, got %v", names(got))
	}
}

func TestScanRetriesAfterForget(t *testing.T) {
	fx := newFixture()
	fx.add(t, "a/b", nil)
	e := fx.engine()

	busy := element("busy", "a/b")
	if _, err := wait(t, e.Weave(context.Background(), []Node{busy})); err != nil {
		t.Fatalf("weave: %v", err)
	}
	e.forget(busy)
	if st := e.state(busy, false); st == nil || st.forgotten {
		t.Fatalf("expected state with handles to survive forget")
	}

	node := element("panel", "")
	stale := e.state(node, true)
	e.forget(node)
	if !stale.forgotten || e.state(node, false) != nil {
		t.Fatalf("expected empty state to be forgotten")
	}

	node.SetAttr(AttrWeave, "a/b")
	if _, ok := e.scanInto(node, stale); ok {
		t.Fatalf("scan registered into a forgotten state")
	}
	if weave, _ := node.Attr(AttrWeave); weave != "a/b" {
		t.Fatalf("expected data-weave untouched, got %q", weave)
	}

	widgets, err := wait(t, e.Weave(context.Background(), []Node{node}))
	if err != nil || len(widgets) != 1 {
		t.Fatalf("unexpected weave result %v (%v)", names(widgets), err)
	}
	if len(stale.registry) != 0 {
		t.Fatalf("stale state gained handles")
	}
	if got := e.Woven([]Node{node}); len(got) != 1 {
		t.Fatalf("expected the new widget to be woven, got %v", names(got))
	}
}

func TestFullUnweave(t *testing.T) {
	fx := newFixture()
	fx.add(t, "a/b", nil)
	fx.add(t, "c/d", nil)
	e := fx.engine()

	node := element("panel", "a/b c/d")
	if _, err := wait(t, e.Weave(context.Background(), []Node{node})); err != nil {
		t.Fatalf("weave: %v", err)
	}

	stopped, err := wait(t, e.Unweave(context.Background(), []Node{node}))
	if err != nil {
		t.Fatalf("unweave: %v", err)
	}
	if got := names(stopped); !equalStrings(got, []string{"a/b#1", "c/d#1"}) {
		t.Fatalf("unexpected stopped widgets %v", got)
	}
	for _, w := range stopped {
		if _, stops := w.(*testWidget).counts(); stops != 1 {
			t.Fatalf("expected %s stopped once, got %d", w, stops)
		}
	}
	if _, ok := node.Attr(AttrWoven); ok {
		t.Fatalf("expected %s removed", AttrWoven)
	}
	if got := e.Woven([]Node{node}); len(got) != 0 {
		t.Fatalf("expected nothing woven, got %v", names(got))
	}
	if weave, _ := node.Attr(AttrWeave); weave != "a/b c/d" {
		t.Fatalf("expected directives restored, got %q", weave)
	}
}

func TestSelectiveUnweave(t *testing.T) {
	fx := newFixture()
	fx.add(t, "a/b", func(w *testWidget) { w.name = "a/b#1" })
	fx.add(t, "c/d", func(w *testWidget) { w.name = "c/d#2" })
	e := fx.engine()

	node := element("panel", "a/b c/d")
	if _, err := wait(t, e.Weave(context.Background(), []Node{node})); err != nil {
		t.Fatalf("weave: %v", err)
	}

	stopped, err := wait(t, e.Unweave(context.Background(), []Node{node}, Only("a/")))
	if err != nil {
		t.Fatalf("unweave: %v", err)
	}
	if got := names(stopped); !equalStrings(got, []string{"a/b#1"}) {
		t.Fatalf("expected only a/b#1 stopped, got %v", got)
	}
	if got := names(e.Woven([]Node{node})); !equalStrings(got, []string{"c/d#2"}) {
		t.Fatalf("expected c/d#2 to remain, got %v", got)
	}
	if woven, _ := node.Attr(AttrWoven); woven != "c/d#2" {
		t.Fatalf("unexpected %s: %q", AttrWoven, woven)
	}
	if weave, _ := node.Attr(AttrWeave); weave != "a/b" {
		t.Fatalf("expected a/b restored, got %q", weave)
	}
}

func TestUnweaveFilterFromAttribute(t *testing.T) {
	fx := newFixture()
	fx.add(t, "a/b", nil)
	fx.add(t, "c/d", nil)
	fx.add(t, "e/f", nil)
	e := fx.engine()

	node := element("panel", "a/b c/d e/f")
	if _, err := wait(t, e.Weave(context.Background(), []Node{node})); err != nil {
		t.Fatalf("weave: %v", err)
	}

	node.SetAttr(AttrUnweave, "a/, e/")
	stopped, err := wait(t, e.Unweave(context.Background(), []Node{node}))
	if err != nil {
		t.Fatalf("unweave: %v", err)
	}
	if got := names(stopped); !equalStrings(got, []string{"a/b#1", "e/f#1"}) {
		t.Fatalf("unexpected stopped widgets %v", got)
	}
	if _, ok := node.Attr(AttrUnweave); ok {
		t.Fatalf("expected %s cleared", AttrUnweave)
	}
	if woven, _ := node.Attr(AttrWoven); woven != "c/d#1" {
		t.Fatalf("unexpected %s: %q", AttrWoven, woven)
	}
	if got := len(e.Handles(node)); got != 1 {
		t.Fatalf("expected registry of 1, got %d", got)
	}
}

func TestUnweaveUnmatchedFilterStopsNothing(t *testing.T) {
	fx := newFixture()
	fx.add(t, "a/b", nil)
	e := fx.engine()

	node := element("panel", "a/b")
	if _, err := wait(t, e.Weave(context.Background(), []Node{node})); err != nil {
		t.Fatalf("weave: %v", err)
	}
	stopped, err := wait(t, e.Unweave(context.Background(), []Node{node}, Only("zzz")))
	if err != nil || len(stopped) != 0 {
		t.Fatalf("expected nothing stopped, got %v (%v)", names(stopped), err)
	}
	if got := names(e.Woven([]Node{node})); !equalStrings(got, []string{"a/b#1"}) {
		t.Fatalf("expected a/b#1 still woven, got %v", got)
	}
}

func TestPartialFailureKeepsStartedSiblings(t *testing.T) {
	fx := newFixture()
	fx.add(t, "ok/widget", nil)
	e := fx.engine()

	node := element("panel", "missing/widget ok/widget")
	_, err := wait(t, e.Weave(context.Background(), []Node{node}))
	if !errors.Is(err, ErrModuleLoad) {
		t.Fatalf("expected module load error, got %v", err)
	}
	if !errors.Is(err, ErrUnknownModule) {
		t.Fatalf("expected cause to be unknown module, got %v", err)
	}
	var werr *WidgetError
	if !errors.As(err, &werr) || werr.Module != "missing/widget" || werr.Directive != "missing/widget" {
		t.Fatalf("unexpected widget error %#v", err)
	}

	handles := e.Handles(node)
	if len(handles) != 2 {
		t.Fatalf("expected both handles registered, got %d", len(handles))
	}
	if _, err := wait(t, handles[1].Started()); err != nil {
		t.Fatalf("sibling start: %v", err)
	}
	if got := names(e.Woven([]Node{node})); !equalStrings(got, []string{"ok/widget#1"}) {
		t.Fatalf("expected ok/widget#1 woven, got %v", got)
	}
	if handles[0].State() != StateStartFailed {
		t.Fatalf("expected failed handle, got %s", handles[0].State())
	}
}

func TestWeaveUnweaveRoundTrip(t *testing.T) {
	fx := newFixture()
	fx.add(t, "w/idget", nil)
	e := fx.engine()

	node := element("panel", "w/idget(1)")
	if _, err := wait(t, e.Weave(context.Background(), []Node{node})); err != nil {
		t.Fatalf("weave: %v", err)
	}
	if _, err := wait(t, e.Unweave(context.Background(), []Node{node})); err != nil {
		t.Fatalf("unweave: %v", err)
	}
	if weave, _ := node.Attr(AttrWeave); weave != "w/idget(1)" {
		t.Fatalf("expected directive text restored, got %q", weave)
	}

	widgets, err := wait(t, e.Weave(context.Background(), []Node{node}))
	if err != nil {
		t.Fatalf("reweave: %v", err)
	}
	if got := names(widgets); !equalStrings(got, []string{"w/idget#2"}) {
		t.Fatalf("expected a fresh instance, got %v", got)
	}
	if args := widgets[0].(*testWidget).args; len(args) != 1 || args[0] != 1 {
		t.Fatalf("unexpected args after reweave %#v", args)
	}
}

func TestLifecycleErrorKinds(t *testing.T) {
	boom := errors.New("boom")
	fx := newFixture()
	fx.add(t, "start/fails", func(w *testWidget) { w.startErr = boom })
	fx.add(t, "start/panics", func(w *testWidget) { w.startPanic = "kaput" })
	if err := fx.registry.Register("construct/fails", func(Node, string, ...any) (Widget, error) {
		return nil, boom
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	e := fx.engine()

	cases := []struct {
		directive string
		sentinel  error
		panics    bool
	}{
		{directive: "start/fails", sentinel: ErrStart},
		{directive: "start/panics", sentinel: ErrStart, panics: true},
		{directive: "construct/fails", sentinel: ErrConstruction},
		{directive: "nope/missing", sentinel: ErrModuleLoad},
	}
	for _, tc := range cases {
		t.Run(tc.directive, func(t *testing.T) {
			node := element(tc.directive, tc.directive)
			_, err := wait(t, e.Weave(context.Background(), []Node{node}))
			if !errors.Is(err, tc.sentinel) {
				t.Fatalf("expected %v, got %v", tc.sentinel, err)
			}
			var perr *PanicError
			if got := errors.As(err, &perr); got != tc.panics {
				t.Fatalf("panic error presence %v, want %v (%v)", got, tc.panics, err)
			}
			if _, ok := node.Attr(AttrWoven); ok {
				t.Fatalf("expected no %s after failure", AttrWoven)
			}
		})
	}
}

func TestStopFailureRejectsUnweave(t *testing.T) {
	boom := errors.New("stuck")
	fx := newFixture()
	fx.add(t, "a/b", func(w *testWidget) { w.stopErr = boom })
	fx.add(t, "c/d", nil)
	e := fx.engine()

	node := element("panel", "a/b c/d")
	if _, err := wait(t, e.Weave(context.Background(), []Node{node})); err != nil {
		t.Fatalf("weave: %v", err)
	}
	unwoven := eventRecorder(node, EventUnweave)

	_, err := wait(t, e.Unweave(context.Background(), []Node{node}))
	if !errors.Is(err, ErrStop) || !errors.Is(err, boom) {
		t.Fatalf("expected stop error, got %v", err)
	}

	ev := receive(t, unwoven)
	if got := names(ev.Widgets); !equalStrings(got, []string{"c/d#1"}) {
		t.Fatalf("expected only c/d#1 reported stopped, got %v", got)
	}
	if weave, _ := node.Attr(AttrWeave); weave != "c/d" {
		t.Fatalf("expected only c/d restored, got %q", weave)
	}
}

func TestStopFailureNeverResolvesUnweave(t *testing.T) {
	boom := errors.New("stuck")
	fx := newFixture()
	fx.add(t, "a/b", func(w *testWidget) { w.stopErr = boom })
	fx.add(t, "c/d", nil)
	fx.add(t, "e/f", nil)
	e := fx.engine()

	for i := 0; i < 200; i++ {
		node := element(fmt.Sprintf("panel-%d", i), "c/d a/b e/f")
		if _, err := wait(t, e.Weave(context.Background(), []Node{node})); err != nil {
			t.Fatalf("run %d: weave: %v", i, err)
		}
		unwoven := eventRecorder(node, EventUnweave)

		stopped, err := wait(t, e.Unweave(context.Background(), []Node{node}))
		if !errors.Is(err, ErrStop) || !errors.Is(err, boom) {
			t.Fatalf("run %d: expected stop error, got %v (stopped %v)", i, err, names(stopped))
		}
		ev := receive(t, unwoven)
		if len(ev.Widgets) != 2 {
			t.Fatalf("run %d: expected two widgets reported stopped, got %v", i, names(ev.Widgets))
		}
		if weave, _ := node.Attr(AttrWeave); weave != "c/d e/f" {
			t.Fatalf("run %d: expected c/d e/f restored, got %q", i, weave)
		}
	}
}

func TestUnweaveWaitsForPendingStart(t *testing.T) {
	gate := make(chan struct{})
	fx := newFixture()
	fx.add(t, "slow/one", func(w *testWidget) { w.startGate = gate })
	e := fx.engine()

	node := element("panel", "slow/one")
	woven := e.Weave(context.Background(), []Node{node})
	unwoven := e.Unweave(context.Background(), []Node{node})
	if unwoven.Settled() {
		t.Fatalf("unweave settled before start completed")
	}

	close(gate)
	if _, err := wait(t, woven); err != nil {
		t.Fatalf("weave: %v", err)
	}
	stopped, err := wait(t, unwoven)
	if err != nil {
		t.Fatalf("unweave: %v", err)
	}
	if len(stopped) != 1 {
		t.Fatalf("expected the pending widget to be stopped, got %d", len(stopped))
	}
	if _, stops := stopped[0].(*testWidget).counts(); stops != 1 {
		t.Fatalf("expected a single stop, got %d", stops)
	}
	if _, ok := node.Attr(AttrWoven); ok {
		t.Fatalf("expected %s removed", AttrWoven)
	}
}

func TestUnweaveDropsFailedHandles(t *testing.T) {
	fx := newFixture()
	fx.add(t, "ok/widget", nil)
	e := fx.engine()

	node := element("panel", "missing/widget ok/widget")
	_, _ = wait(t, e.Weave(context.Background(), []Node{node}))
	if _, err := wait(t, e.Handles(node)[1].Started()); err != nil {
		t.Fatalf("sibling start: %v", err)
	}

	stopped, err := wait(t, e.Unweave(context.Background(), []Node{node}))
	if err != nil {
		t.Fatalf("unweave: %v", err)
	}
	if got := names(stopped); !equalStrings(got, []string{"ok/widget#1"}) {
		t.Fatalf("unexpected stopped widgets %v", got)
	}
	if got := len(e.Handles(node)); got != 0 {
		t.Fatalf("expected empty registry, got %d", got)
	}
	if weave, _ := node.Attr(AttrWeave); weave != "ok/widget" {
		t.Fatalf("expected only started directive restored, got %q", weave)
	}
}

func TestWovenFiltersByExactName(t *testing.T) {
	fx := newFixture()
	fx.add(t, "a/b", nil)
	e := fx.engine()

	first := element("first", "a/b a/b")
	second := element("second", "a/b")
	untouched := NewElement("untouched")
	nodes := []Node{first, second, untouched}
	if _, err := wait(t, e.Weave(context.Background(), nodes)); err != nil {
		t.Fatalf("weave: %v", err)
	}

	if got := len(e.Woven(nodes)); got != 3 {
		t.Fatalf("expected 3 woven widgets, got %d", got)
	}
	got := names(e.Woven(nodes, "a/b#2", "a/b"))
	if len(got) != 1 || got[0] != "a/b#2" {
		t.Fatalf("expected exact match on a/b#2, got %v", got)
	}
	if got := e.Woven([]Node{untouched}); len(got) != 0 {
		t.Fatalf("expected nothing for untouched node, got %v", names(got))
	}
}

func TestWeaveIntoCallerFuture(t *testing.T) {
	fx := newFixture()
	fx.add(t, "a/b", nil)
	e := fx.engine()

	sink := NewFuture()
	f := e.Weave(context.Background(), []Node{element("panel", "a/b")}, Into(sink))
	if f != sink {
		t.Fatalf("expected the caller future to be returned")
	}
	widgets, err := wait(t, sink)
	if err != nil || len(widgets) != 1 {
		t.Fatalf("unexpected sink result %v (%v)", widgets, err)
	}

	again := e.Weave(context.Background(), []Node{element("other", "a/b")}, Into(sink))
	if got, _ := wait(t, again); len(got) != 1 || got[0] != widgets[0] {
		t.Fatalf("expected settled sink to keep its first result")
	}
}

func TestWeaveReportsProgress(t *testing.T) {
	fx := newFixture()
	fx.add(t, "a/b", func(w *testWidget) { w.notify = "halfway" })
	e := fx.engine()

	var (
		mu     sync.Mutex
		values []any
		states []WidgetState
	)
	f := e.Weave(context.Background(), []Node{element("panel", "a/b")}, WithProgress(func(p Progress) {
		mu.Lock()
		defer mu.Unlock()
		if p.Value != nil {
			values = append(values, p.Value)
			return
		}
		states = append(states, p.State)
	}))
	if _, err := wait(t, f); err != nil {
		t.Fatalf("weave: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(values) != 1 || values[0] != "halfway" {
		t.Fatalf("expected widget progress to propagate, got %v", values)
	}
	want := []WidgetState{StateLoading, StateConstructed, StateStarting, StateStarted}
	if len(states) != len(want) {
		t.Fatalf("expected states %v, got %v", want, states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("expected states %v, got %v", want, states)
		}
	}
}

func TestHooksInvocation(t *testing.T) {
	fx := newFixture()
	fx.add(t, "a/b", nil)

	var (
		mu     sync.Mutex
		events []string
	)
	record := func(label string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, label)
	}
	e := fx.engine(WithHooks(Hooks{
		OnTransition: func(ctx context.Context, event WidgetEvent) {
			record(fmt.Sprintf("%s:%s->%s", event.Directive.Module, event.From, event.State))
		},
		OnStarted: func(ctx context.Context, event WidgetEvent) {
			record("started:" + event.Name)
		},
		OnStopped: func(ctx context.Context, event WidgetEvent) {
			record("stopped:" + event.Name)
		},
	}))

	node := element("panel", "a/b")
	if _, err := wait(t, e.Weave(context.Background(), []Node{node})); err != nil {
		t.Fatalf("weave: %v", err)
	}
	if _, err := wait(t, e.Unweave(context.Background(), []Node{node})); err != nil {
		t.Fatalf("unweave: %v", err)
	}

	expected := []string{
		"a/b:pending->loading",
		"a/b:loading->constructed",
		"a/b:constructed->starting",
		"a/b:starting->started",
		"started:a/b#1",
		"a/b:started->stopping",
		"a/b:stopping->stopped",
		"stopped:a/b#1",
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != len(expected) {
		t.Fatalf("expected %d events, got %d (%v)", len(expected), len(events), events)
	}
	for i, want := range expected {
		if events[i] != want {
			t.Fatalf("event %d: expected %s, got %s (all %v)", i, want, events[i], events)
		}
	}
}

func TestConcurrentWeaveScansOnce(t *testing.T) {
	fx := newFixture()
	fx.add(t, "a/b", nil)
	e := fx.engine()

	node := element("panel", "a/b a/b a/b")
	var wg sync.WaitGroup
	futures := make([]*Future, 8)
	for i := range futures {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			futures[i] = e.Weave(context.Background(), []Node{node})
		}(i)
	}
	wg.Wait()

	total := 0
	for _, f := range futures {
		widgets, err := wait(t, f)
		if err != nil {
			t.Fatalf("weave: %v", err)
		}
		total += len(widgets)
	}
	if total != 3 {
		t.Fatalf("expected directives woven exactly once, got %d widgets", total)
	}
	if got := node.HandlerCount(EventDestroy); got != 1 {
		t.Fatalf("expected one destroy handler, got %d", got)
	}
}

func TestWorkerPoolDispatcherRunsLifecycle(t *testing.T) {
	fx := newFixture()
	fx.add(t, "a/b", nil)
	e := fx.engine(WithDispatcher(NewWorkerPoolDispatcher(1)))
	defer e.Close()

	nodes := make([]Node, 0, 5)
	for i := 0; i < 5; i++ {
		nodes = append(nodes, element(fmt.Sprintf("node-%d", i), "a/b a/b"))
	}
	widgets, err := wait(t, e.Weave(context.Background(), nodes))
	if err != nil {
		t.Fatalf("weave: %v", err)
	}
	if len(widgets) != 10 {
		t.Fatalf("expected 10 widgets, got %d", len(widgets))
	}
	stopped, err := wait(t, e.Unweave(context.Background(), nodes))
	if err != nil {
		t.Fatalf("unweave: %v", err)
	}
	if len(stopped) != 10 {
		t.Fatalf("expected 10 stopped widgets, got %d", len(stopped))
	}
}

func TestHandleMetricsRecorded(t *testing.T) {
	fx := newFixture()
	fx.add(t, "a/b", nil)
	e := fx.engine()

	node := element("panel", "a/b")
	if _, err := wait(t, e.Weave(context.Background(), []Node{node})); err != nil {
		t.Fatalf("weave: %v", err)
	}
	h := e.Handles(node)[0]
	if _, err := wait(t, e.Unweave(context.Background(), []Node{node})); err != nil {
		t.Fatalf("unweave: %v", err)
	}
	m := h.Metrics()
	if m.Start.StartedAt.IsZero() || m.Start.CompletedAt.Before(m.Start.StartedAt) {
		t.Fatalf("unexpected start metrics %+v", m.Start)
	}
	if m.Stop.StartedAt.IsZero() || m.Stop.CompletedAt.Before(m.Stop.StartedAt) {
		t.Fatalf("unexpected stop metrics %+v", m.Stop)
	}
	if h.State() != StateStopped {
		t.Fatalf("expected stopped handle, got %s", h.State())
	}
}
