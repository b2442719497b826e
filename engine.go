package weave

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	logger     *log.Logger
	hooks      Hooks
	dispatcher Dispatcher
}

func defaultEngineOptions() engineOptions {
	return engineOptions{
		logger: log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "weave",
			Level:  log.WarnLevel,
		}),
		dispatcher: goroutineDispatcher{},
	}
}

// WithLogger replaces the default stderr logger.
func WithLogger(logger *log.Logger) EngineOption {
	return func(opts *engineOptions) {
		if logger != nil {
			opts.logger = logger
		}
	}
}

// WithHooks registers lifecycle hooks applied to every handle.
func WithHooks(h Hooks) EngineOption {
	return func(opts *engineOptions) {
		opts.hooks = opts.hooks.Merge(h)
	}
}

// WithDispatcher supplies the dispatcher that runs load, start and stop steps.
func WithDispatcher(dispatcher Dispatcher) EngineOption {
	return func(opts *engineOptions) {
		if dispatcher != nil {
			opts.dispatcher = dispatcher
		}
	}
}

// CallOption configures a single Weave or Unweave call.
type CallOption func(*callOptions)

type callOptions struct {
	sink     *Future
	only     []string
	progress func(Progress)
}

// Into settles the call's outcome into sink instead of a new future, so
// several calls can share one caller-owned future. A sink that has already
// settled is left untouched.
func Into(sink *Future) CallOption {
	return func(opts *callOptions) {
		opts.sink = sink
	}
}

// Only restricts Unweave to widgets whose display name starts with one of
// the prefixes. It overrides the node's data-unweave attribute.
func Only(prefixes ...string) CallOption {
	return func(opts *callOptions) {
		for _, p := range prefixes {
			opts.only = append(opts.only, splitFilter(p)...)
		}
	}
}

// WithProgress registers fn for progress notifications of the call.
func WithProgress(fn func(Progress)) CallOption {
	return func(opts *callOptions) {
		opts.progress = fn
	}
}

func newCallOptions(opts []CallOption) callOptions {
	var cfg callOptions
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sink == nil {
		cfg.sink = NewFuture()
	}
	cfg.sink.OnProgress(cfg.progress)
	return cfg
}

// Engine weaves and unweaves widgets on nodes. It owns the widget registry
// of every node it has woven.
type Engine struct {
	loader     Loader
	logger     *log.Logger
	hooks      Hooks
	dispatcher Dispatcher
	destroy    *destroyHandler

	mu    sync.Mutex
	nodes map[Node]*nodeState

	guardMu sync.Mutex
}

type nodeState struct {
	mu       sync.Mutex
	registry []*Handle
	// forgotten is set once the state left Engine.nodes. Callers holding it
	// must look the node up again.
	forgotten bool
}

// New returns an engine resolving modules through loader.
func New(loader Loader, opts ...EngineOption) *Engine {
	cfg := defaultEngineOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	e := &Engine{
		loader:     loader,
		logger:     cfg.logger,
		hooks:      cfg.hooks,
		dispatcher: cfg.dispatcher,
		nodes:      make(map[Node]*nodeState),
	}
	e.destroy = &destroyHandler{engine: e}
	return e
}

// Close stops the engine's dispatcher. Widgets stay in whatever state they
// reached; call Unweave first to stop them.
func (e *Engine) Close() {
	e.dispatcher.Stop()
}

// Handles returns a snapshot of the registry of node in registry order.
func (e *Engine) Handles(node Node) []*Handle {
	st := e.state(node, false)
	if st == nil {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]*Handle(nil), st.registry...)
}

func (e *Engine) state(node Node, create bool) *nodeState {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.nodes[node]
	if !ok && create {
		st = &nodeState{}
		e.nodes[node] = st
	}
	return st
}

// forget drops the state of node once its registry is empty.
func (e *Engine) forget(node Node) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.nodes[node]
	if !ok {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.registry) == 0 {
		st.forgotten = true
		delete(e.nodes, node)
	}
}

// syncWoven rewrites AttrWoven from the started handles of the registry.
// The caller holds st.mu.
func syncWoven(node Node, st *nodeState) {
	names := make([]string, 0, len(st.registry))
	for _, h := range st.registry {
		if h.State() == StateStarted {
			names = append(names, h.Name())
		}
	}
	if len(names) == 0 {
		node.RemoveAttr(AttrWoven)
		return
	}
	node.SetAttr(AttrWoven, strings.Join(names, " "))
}

func newCallID() string {
	return uuid.NewString()[:8]
}

// startHandle drives h through load, construct and start on the dispatcher.
func (e *Engine) startHandle(ctx context.Context, h *Handle) {
	e.dispatcher.Submit(func() {
		d := h.Directive()
		ctx := withReporter(ctx, func(value any) {
			h.started.Notify(Progress{Node: d.Node, Module: d.Module, State: h.State(), Value: value})
		})

		e.advance(ctx, h, StateLoading)
		factory, err := e.load(ctx, d.Module)
		if err != nil {
			e.failStart(ctx, h, KindModuleLoad, err)
			return
		}

		widget, err := construct(factory, d)
		if err != nil {
			e.failStart(ctx, h, KindConstruction, err)
			return
		}
		h.setWidget(widget)
		e.advance(ctx, h, StateConstructed)

		e.advance(ctx, h, StateStarting)
		if err := guard("start "+d.Module, func() error { return widget.Start(ctx) }); err != nil {
			e.failStart(ctx, h, KindStart, err)
			return
		}
		h.setName(widget.String())
		e.advance(ctx, h, StateStarted)
		h.started.Resolve([]Widget{widget})
	})
}

// stopHandle waits for the start phase of h and then stops its widget.
// Handles that never started resolve Stopped() with no widgets.
func (e *Engine) stopHandle(ctx context.Context, h *Handle) {
	go func() {
		if _, err := h.started.Wait(); err != nil {
			h.stopped.Resolve(nil)
			return
		}
		e.dispatcher.Submit(func() {
			d := h.Directive()
			widget := h.Widget()
			ctx := withReporter(ctx, func(value any) {
				h.stopped.Notify(Progress{Node: d.Node, Module: d.Module, State: h.State(), Value: value})
			})
			if !e.advance(ctx, h, StateStopping) {
				h.stopped.Resolve(nil)
				return
			}
			if err := guard("stop "+d.Module, func() error { return widget.Stop(ctx) }); err != nil {
				werr := e.widgetError(KindStop, d, err)
				h.setErr(werr)
				e.advance(ctx, h, StateStopFailed)
				h.stopped.Reject(werr)
				return
			}
			e.advance(ctx, h, StateStopped)
			h.stopped.Resolve([]Widget{widget})
		})
	}()
}

func (e *Engine) load(ctx context.Context, module string) (factory Factory, err error) {
	err = guard("load "+module, func() error {
		var loadErr error
		factory, loadErr = e.loader.Load(ctx, module)
		return loadErr
	})
	if err == nil && factory == nil {
		err = fmt.Errorf("%w: %s", ErrNilFactory, module)
	}
	return factory, err
}

func construct(factory Factory, d Directive) (widget Widget, err error) {
	err = guard("construct "+d.Module, func() error {
		var constructErr error
		widget, constructErr = factory(d.Node, d.Module, d.Args...)
		return constructErr
	})
	if err == nil && widget == nil {
		err = fmt.Errorf("weave: factory for %s returned no widget", d.Module)
	}
	return widget, err
}

func (e *Engine) failStart(ctx context.Context, h *Handle, kind ErrorKind, err error) {
	werr := e.widgetError(kind, h.Directive(), err)
	h.setErr(werr)
	e.advance(ctx, h, StateStartFailed)
	h.started.Reject(werr)
}

func (e *Engine) widgetError(kind ErrorKind, d Directive, err error) *WidgetError {
	return &WidgetError{
		Kind:      kind,
		Node:      nodeID(d.Node),
		Module:    d.Module,
		Directive: d.Raw,
		Err:       err,
	}
}

// advance transitions h, then logs, reports progress and runs hooks.
func (e *Engine) advance(ctx context.Context, h *Handle, to WidgetState) bool {
	from, err := h.transition(to)
	d := h.Directive()
	if err != nil {
		e.logger.Error("lifecycle violation", "node", nodeID(d.Node), "module", d.Module, "err", err)
		return false
	}

	event := WidgetEvent{
		Node:      d.Node,
		Directive: d,
		From:      from,
		State:     to,
		Name:      h.Name(),
		Widget:    h.Widget(),
		Err:       h.Err(),
		Metrics:   h.Metrics(),
	}
	if to.Failed() {
		e.logger.Warn("widget failed", "node", nodeID(d.Node), "module", d.Module, "state", to, "err", event.Err)
	} else {
		e.logger.Debug("widget transition", "node", nodeID(d.Node), "module", d.Module, "from", from, "state", to)
	}

	phase := h.started
	if to == StateStopping || to == StateStopped || to == StateStopFailed {
		phase = h.stopped
	}
	phase.Notify(Progress{Node: d.Node, Module: d.Module, State: to})
	e.hooks.dispatch(ctx, event)
	return true
}

// guard runs fn, converting a panic into a PanicError.
func guard(op string, fn func() error) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = &PanicError{Op: op, Value: recovered}
		}
	}()
	return fn()
}

func nodeID(node Node) string {
	if node == nil {
		return ""
	}
	return node.ID()
}
