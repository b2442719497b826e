package weave

import (
	"fmt"
	"sync"
	"time"
)

// now is overridden in tests to provide deterministic timings.
var now = time.Now

// WidgetState captures where a directive is in its lifecycle.
type WidgetState string

const (
	StatePending     WidgetState = "pending"
	StateLoading     WidgetState = "loading"
	StateConstructed WidgetState = "constructed"
	StateStarting    WidgetState = "starting"
	StateStarted     WidgetState = "started"
	StateStartFailed WidgetState = "start-failed"
	StateStopping    WidgetState = "stopping"
	StateStopped     WidgetState = "stopped"
	StateStopFailed  WidgetState = "stop-failed"
)

// Failed reports whether s is a failure state.
func (s WidgetState) Failed() bool {
	return s == StateStartFailed || s == StateStopFailed
}

func allowedTransition(from, to WidgetState) bool {
	switch from {
	case StatePending:
		return to == StateLoading
	case StateLoading:
		return to == StateConstructed || to == StateStartFailed
	case StateConstructed:
		return to == StateStarting || to == StateStartFailed
	case StateStarting:
		return to == StateStarted || to == StateStartFailed
	case StateStarted:
		return to == StateStopping
	case StateStopping:
		return to == StateStopped || to == StateStopFailed
	default:
		return false
	}
}

// PhaseMetrics records timing for the start or stop phase of a handle.
type PhaseMetrics struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
}

// HandleMetrics aggregates per-phase timings.
type HandleMetrics struct {
	Start PhaseMetrics
	Stop  PhaseMetrics
}

// Handle tracks one directive from module load to stop. Each phase settles
// exactly once: Started() for load/construct/start, Stopped() for stop.
type Handle struct {
	directive Directive

	mu      sync.RWMutex
	state   WidgetState
	widget  Widget
	name    string
	err     error
	metrics HandleMetrics

	started *Future
	stopped *Future
}

func newHandle(d Directive) *Handle {
	return &Handle{
		directive: d,
		state:     StatePending,
		started:   NewFuture(),
		stopped:   NewFuture(),
	}
}

// Directive returns the directive the handle was created from.
func (h *Handle) Directive() Directive {
	return h.directive
}

// Raw returns the directive text as written.
func (h *Handle) Raw() string {
	return h.directive.Raw
}

// Module returns the module name.
func (h *Handle) Module() string {
	return h.directive.Module
}

// State returns the current lifecycle state.
func (h *Handle) State() WidgetState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Widget returns the constructed widget, or nil before construction.
func (h *Handle) Widget() Widget {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.widget
}

// Name returns the display name, empty until the widget has started.
func (h *Handle) Name() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.name
}

// Err returns the failure recorded for the handle, if any.
func (h *Handle) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Metrics returns a snapshot of the phase timings.
func (h *Handle) Metrics() HandleMetrics {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.metrics
}

// Started settles when the start phase completes.
func (h *Handle) Started() *Future {
	return h.started
}

// Stopped settles when the stop phase completes. It stays pending for
// handles that are never unwoven.
func (h *Handle) Stopped() *Future {
	return h.stopped
}

func (h *Handle) transition(to WidgetState) (WidgetState, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	from := h.state
	if !allowedTransition(from, to) {
		return from, fmt.Errorf("weave: disallowed transition for %s: %s -> %s", h.directive.Module, from, to)
	}
	h.state = to
	switch to {
	case StateLoading:
		h.metrics.Start.StartedAt = now()
	case StateStopping:
		h.metrics.Stop.StartedAt = now()
	case StateStarted, StateStartFailed:
		completePhase(&h.metrics.Start)
	case StateStopped, StateStopFailed:
		completePhase(&h.metrics.Stop)
	}
	return from, nil
}

func completePhase(m *PhaseMetrics) {
	m.CompletedAt = now()
	if !m.StartedAt.IsZero() {
		m.Duration = m.CompletedAt.Sub(m.StartedAt)
	}
}

func (h *Handle) setWidget(w Widget) {
	h.mu.Lock()
	h.widget = w
	h.mu.Unlock()
}

func (h *Handle) setName(name string) {
	h.mu.Lock()
	h.name = name
	h.mu.Unlock()
}

func (h *Handle) setErr(err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
}
