package weave

import "context"

// WidgetEvent is passed to hook callbacks to describe a lifecycle transition.
type WidgetEvent struct {
	Node      Node
	Directive Directive
	From      WidgetState
	State     WidgetState
	// Name is the display name, set once the widget has started.
	Name    string
	Widget  Widget
	Err     error
	Metrics HandleMetrics
}

// HookFunc is invoked for lifecycle notifications.
type HookFunc func(context.Context, WidgetEvent)

// Hooks aggregates optional lifecycle callbacks.
type Hooks struct {
	// OnTransition runs for every state change.
	OnTransition HookFunc
	OnStarted    HookFunc
	OnStopped    HookFunc
	// OnFailure runs when a handle enters StartFailed or StopFailed.
	OnFailure HookFunc
}

// Merge combines two hook sets, running the receiver first.
func (h Hooks) Merge(other Hooks) Hooks {
	return Hooks{
		OnTransition: chainHooks(h.OnTransition, other.OnTransition),
		OnStarted:    chainHooks(h.OnStarted, other.OnStarted),
		OnStopped:    chainHooks(h.OnStopped, other.OnStopped),
		OnFailure:    chainHooks(h.OnFailure, other.OnFailure),
	}
}

func chainHooks(first, second HookFunc) HookFunc {
	switch {
	case first == nil:
		return second
	case second == nil:
		return first
	default:
		return func(ctx context.Context, event WidgetEvent) {
			first(ctx, event)
			second(ctx, event)
		}
	}
}

func (h Hooks) dispatch(ctx context.Context, event WidgetEvent) {
	if h.OnTransition != nil {
		h.OnTransition(ctx, event)
	}
	var hook HookFunc
	switch event.State {
	case StateStarted:
		hook = h.OnStarted
	case StateStopped:
		hook = h.OnStopped
	case StateStartFailed, StateStopFailed:
		hook = h.OnFailure
	}
	if hook != nil {
		hook(ctx, event)
	}
}
