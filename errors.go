package weave

import (
	"errors"
	"fmt"
)

var (
	// ErrModuleLoad matches failures to resolve a widget module.
	ErrModuleLoad = errors.New("weave: module load failed")
	// ErrConstruction matches failures raised by a widget factory.
	ErrConstruction = errors.New("weave: widget construction failed")
	// ErrStart matches failures raised while starting a widget.
	ErrStart = errors.New("weave: widget start failed")
	// ErrStop matches failures raised while stopping a widget.
	ErrStop = errors.New("weave: widget stop failed")
)

// ErrorKind identifies the lifecycle phase a WidgetError came from.
type ErrorKind int

const (
	KindModuleLoad ErrorKind = iota
	KindConstruction
	KindStart
	KindStop
)

func (k ErrorKind) String() string {
	switch k {
	case KindModuleLoad:
		return "load"
	case KindConstruction:
		return "construct"
	case KindStart:
		return "start"
	case KindStop:
		return "stop"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindModuleLoad:
		return ErrModuleLoad
	case KindConstruction:
		return ErrConstruction
	case KindStart:
		return ErrStart
	case KindStop:
		return ErrStop
	default:
		return nil
	}
}

// WidgetError reports a failed lifecycle transition of one directive.
// errors.Is matches both the phase sentinel and the wrapped cause.
type WidgetError struct {
	Kind      ErrorKind
	Node      string
	Module    string
	Directive string
	Err       error
}

func (e *WidgetError) Error() string {
	return fmt.Sprintf("weave: %s %s on %s: %v", e.Kind, e.Module, e.Node, e.Err)
}

func (e *WidgetError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's phase.
func (e *WidgetError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// PanicError wraps a panic recovered from a factory or widget callback.
type PanicError struct {
	Op    string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("weave: panic in %s: %v", e.Op, e.Value)
}
