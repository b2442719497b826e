package weave

import (
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// Attribute names holding the declarative state of a node.
const (
	// AttrWeave holds directives waiting to be woven.
	AttrWeave = "data-weave"
	// AttrWoven lists the display names of started widgets, space separated.
	AttrWoven = "data-woven"
	// AttrUnweave holds an optional prefix filter for the next unweave.
	AttrUnweave = "data-unweave"
)

// Event names emitted or consumed on nodes.
const (
	EventWeave   = "weave"
	EventUnweave = "unweave"
	EventDestroy = "destroy"
)

// Event is delivered to handlers registered on a node.
type Event struct {
	Name    string
	Node    Node
	Widgets []Widget
}

// Handler receives node events.
type Handler interface {
	HandleEvent(Event)
}

// HandlerFunc adapts a function to Handler. Function values are not
// comparable, so HasHandler never reports a HandlerFunc as present.
type HandlerFunc func(Event)

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ev Event) {
	f(ev)
}

// Node is the boundary to the document tree. Implementations must be
// comparable (typically pointers) because the engine keys state by node.
type Node interface {
	ID() string
	Attr(name string) (string, bool)
	SetAttr(name, value string)
	RemoveAttr(name string)
	Data(key string) (any, bool)
	On(event string, h Handler)
	HasHandler(event string, h Handler) bool
	Trigger(ev Event)
}

// Element is an in-memory Node with parent/child links.
type Element struct {
	mu       sync.RWMutex
	id       string
	attrs    map[string]string
	data     map[string]any
	handlers map[string][]Handler

	parent   *Element
	children []*Element
}

// NewElement creates a detached element. An empty id is replaced by a UUID.
func NewElement(id string) *Element {
	if id == "" {
		id = uuid.NewString()
	}
	return &Element{
		id:       id,
		attrs:    make(map[string]string),
		data:     make(map[string]any),
		handlers: make(map[string][]Handler),
	}
}

// ID returns the element identifier.
func (e *Element) ID() string {
	return e.id
}

func (e *Element) String() string {
	return e.id
}

// Attr returns an attribute value and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.attrs[name]
	return v, ok
}

// SetAttr sets an attribute.
func (e *Element) SetAttr(name, value string) {
	e.mu.Lock()
	e.attrs[name] = value
	e.mu.Unlock()
}

// RemoveAttr deletes an attribute.
func (e *Element) RemoveAttr(name string) {
	e.mu.Lock()
	delete(e.attrs, name)
	e.mu.Unlock()
}

// Data returns a value from the element's key-value store.
func (e *Element) Data(key string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.data[key]
	return v, ok
}

// SetData stores a value in the element's key-value store.
func (e *Element) SetData(key string, value any) {
	e.mu.Lock()
	e.data[key] = value
	e.mu.Unlock()
}

// On registers h for the named event.
func (e *Element) On(event string, h Handler) {
	if h == nil {
		return
	}
	e.mu.Lock()
	e.handlers[event] = append(e.handlers[event], h)
	e.mu.Unlock()
}

// Off removes every registration of h for the named event.
func (e *Element) Off(event string, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	kept := e.handlers[event][:0]
	for _, existing := range e.handlers[event] {
		if !sameHandler(existing, h) {
			kept = append(kept, existing)
		}
	}
	e.handlers[event] = kept
}

// HasHandler reports whether h is registered for the named event.
func (e *Element) HasHandler(event string, h Handler) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, existing := range e.handlers[event] {
		if sameHandler(existing, h) {
			return true
		}
	}
	return false
}

// HandlerCount returns the number of handlers registered for the named event.
func (e *Element) HandlerCount(event string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers[event])
}

// Trigger synchronously invokes the handlers registered for ev.Name.
func (e *Element) Trigger(ev Event) {
	if ev.Node == nil {
		ev.Node = e
	}
	e.mu.RLock()
	handlers := append([]Handler(nil), e.handlers[ev.Name]...)
	e.mu.RUnlock()
	for _, h := range handlers {
		h.HandleEvent(ev)
	}
}

// Append attaches children to e and returns e.
func (e *Element) Append(children ...*Element) *Element {
	for _, child := range children {
		if child == nil {
			continue
		}
		child.detach()
		e.mu.Lock()
		e.children = append(e.children, child)
		e.mu.Unlock()
		child.mu.Lock()
		child.parent = e
		child.mu.Unlock()
	}
	return e
}

// Parent returns the parent element, or nil for a root.
func (e *Element) Parent() *Element {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.parent
}

// Children returns a copy of the child list.
func (e *Element) Children() []*Element {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*Element(nil), e.children...)
}

// Find returns e and its descendants matching pred in document order.
// A nil pred matches every element.
func (e *Element) Find(pred func(*Element) bool) []Node {
	var out []Node
	e.walk(func(el *Element) {
		if pred == nil || pred(el) {
			out = append(out, el)
		}
	})
	return out
}

// HasAttr returns a Find predicate matching elements carrying the attribute.
func HasAttr(name string) func(*Element) bool {
	return func(el *Element) bool {
		_, ok := el.Attr(name)
		return ok
	}
}

// Discard removes e from its parent and emits EventDestroy on every element
// of the subtree, children first.
func (e *Element) Discard() {
	e.detach()
	var subtree []*Element
	e.walk(func(el *Element) {
		subtree = append(subtree, el)
	})
	for i := len(subtree) - 1; i >= 0; i-- {
		subtree[i].Trigger(Event{Name: EventDestroy, Node: subtree[i]})
	}
}

func (e *Element) walk(visit func(*Element)) {
	visit(e)
	for _, child := range e.Children() {
		child.walk(visit)
	}
}

func (e *Element) detach() {
	parent := e.Parent()
	if parent == nil {
		return
	}
	parent.mu.Lock()
	for i, child := range parent.children {
		if child == e {
			parent.children = append(parent.children[:i], parent.children[i+1:]...)
			break
		}
	}
	parent.mu.Unlock()
	e.mu.Lock()
	e.parent = nil
	e.mu.Unlock()
}

func sameHandler(a, b Handler) bool {
	if a == nil || b == nil {
		return false
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}
