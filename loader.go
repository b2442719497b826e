package weave

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Widget is a behaviour attached to a node. Start and Stop may block; the
// engine runs them off the caller's goroutine. String must return a stable
// display name that is unique per instance.
type Widget interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	String() string
}

// Factory constructs a widget for a directive.
type Factory func(node Node, module string, args ...any) (Widget, error)

// Loader resolves module names to factories.
type Loader interface {
	Load(ctx context.Context, module string) (Factory, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, module string) (Factory, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, module string) (Factory, error) {
	return f(ctx, module)
}

var (
	// ErrUnknownModule indicates no factory is registered under a module name.
	ErrUnknownModule = errors.New("weave: unknown module")
	// ErrModuleExists indicates a module name collision within a registry.
	ErrModuleExists = errors.New("weave: module already registered")
	// ErrEmptyModuleName indicates a factory was registered without a name.
	ErrEmptyModuleName = errors.New("weave: module name must not be empty")
	// ErrNilFactory indicates a nil factory was registered.
	ErrNilFactory = errors.New("weave: factory must not be nil")
)

// Registry is an in-memory Loader.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under module.
func (r *Registry) Register(module string, factory Factory) error {
	if module == "" {
		return ErrEmptyModuleName
	}
	if factory == nil {
		return ErrNilFactory
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[module]; exists {
		return fmt.Errorf("%w: %s", ErrModuleExists, module)
	}
	r.factories[module] = factory
	return nil
}

// Load returns the factory registered under module.
func (r *Registry) Load(ctx context.Context, module string) (Factory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	factory, ok := r.factories[module]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, module)
	}
	return factory, nil
}

// Modules returns the registered module names in sorted order.
func (r *Registry) Modules() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}
