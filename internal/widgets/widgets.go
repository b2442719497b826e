// Package widgets provides the demo modules available to the weave CLI.
package widgets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/troopjs/weave"
)

// Module names registered by Set.Register.
const (
	Echo    = "demo/echo"
	Counter = "demo/counter"
	Slow    = "demo/slow"
	Fail    = "demo/fail"
	Broken  = "demo/broken"
)

// ErrBroken is returned by the demo/broken factory.
var ErrBroken = errors.New("widgets: broken module")

// Set registers demo modules and numbers their instances per module, so
// display names read demo/echo#1, demo/echo#2 and so on.
type Set struct {
	logger *log.Logger

	mu  sync.Mutex
	seq map[string]int
}

// New returns a Set whose widgets log through logger.
func New(logger *log.Logger) *Set {
	if logger == nil {
		logger = log.Default()
	}
	return &Set{
		logger: logger,
		seq:    make(map[string]int),
	}
}

// Register adds every demo module to reg.
func (s *Set) Register(reg *weave.Registry) error {
	factories := map[string]weave.Factory{
		Echo:    s.echo,
		Counter: s.counter,
		Slow:    s.slow,
		Fail:    s.fail,
		Broken: func(weave.Node, string, ...any) (weave.Widget, error) {
			return nil, ErrBroken
		},
	}
	for _, module := range []string{Echo, Counter, Slow, Fail, Broken} {
		if err := reg.Register(module, factories[module]); err != nil {
			return fmt.Errorf("register %s: %w", module, err)
		}
	}
	return nil
}

func (s *Set) base(node weave.Node, module string) base {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[module]++
	return base{
		name:   fmt.Sprintf("%s#%d", module, s.seq[module]),
		node:   node.ID(),
		logger: s.logger,
	}
}

type base struct {
	name   string
	node   string
	logger *log.Logger
}

func (b base) String() string {
	return b.name
}

func (b base) Stop(ctx context.Context) error {
	b.logger.Debug("stop", "widget", b.name, "node", b.node)
	return nil
}

// EchoWidget logs its arguments when started.
type EchoWidget struct {
	base
	Text string
}

func (s *Set) echo(node weave.Node, module string, args ...any) (weave.Widget, error) {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = fmt.Sprint(arg)
	}
	return &EchoWidget{base: s.base(node, module), Text: strings.Join(parts, " ")}, nil
}

func (w *EchoWidget) Start(ctx context.Context) error {
	w.logger.Info("echo", "widget", w.name, "node", w.node, "text", w.Text)
	return nil
}

// CounterWidget counts how many times it has been started. Its first
// argument, when an integer, is the initial value.
type CounterWidget struct {
	base

	mu    sync.Mutex
	value int
}

func (s *Set) counter(node weave.Node, module string, args ...any) (weave.Widget, error) {
	w := &CounterWidget{base: s.base(node, module)}
	if len(args) > 0 {
		initial, ok := args[0].(int)
		if !ok {
			return nil, fmt.Errorf("widgets: %s expects an integer, got %T", module, args[0])
		}
		w.value = initial
	}
	return w, nil
}

func (w *CounterWidget) Start(ctx context.Context) error {
	w.mu.Lock()
	w.value++
	value := w.value
	w.mu.Unlock()
	w.logger.Debug("count", "widget", w.name, "value", value)
	return nil
}

// Value returns the current count.
func (w *CounterWidget) Value() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value
}

// SlowWidget takes Steps ticks of Delay to start and stop, reporting each
// tick as progress.
type SlowWidget struct {
	base
	Steps int
	Delay time.Duration
}

func (s *Set) slow(node weave.Node, module string, args ...any) (weave.Widget, error) {
	w := &SlowWidget{base: s.base(node, module), Steps: 3, Delay: 10 * time.Millisecond}
	if len(args) > 0 {
		ms, ok := args[0].(int)
		if !ok || ms < 0 {
			return nil, fmt.Errorf("widgets: %s expects a non-negative delay in milliseconds, got %v", module, args[0])
		}
		w.Delay = time.Duration(ms) * time.Millisecond
	}
	if len(args) > 1 {
		steps, ok := args[1].(int)
		if !ok || steps < 1 {
			return nil, fmt.Errorf("widgets: %s expects a positive step count, got %v", module, args[1])
		}
		w.Steps = steps
	}
	return w, nil
}

func (w *SlowWidget) Start(ctx context.Context) error {
	return w.tick(ctx, "start")
}

func (w *SlowWidget) Stop(ctx context.Context) error {
	return w.tick(ctx, "stop")
}

func (w *SlowWidget) tick(ctx context.Context, phase string) error {
	timer := time.NewTimer(w.Delay)
	defer timer.Stop()
	for i := 1; i <= w.Steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		weave.Notify(ctx, fmt.Sprintf("%s %d/%d", phase, i, w.Steps))
		timer.Reset(w.Delay)
	}
	return nil
}

// FailWidget fails to start with its first argument as the message.
type FailWidget struct {
	base
	Reason string
}

func (s *Set) fail(node weave.Node, module string, args ...any) (weave.Widget, error) {
	reason := "demo failure"
	if len(args) > 0 {
		reason = fmt.Sprint(args[0])
	}
	return &FailWidget{base: s.base(node, module), Reason: reason}, nil
}

func (w *FailWidget) Start(ctx context.Context) error {
	return errors.New(w.Reason)
}
