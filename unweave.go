package weave

import (
	"context"
	"strings"
)

// Unweave stops widgets registered on nodes. Without a filter every widget
// is stopped; with Only or a data-unweave attribute, only widgets whose
// display name starts with one of the prefixes. Stopped widgets leave the
// registry and their directive text is appended to data-weave so a later
// Weave recreates them.
func (e *Engine) Unweave(ctx context.Context, nodes []Node, opts ...CallOption) *Future {
	cfg := newCallOptions(opts)
	callID := newCallID()

	var (
		futures  []*Future
		launches []func()
	)
	for _, node := range nodes {
		if node == nil {
			continue
		}
		if f, launch := e.unweaveNode(ctx, node, cfg.only, callID); f != nil {
			futures = append(futures, f)
			launches = append(launches, launch)
		}
	}
	e.logger.Debug("unweave", "call", callID, "nodes", len(futures))

	whenAllInto(cfg.sink, futures)
	for _, launch := range launches {
		launch()
	}
	return cfg.sink
}

func (e *Engine) unweaveNode(ctx context.Context, node Node, only []string, callID string) (*Future, func()) {
	filter, _ := node.Attr(AttrUnweave)
	node.RemoveAttr(AttrUnweave)

	st := e.state(node, false)
	if st == nil {
		return nil, nil
	}

	prefixes := only
	if len(prefixes) == 0 {
		prefixes = splitFilter(filter)
	}

	selected := e.selectHandles(node, st, prefixes)
	if len(selected) == 0 {
		return nil, nil
	}

	stops := make([]*Future, len(selected))
	for i, h := range selected {
		stops[i] = h.stopped
	}

	out := NewFuture()
	for _, f := range stops {
		f.OnProgress(out.Notify)
	}
	go func() {
		var (
			widgets  []Widget
			raws     []string
			firstErr error
		)
		for i, f := range stops {
			stopped, err := f.Wait()
			if err != nil {
				if firstErr == nil {
					firstErr = err
					e.logger.Warn("unweave failed", "call", callID, "node", node.ID(), "err", err)
					out.Reject(err)
				}
				continue
			}
			if len(stopped) == 0 {
				continue
			}
			widgets = append(widgets, stopped...)
			raws = append(raws, selected[i].Raw())
		}

		st.mu.Lock()
		syncWoven(node, st)
		restoreDirectives(node, raws)
		st.mu.Unlock()

		node.Trigger(Event{Name: EventUnweave, Node: node, Widgets: widgets})
		if firstErr == nil {
			out.Resolve(widgets)
		}
	}()
	return out, func() {
		for _, h := range selected {
			e.stopHandle(ctx, h)
		}
	}
}

// selectHandles removes the handles to stop from the registry, keeping the
// remaining entries in order, and refreshes data-woven.
func (e *Engine) selectHandles(node Node, st *nodeState, prefixes []string) []*Handle {
	st.mu.Lock()
	defer st.mu.Unlock()

	var selected []*Handle
	if len(prefixes) == 0 {
		selected = st.registry
		st.registry = nil
	} else {
		kept := st.registry[:0]
		for _, h := range st.registry {
			if matchesPrefix(h.Name(), prefixes) {
				selected = append(selected, h)
				continue
			}
			kept = append(kept, h)
		}
		for i := len(kept); i < len(st.registry); i++ {
			st.registry[i] = nil
		}
		st.registry = kept
	}
	syncWoven(node, st)
	return selected
}

func matchesPrefix(name string, prefixes []string) bool {
	if name == "" {
		return false
	}
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// restoreDirectives appends raws to data-weave, removing the attribute when
// the result is empty.
func restoreDirectives(node Node, raws []string) {
	var parts []string
	if current, ok := node.Attr(AttrWeave); ok && current != "" {
		parts = append(parts, current)
	}
	parts = append(parts, raws...)
	if len(parts) == 0 {
		node.RemoveAttr(AttrWeave)
		return
	}
	node.SetAttr(AttrWeave, strings.Join(parts, " "))
}
