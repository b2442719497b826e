package weave

import "context"

// Weave scans every node carrying data-weave, starts the widgets its
// directives name, and returns a future resolving with all newly started
// widgets in node and directive order. The future rejects with the first
// failure observed; sibling widgets keep running and stay registered.
// Nodes without data-weave contribute nothing.
func (e *Engine) Weave(ctx context.Context, nodes []Node, opts ...CallOption) *Future {
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
		if f, launch := e.weaveNode(ctx, node, callID); f != nil {
			futures = append(futures, f)
			launches = append(launches, launch)
		}
	}
	e.logger.Debug("weave", "call", callID, "nodes", len(futures))

	whenAllInto(cfg.sink, futures)
	for _, launch := range launches {
		launch()
	}
	return cfg.sink
}

// weaveNode prepares the node-level future. Handles start only once launch
// runs, after the caller has subscribed to the future's progress.
func (e *Engine) weaveNode(ctx context.Context, node Node, callID string) (*Future, func()) {
	if _, ok := node.Attr(AttrWeave); !ok {
		return nil, nil
	}
	e.guard(node)

	handles := e.scan(node)
	if len(handles) == 0 {
		return resolved(nil), func() {}
	}

	started := make([]*Future, len(handles))
	for i, h := range handles {
		started[i] = h.started
	}

	out := NewFuture()
	all := WhenAll(started...)
	all.OnProgress(out.Notify)
	go func() {
		widgets, err := all.Wait()
		if err != nil {
			e.logger.Warn("weave failed", "call", callID, "node", node.ID(), "err", err)
			out.Reject(err)
			for _, f := range started {
				<-f.Done()
			}
			e.refreshWoven(node)
			return
		}
		e.refreshWoven(node)
		node.Trigger(Event{Name: EventWeave, Node: node, Widgets: widgets})
		out.Resolve(widgets)
	}()
	return out, func() {
		for _, h := range handles {
			e.startHandle(ctx, h)
		}
	}
}

// scan consumes data-weave and appends one handle per directive to the
// registry. Reading and clearing the attribute happen under the node lock so
// concurrent scans never see the same text.
func (e *Engine) scan(node Node) []*Handle {
	for {
		if handles, ok := e.scanInto(node, e.state(node, true)); ok {
			return handles
		}
	}
}

// scanInto registers the directives of node in st. It reports false without
// touching node when st was forgotten concurrently.
func (e *Engine) scanInto(node Node, st *nodeState) ([]*Handle, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.forgotten {
		return nil, false
	}

	text, ok := node.Attr(AttrWeave)
	if !ok {
		return nil, true
	}
	node.RemoveAttr(AttrWeave)

	directives := ParseDirectives(node, text)
	handles := make([]*Handle, 0, len(directives))
	for _, d := range directives {
		h := newHandle(d)
		handles = append(handles, h)
		st.registry = append(st.registry, h)
	}
	return handles, true
}

// refreshWoven recomputes data-woven once the handles of a scan have settled.
func (e *Engine) refreshWoven(node Node) {
	st := e.state(node, false)
	if st == nil {
		return
	}
	st.mu.Lock()
	syncWoven(node, st)
	st.mu.Unlock()
}
