package weave

import "context"

// destroyHandler unweaves a node when it is discarded. Each engine attaches
// at most one instance per node.
type destroyHandler struct {
	engine *Engine
}

func (h *destroyHandler) HandleEvent(ev Event) {
	if ev.Node == nil {
		return
	}
	h.engine.discard(ev.Node)
}

// guard attaches the destroy handler to node unless it is already present.
func (e *Engine) guard(node Node) {
	e.guardMu.Lock()
	defer e.guardMu.Unlock()
	if node.HasHandler(EventDestroy, e.destroy) {
		return
	}
	node.On(EventDestroy, e.destroy)
}

func (e *Engine) discard(node Node) {
	f := e.Unweave(context.Background(), []Node{node})
	go func() {
		if _, err := f.Wait(); err != nil {
			e.logger.Warn("unweave on destroy failed", "node", node.ID(), "err", err)
		}
		e.forget(node)
	}()
}
