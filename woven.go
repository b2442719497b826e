package weave

// Woven returns the started widgets registered on nodes, in node and
// registry order. With patterns, only widgets whose display name equals one
// of them are returned. Nodes the engine has never woven contribute nothing.
func (e *Engine) Woven(nodes []Node, patterns ...string) []Widget {
	var want map[string]struct{}
	if len(patterns) > 0 {
		want = make(map[string]struct{}, len(patterns))
		for _, p := range patterns {
			want[p] = struct{}{}
		}
	}

	var out []Widget
	for _, node := range nodes {
		if node == nil {
			continue
		}
		for _, h := range e.Handles(node) {
			if h.State() != StateStarted {
				continue
			}
			if want != nil {
				if _, ok := want[h.Name()]; !ok {
					continue
				}
			}
			out = append(out, h.Widget())
		}
	}
	return out
}
