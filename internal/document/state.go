package document

import (
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/troopjs/weave"
)

// NodeState is the rendered state of one node.
type NodeState struct {
	ID    string `yaml:"id"`
	Weave string `yaml:"weave,omitempty"`
	// Woven lists the display names of the started widgets.
	Woven   string        `yaml:"woven,omitempty"`
	Widgets []WidgetState `yaml:"widgets,omitempty"`
}

// WidgetState is the rendered state of one registered widget.
type WidgetState struct {
	Directive string `yaml:"directive"`
	Name      string `yaml:"name,omitempty"`
	State     string `yaml:"state"`
	Error     string `yaml:"error,omitempty"`
}

// Snapshot collects the attributes and registry of nodes that carry any
// weave state. Untouched nodes are omitted.
func Snapshot(e *weave.Engine, nodes []weave.Node) []NodeState {
	var out []NodeState
	for _, node := range nodes {
		state := NodeState{ID: node.ID()}
		state.Weave, _ = node.Attr(weave.AttrWeave)
		var woven []string
		for _, w := range e.Woven([]weave.Node{node}) {
			woven = append(woven, w.String())
		}
		state.Woven = strings.Join(woven, " ")
		for _, h := range e.Handles(node) {
			ws := WidgetState{
				Directive: h.Raw(),
				Name:      h.Name(),
				State:     string(h.State()),
			}
			if err := h.Err(); err != nil {
				ws.Error = err.Error()
			}
			state.Widgets = append(state.Widgets, ws)
		}
		if state.Weave == "" && state.Woven == "" && len(state.Widgets) == 0 {
			continue
		}
		out = append(out, state)
	}
	return out
}

// WriteYAML renders states as a YAML sequence.
func WriteYAML(w io.Writer, states []NodeState) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(states); err != nil {
		return err
	}
	return enc.Close()
}
