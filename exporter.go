package weave

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNilWriter indicates that a nil writer was provided to an exporter.
var ErrNilWriter = errors.New("weave: nil writer")

// DOTOption configures the behaviour of ExportDOT.
type DOTOption func(*dotConfig)

type dotConfig struct {
	graphName string
	rankDir   string
	all       bool
}

func defaultDOTConfig() dotConfig {
	return dotConfig{
		graphName: "weave",
		rankDir:   "LR",
	}
}

// DOTWithGraphName overrides the DOT graph identifier.
func DOTWithGraphName(name string) DOTOption {
	return func(cfg *dotConfig) {
		if name != "" {
			cfg.graphName = name
		}
	}
}

// DOTWithRankDir sets the rank direction (e.g. "LR", "TB") for the exported DOT graph.
func DOTWithRankDir(rankDir string) DOTOption {
	return func(cfg *dotConfig) {
		if rankDir != "" {
			cfg.rankDir = rankDir
		}
	}
}

// DOTWithUnwoven includes nodes that have no registered widgets.
func DOTWithUnwoven() DOTOption {
	return func(cfg *dotConfig) {
		cfg.all = true
	}
}

// ExportDOT renders nodes and the widgets registered on them in Graphviz DOT
// format. Each widget is labelled with its display name, or its directive
// while it has none, and its lifecycle state.
func (e *Engine) ExportDOT(w io.Writer, nodes []Node, opts ...DOTOption) error {
	if w == nil {
		return ErrNilWriter
	}

	cfg := defaultDOTConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, err := fmt.Fprintf(w, "digraph %s {\n", dotQuoteIdentifier(cfg.graphName)); err != nil {
		return err
	}
	if cfg.rankDir != "" {
		if _, err := fmt.Fprintf(w, "    rankdir=%s;\n", cfg.rankDir); err != nil {
			return err
		}
	}

	for _, node := range nodes {
		if node == nil {
			continue
		}
		handles := e.Handles(node)
		if len(handles) == 0 && !cfg.all {
			continue
		}
		id := node.ID()
		if _, err := fmt.Fprintf(w, "    %s [shape=box];\n", dotQuoteIdentifier(id)); err != nil {
			return err
		}
		for i, h := range handles {
			widgetID := fmt.Sprintf("%s/%d", id, i)
			label := h.Name()
			if label == "" {
				label = h.Raw()
			}
			label = fmt.Sprintf("%s\n%s", label, h.State())
			if _, err := fmt.Fprintf(w, "    %s [label=%s];\n", dotQuoteIdentifier(widgetID), dotQuoteIdentifier(label)); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "    %s -> %s;\n", dotQuoteIdentifier(id), dotQuoteIdentifier(widgetID)); err != nil {
				return err
			}
		}
	}

	_, err := io.WriteString(w, "}\n")
	return err
}

func dotQuoteIdentifier(name string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range name {
		switch r {
		case '\\', '"':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
