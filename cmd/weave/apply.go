package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/troopjs/weave"
	"github.com/troopjs/weave/internal/document"
)

type applyOptions struct {
	unweave     []string
	fullUnweave bool
}

func newApplyCmd(a *app) *cobra.Command {
	var opts applyOptions
	cmd := &cobra.Command{
		Use:   "apply FILE",
		Short: "Weave a YAML document and print the resulting state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.apply(cmd.Context(), args[0], opts)
		},
	}
	cmd.Flags().StringArrayVar(&opts.unweave, "unweave", nil, "after weaving, stop widgets whose name starts with PREFIX (repeatable)")
	cmd.Flags().BoolVar(&opts.fullUnweave, "full-unweave", false, "after weaving, unweave every node (data-unweave filters still apply)")
	return cmd
}

func (a *app) apply(ctx context.Context, path string, opts applyOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	doc, err := document.Load(path)
	if err != nil {
		return err
	}
	reg, err := a.registry()
	if err != nil {
		return err
	}
	engine := a.engine(reg)
	defer engine.Close()

	nodes := doc.Nodes()
	progress := weave.WithProgress(func(p weave.Progress) {
		if p.Value != nil {
			a.logger.Info("progress", "node", p.Node.ID(), "module", p.Module, "value", p.Value)
		}
	})

	var errs []error
	if _, err := engine.Weave(ctx, nodes, progress).Wait(); err != nil {
		errs = append(errs, fmt.Errorf("weave failed: %w", err))
	}
	settleStarts(engine, nodes)

	if len(opts.unweave) > 0 || opts.fullUnweave {
		var callOpts []weave.CallOption
		callOpts = append(callOpts, progress)
		if len(opts.unweave) > 0 {
			callOpts = append(callOpts, weave.Only(opts.unweave...))
		}
		stopped, err := engine.Unweave(ctx, nodes, callOpts...).Wait()
		if err != nil {
			errs = append(errs, fmt.Errorf("unweave failed: %w", err))
		}
		a.logger.Debug("unweave complete", "stopped", len(stopped))
	}

	if err := a.render(engine, nodes); err != nil {
		return err
	}
	return errors.Join(errs...)
}

// settleStarts waits for every registered handle to leave its start phase, so
// siblings of a failed directive are reported in their final state.
func settleStarts(engine *weave.Engine, nodes []weave.Node) {
	for _, node := range nodes {
		for _, h := range engine.Handles(node) {
			<-h.Started().Done()
		}
	}
}

func (a *app) render(engine *weave.Engine, nodes []weave.Node) error {
	switch a.cfg.Format {
	case formatYAML:
		return document.WriteYAML(a.stdout, document.Snapshot(engine, nodes))
	case formatDOT:
		return engine.ExportDOT(a.stdout, nodes, weave.DOTWithGraphName("weave"))
	default:
		return writeText(a.stdout, document.Snapshot(engine, nodes))
	}
}

func writeText(w io.Writer, states []document.NodeState) error {
	for _, node := range states {
		line := TitleStyle.Render(node.ID)
		if node.Woven != "" {
			line += " " + SubtitleStyle.Render("woven="+node.Woven)
		}
		if node.Weave != "" {
			line += " " + SubtitleStyle.Render("weave="+node.Weave)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
		for _, ws := range node.Widgets {
			state := weave.WidgetState(ws.State)
			name := ws.Name
			if name == "" {
				name = "-"
			}
			var b strings.Builder
			b.WriteString("  ")
			b.WriteString(stateStyle(state).Render(ws.State))
			b.WriteString(pad(ws.State, 13))
			b.WriteString(CmdStyle.Render(name))
			b.WriteString(pad(name, 16))
			b.WriteString(ws.Directive)
			if ws.Error != "" {
				b.WriteString(" " + ErrorStyle.Render(ws.Error))
			}
			if _, err := fmt.Fprintln(w, b.String()); err != nil {
				return err
			}
		}
	}
	return nil
}

func pad(s string, width int) string {
	if n := width - len(s); n > 0 {
		return strings.Repeat(" ", n)
	}
	return " "
}
