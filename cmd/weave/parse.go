package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/troopjs/weave"
)

type parsedDirective struct {
	Module string   `yaml:"module"`
	Raw    string   `yaml:"raw"`
	Args   []string `yaml:"args,omitempty"`
}

func newParseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parse DIRECTIVES",
		Short: "Print how a weave attribute is split into directives",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.parse(strings.Join(args, " "))
		},
	}
}

func (a *app) parse(text string) error {
	directives := weave.ParseDirectives(nil, text)
	parsed := make([]parsedDirective, 0, len(directives))
	for _, d := range directives {
		p := parsedDirective{Module: d.Module, Raw: d.Raw}
		for _, arg := range d.Args {
			p.Args = append(p.Args, fmt.Sprintf("%v (%T)", arg, arg))
		}
		parsed = append(parsed, p)
	}

	if a.cfg.Format == formatYAML {
		enc := yaml.NewEncoder(a.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(parsed); err != nil {
			return err
		}
		return enc.Close()
	}

	for _, p := range parsed {
		if _, err := fmt.Fprintln(a.stdout, CmdStyle.Render(p.Module)); err != nil {
			return err
		}
		for _, arg := range p.Args {
			if _, err := fmt.Fprintln(a.stdout, "  "+arg); err != nil {
				return err
			}
		}
	}
	return nil
}
