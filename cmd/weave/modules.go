package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newModulesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List the built-in demo modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			for _, name := range reg.Modules() {
				if _, err := fmt.Fprintln(a.stdout, CmdStyle.Render(name)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
