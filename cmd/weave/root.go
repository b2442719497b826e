package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/troopjs/weave"
	"github.com/troopjs/weave/internal/widgets"
)

// app carries state shared by the subcommands of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	cfgFile  string
	logLevel string
	workers  int
	format   string

	cfg    config
	logger *log.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "weave",
		Short: "Weave widgets onto document nodes",
		Long: TitleStyle.Render("weave") + SubtitleStyle.Render(" - declarative widget lifecycles") + `

weave loads a YAML document tree, starts the widgets named by each node's
weave directives, and prints what ended up attached where.

` + SubtitleStyle.Render("Examples:") + `
  weave apply page.yaml                 Weave every node and print the state
  weave apply page.yaml --unweave demo/ Stop widgets named demo/... afterwards
  weave parse "demo/echo('hi', 2)"      Show how directives are parsed
  weave modules                         List the built-in demo modules`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./weave.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.IntVar(&a.workers, "workers", 0, "run lifecycle steps on a pool of this many workers")
	flags.StringVar(&a.format, "format", "", "output format: text, yaml or dot")

	root.AddCommand(newApplyCmd(a))
	root.AddCommand(newParseCmd(a))
	root.AddCommand(newModulesCmd(a))
	return root
}

// setup resolves configuration with flags taking precedence over weave.yaml
// and WEAVE_* variables.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.cfgFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("workers") {
		cfg.Workers = a.workers
	}
	if flags.Changed("format") {
		cfg.Format = a.format
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	a.cfg = cfg
	a.logger = log.NewWithOptions(a.stderr, log.Options{
		Prefix: "weave",
		Level:  level,
	})
	return nil
}

// registry returns a registry holding the demo modules.
func (a *app) registry() (*weave.Registry, error) {
	reg := weave.NewRegistry()
	if err := widgets.New(a.logger).Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// engine builds an engine configured from a.cfg.
func (a *app) engine(reg *weave.Registry) *weave.Engine {
	opts := []weave.EngineOption{weave.WithLogger(a.logger)}
	if a.cfg.Workers > 0 {
		opts = append(opts, weave.WithDispatcher(weave.NewWorkerPoolDispatcher(a.cfg.Workers)))
	}
	return weave.New(reg, opts...)
}
