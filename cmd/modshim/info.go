package main

import (
	"fmt"

	"github.com/caffeineduck/modshim/loader"
	"github.com/spf13/cobra"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show version, configuration and the reserved module names",
		Args:  cobra.NoArgs,
		RunE:  runInfo,
	}
}

func runInfo(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	configPath := a.cfg.Path
	if configPath == "" {
		configPath = "(defaults)"
	}
	fmt.Fprintf(out, "modshim %s\n", version)
	fmt.Fprintf(out, "config:    %s\n", configPath)
	fmt.Fprintf(out, "namespace: %s\n", a.cfg.Namespace)
	fmt.Fprintf(out, "shims:     %s\n", a.shimDir)
	fmt.Fprintln(out, "modules:")

	table := a.pipeline.Table()
	for _, name := range table.Names() {
		e, _ := table.Lookup(name)
		fmt.Fprintf(out, "  %-14s %s\n", name, describe(e))
	}
	return nil
}

func describe(e loader.Entry) string {
	var s string
	switch d := e.Dispatch.(type) {
	case loader.Redirect:
		s = "-> " + d.Path
	case loader.Inline:
		s = "inline"
	case loader.Unsupported:
		s = "unsupported"
		if d.Reason != "" {
			s += " (" + d.Reason + ")"
		}
	}
	if e.Advisory != nil {
		s += " [" + e.Advisory.Code + "]"
	}
	return s
}
