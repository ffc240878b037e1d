package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/caffeineduck/modshim/bundle"
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <entry>",
		Short: "Print the module graph of a program in load order",
		Args:  cobra.ExactArgs(1),
		RunE:  runGraph,
	}
	cmd.Flags().Bool("json", false, "Print the graph as JSON")
	return cmd
}

func buildEntry(cmd *cobra.Command, a *app, entry string, opts bundle.Options) (*bundle.Result, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	opts.Pipeline = a.pipeline
	opts.WorkingDir = wd
	built, err := bundle.Build(cmd.Context(), entry, opts)
	if err != nil {
		return nil, err
	}
	for _, w := range built.Warnings {
		a.logger.Warn("bundle warning", "message", w)
	}
	return built, nil
}

func runGraph(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	built, err := buildEntry(cmd, a, args[0], bundle.Options{})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Modules   []bundle.Module `json:"modules"`
			Externals []string        `json:"externals"`
		}{built.Modules, built.Externals})
	}
	for _, m := range built.Modules {
		fmt.Fprintf(out, "%-10s %s\n", m.Format, m.URL)
	}
	for _, ext := range built.Externals {
		fmt.Fprintf(out, "%-10s %s\n", "external", ext)
	}
	return nil
}
