package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/caffeineduck/modshim/host"
	"github.com/caffeineduck/modshim/loader"
	"github.com/spf13/cobra"
)

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <specifier>",
		Short: "Resolve a specifier and print its URL and format",
		Args:  cobra.ExactArgs(1),
		RunE:  runResolve,
	}
	cmd.Flags().String("parent", "", "Importing module, as a path or URL (default: resolve as the entry)")
	cmd.Flags().Bool("json", false, "Print the resolution as JSON")
	return cmd
}

// parentURL turns a --parent value into a module URL. Paths are made
// absolute; anything with a scheme is kept as is.
func parentURL(parent string) (string, error) {
	if parent == "" || loader.IsFileURL(parent) {
		return parent, nil
	}
	if i := strings.Index(parent, ":"); i > 1 {
		return parent, nil
	}
	abs, err := filepath.Abs(parent)
	if err != nil {
		return "", err
	}
	return loader.PathToFileURL(abs), nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	parent, _ := cmd.Flags().GetString("parent")
	asJSON, _ := cmd.Flags().GetBool("json")

	parent, err = parentURL(parent)
	if err != nil {
		return err
	}
	res, err := a.pipeline.Resolve(cmd.Context(), loader.Request{Specifier: args[0], ParentURL: parent}, host.Resolve)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", res.URL, res.Format)
	return nil
}
