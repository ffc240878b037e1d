package main

import (
	"fmt"
	"strings"

	"github.com/caffeineduck/modshim/host"
	"github.com/caffeineduck/modshim/loader"
	"github.com/spf13/cobra"
)

func newLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <specifier>",
		Short: "Resolve and load a module, printing the source the host would run",
		Long: `Resolve a specifier, then load it through the pipeline and print the
resulting source. TypeScript is compiled and carries the bootstrap prologue.
Builtins print their URL; wasm modules print their exported functions.`,
		Args: cobra.ExactArgs(1),
		RunE: runLoad,
	}
	cmd.Flags().String("parent", "", "Importing module, as a path or URL (default: resolve as the entry)")
	return cmd
}

func runLoad(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	parent, _ := cmd.Flags().GetString("parent")
	parent, err = parentURL(parent)
	if err != nil {
		return err
	}

	res, err := a.pipeline.Resolve(ctx, loader.Request{Specifier: args[0], ParentURL: parent}, host.Resolve)
	if err != nil {
		return err
	}

	hl := host.NewLoader()
	defer hl.Close()
	loaded, err := a.pipeline.Load(ctx, res.URL, &loader.LoadContext{Format: res.Format}, hl.Load)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch loaded.Format.Kind {
	case loader.KindBuiltin:
		fmt.Fprintf(out, "builtin %s\n", res.URL)
	case loader.KindWasm:
		exports, _ := hl.WasmExports(res.URL)
		fmt.Fprintf(out, "wasm %s\nexports: %s\n", res.URL, strings.Join(exports, ", "))
	default:
		out.Write(loaded.Source)
		if len(loaded.Source) > 0 && loaded.Source[len(loaded.Source)-1] != '\n' {
			fmt.Fprintln(out)
		}
	}
	return nil
}
