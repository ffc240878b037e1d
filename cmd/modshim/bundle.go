package main

import (
	"fmt"
	"os"

	"github.com/caffeineduck/modshim/bundle"
	"github.com/spf13/cobra"
)

func newBundleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundle <entry>",
		Short: "Write the program as a single script",
		Args:  cobra.ExactArgs(1),
		RunE:  runBundle,
	}
	cmd.Flags().StringP("out", "o", "", "Output file (default: stdout)")
	cmd.Flags().Bool("minify", false, "Minify the output")
	cmd.Flags().Bool("sourcemap", false, "Append an inline source map")
	return cmd
}

func runBundle(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	out, _ := cmd.Flags().GetString("out")
	minify, _ := cmd.Flags().GetBool("minify")
	sourcemap, _ := cmd.Flags().GetBool("sourcemap")

	built, err := buildEntry(cmd, a, args[0], bundle.Options{Minify: minify, SourceMap: sourcemap})
	if err != nil {
		return err
	}

	if out == "" {
		_, err := cmd.OutOrStdout().Write(built.Code)
		return err
	}
	if err := os.WriteFile(out, built.Code, 0644); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	a.logger.Info("bundle written", "path", out, "modules", len(built.Modules), "bytes", len(built.Code))
	return nil
}
