package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/caffeineduck/modshim/config"
	"github.com/caffeineduck/modshim/diag"
	"github.com/caffeineduck/modshim/executor"
	"github.com/caffeineduck/modshim/hostfunc"
	"github.com/caffeineduck/modshim/internal/ctxlog"
	"github.com/caffeineduck/modshim/loader"
	"github.com/caffeineduck/modshim/shims"
	"github.com/spf13/cobra"
)

var version = "dev"

// exitError carries the program's exit code out of a command.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "modshim [file] [args...]",
		Short: "Run Bun-flavored TypeScript on a Node-style module system",
		Long: `modshim - resolve, transform and run programs written against Bun's
module conventions.

Extensionless and .ts imports are probed on disk, bun:* modules map to
bundled shims, TypeScript is compiled on load, and the program runs in a
WebAssembly sandbox that only sees the files it is given.`,
		Args:          cobra.ArbitraryArgs,
		RunE:          runRun,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.Flags().SetInterspersed(false)

	pf := root.PersistentFlags()
	pf.String("config", "", "Config file (default: ./"+config.FileName+" if present)")
	pf.String("log-level", "warn", "Log level: debug, info, warn, error")
	pf.String("log-format", "text", "Log format: text, json")
	pf.Bool("esm-loader-warning", false, "Show internal ExperimentalWarning messages")
	pf.Bool("no-warnings", false, "Silence all process warnings")
	pf.Bool("trace-warnings", false, "Print stack traces for warnings")
	pf.Bool("trace-deprecation", false, "Print stack traces for deprecations")
	pf.Bool("no-deprecation", false, "Silence deprecation warnings")

	addRunFlags(root)
	root.AddCommand(
		newRunCmd(),
		newResolveCmd(),
		newLoadCmd(),
		newGraphCmd(),
		newBundleCmd(),
		newInfoCmd(),
		newReplCmd(),
	)
	return root
}

// app is the state every command shares: configuration, logging, the
// diagnostics sink and the loader pipeline.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	sink     *diag.Sink
	shimDir  string
	pipeline *loader.Pipeline
}

// newApp builds the shared state. extra options are applied after the
// configured ones.
func newApp(cmd *cobra.Command, extra ...loader.Option) (*app, error) {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	logLevel, _ := flags.GetString("log-level")
	logFormat, _ := flags.GetString("log-format")
	keepInternal, _ := flags.GetBool("esm-loader-warning")
	noWarnings, _ := flags.GetBool("no-warnings")
	traceWarnings, _ := flags.GetBool("trace-warnings")
	traceDeprecation, _ := flags.GetBool("trace-deprecation")
	noDeprecation, _ := flags.GetBool("no-deprecation")

	logger := newLogger(logLevel, logFormat, cmd.ErrOrStderr())

	cfg, err := config.Load(configPath, version)
	if err != nil {
		return nil, err
	}
	if cfg.Path != "" {
		logger.Debug("config loaded", "path", cfg.Path)
	}

	shimDir, err := shims.Materialize(cfg.ShimDir)
	if err != nil {
		return nil, fmt.Errorf("install shims: %w", err)
	}
	table, err := cfg.Table(shimDir)
	if err != nil {
		return nil, err
	}

	sink := diag.New(cmd.ErrOrStderr(), diag.Options{
		KeepInternal:     keepInternal || cfg.Warnings.KeepInternal,
		Silent:           noWarnings || cfg.Warnings.Silent,
		NoDeprecation:    noDeprecation || cfg.Warnings.NoDeprecation,
		Trace:            traceWarnings || cfg.Warnings.Trace,
		TraceDeprecation: traceDeprecation,
		Argv0:            "modshim",
	})

	opts := []loader.Option{
		loader.WithTable(table),
		loader.WithSink(sink),
		loader.WithLogger(logger),
	}
	pipeline, err := loader.New(shimDir, append(opts, extra...)...)
	if err != nil {
		return nil, err
	}

	cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
	return &app{cfg: cfg, logger: logger, sink: sink, shimDir: shimDir, pipeline: pipeline}, nil
}

func parseMount(spec string) (hostfunc.Mount, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return hostfunc.Mount{}, fmt.Errorf("invalid mount spec %q (expected virtual:host:mode)", spec)
	}
	mode, err := hostfunc.ParseMountMode(parts[2])
	if err != nil {
		return hostfunc.Mount{}, err
	}
	return hostfunc.Mount{
		VirtualPath: parts[0],
		HostPath:    parts[1],
		Mode:        mode,
	}, nil
}

func parseMemoryLimit(s string) uint32 {
	switch strings.ToLower(s) {
	case "1mb":
		return executor.MemoryLimit1MB
	case "16mb":
		return executor.MemoryLimit16MB
	case "64mb":
		return executor.MemoryLimit64MB
	case "256mb":
		return executor.MemoryLimit256MB
	case "1gb":
		return executor.MemoryLimit1GB
	default:
		return 0
	}
}
