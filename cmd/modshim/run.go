package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caffeineduck/modshim/bundle"
	"github.com/caffeineduck/modshim/executor"
	"github.com/caffeineduck/modshim/host"
	"github.com/caffeineduck/modshim/hostfunc"
	"github.com/caffeineduck/modshim/language/javascript"
	"github.com/caffeineduck/modshim/loader"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file> [args...]",
		Short: "Build and run a program",
		Long: `Resolve the program's module graph, compile it and run it in the sandbox.

The entry's directory is mounted read-only at its own path, so files next
to the program can be read with Bun.file or node:fs. Arguments after the
file are passed to the program as process.argv.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRun,
	}
	cmd.Flags().SetInterspersed(false)
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("timeout", 30*time.Second, "Execution timeout (0 disables)")
	cmd.Flags().String("memory", "256mb", "Memory limit: 1mb, 16mb, 64mb, 256mb, 1gb")
	cmd.Flags().Bool("no-cache", false, "Disable the on-disk compilation cache")
	cmd.Flags().StringSlice("mount", nil, "Mount filesystem virtual:host:mode (repeatable)")
	cmd.Flags().StringArray("env", nil, "Set a program environment variable KEY=VALUE (repeatable)")
	cmd.Flags().StringArray("env-file", nil, "Load environment from a dotenv file (repeatable, default .env)")
	cmd.Flags().Bool("no-dotenv", false, "Do not load .env files")

	cmd.Flags().Int64("fs-max-file", 10*1024*1024, "Max file read size")
	cmd.Flags().Int64("fs-max-write", 10*1024*1024, "Max file write size")
	cmd.Flags().Int("fs-max-path", 4096, "Max path length")
}

func runRun(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	entry := args[0]
	if !loader.IsPathLike(entry) {
		entry = "./" + entry
	}

	built, err := bundle.Build(ctx, entry, bundle.Options{Pipeline: a.pipeline, WorkingDir: wd})
	if err != nil {
		return err
	}
	for _, w := range built.Warnings {
		a.logger.Warn("bundle warning", "message", w)
	}

	mainPath, err := loader.FileURLToPath(a.pipeline.MainURL())
	if err != nil {
		return fmt.Errorf("entry %s did not resolve to a file", args[0])
	}
	exec, runOpts, err := a.sandbox(cmd, wd, mainPath, args[1:])
	if err != nil {
		return err
	}
	defer exec.Close()

	a.logger.Debug("running", "entry", mainPath, "modules", len(built.Modules), "bytes", len(built.Code))
	result := exec.Run(ctx, javascript.New(), string(built.Code), runOpts...)
	a.logger.Debug("finished", "duration", result.Duration, "exit", result.ExitCode)

	if result.ExitCode != 0 {
		return &exitError{code: result.ExitCode}
	}
	if result.Error != nil {
		return result.Error
	}
	return nil
}

// sandbox builds the executor and run options shared by run and repl: the
// module host functions, the program environment, the entry directory
// mounted read-only and the --mount and --fs-max-* flags.
func (a *app) sandbox(cmd *cobra.Command, wd, mainPath string, argv []string) (*executor.Executor, []executor.Option, error) {
	env, err := programEnv(cmd, wd)
	if err != nil {
		return nil, nil, err
	}
	env["PWD"] = wd

	flags := cmd.Flags()
	timeout, _ := flags.GetDuration("timeout")
	memory, _ := flags.GetString("memory")
	noCache, _ := flags.GetBool("no-cache")
	mounts, _ := flags.GetStringSlice("mount")
	fsMaxFile, _ := flags.GetInt64("fs-max-file")
	fsMaxWrite, _ := flags.GetInt64("fs-max-write")
	fsMaxPath, _ := flags.GetInt("fs-max-path")

	root := filepath.Dir(mainPath)
	runOpts := []executor.Option{
		executor.WithTimeout(timeout),
		executor.WithMount(root, root, executor.MountReadOnly),
		executor.WithMain(mainPath),
		executor.WithArgs(argv...),
		executor.WithEnv(env),
		executor.WithStdout(cmd.OutOrStdout()),
		executor.WithStderr(cmd.ErrOrStderr()),
		executor.WithFSMaxFileSize(fsMaxFile),
		executor.WithFSMaxWriteSize(fsMaxWrite),
		executor.WithFSMaxPathLength(fsMaxPath),
	}
	for _, spec := range mounts {
		m, err := parseMount(spec)
		if err != nil {
			return nil, nil, err
		}
		runOpts = append(runOpts, executor.WithMount(m.VirtualPath, m.HostPath, m.Mode))
	}

	registry := hostfunc.NewRegistry()
	(&hostfunc.Modules{Pipeline: a.pipeline, Next: host.Resolve}).Register(registry)
	(&hostfunc.Warnings{Sink: a.sink}).Register(registry)

	var execOpts []executor.ExecutorOption
	if !noCache {
		execOpts = append(execOpts, executor.WithDiskCache())
	}
	if pages := parseMemoryLimit(memory); pages > 0 {
		execOpts = append(execOpts, executor.WithMemoryLimit(pages))
	}
	exec, err := executor.New(registry, execOpts...)
	if err != nil {
		return nil, nil, err
	}
	return exec, runOpts, nil
}
