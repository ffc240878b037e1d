package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/caffeineduck/modshim/bundle"
	"github.com/caffeineduck/modshim/executor"
	"github.com/caffeineduck/modshim/language/javascript"
	"github.com/caffeineduck/modshim/loader"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

// replEntry is the in-memory module each input is compiled as. It lives in
// the working directory so relative imports resolve from there.
const replEntry = "__modshim_repl__.ts"

const (
	promptMain = "> "
	promptMore = "... "
)

func newReplCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive prompt with bun:* modules available",
		Long: `Start an interactive prompt.

Each input is compiled as a TypeScript module in the current directory,
bundled and run in a fresh sandbox, so relative and bun:* imports resolve
the same way they do in a program. Import declarations carry over to later
inputs; other bindings do not.

Features:
  - Command history (up/down arrows)
  - Line editing and history search (Ctrl+R)
  - Multi-line input (end line with \)

Type 'exit' or 'quit' to end the session, or press Ctrl+D.`,
		Args: cobra.NoArgs,
		RunE: runRepl,
	}
	addRunFlags(cmd)
	cmd.Flags().String("history", "", "History file path (default: ~/.modshim_history)")
	return cmd
}

func runRepl(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	src := &replSource{path: filepath.Join(wd, replEntry)}
	a, err := newApp(cmd,
		loader.WithProber(&loader.Prober{Exists: src.exists, Cwd: wd}),
		loader.WithReadFile(src.readFile),
	)
	if err != nil {
		return err
	}

	exec, runOpts, err := a.sandbox(cmd, wd, src.path, nil)
	if err != nil {
		return err
	}
	defer exec.Close()

	in, err := newLineReader(cmd)
	if err != nil {
		return err
	}
	defer in.Close()

	r := &repl{
		app:     a,
		wd:      wd,
		source:  src,
		exec:    exec,
		runOpts: runOpts,
		errOut:  cmd.ErrOrStderr(),
	}
	return r.loop(cmd.Context(), in)
}

// replSource serves the current input as the file replEntry and defers to
// the OS filesystem for everything else.
type replSource struct {
	path string

	mu  sync.Mutex
	src []byte
}

func (s *replSource) set(src string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src = []byte(src)
}

func (s *replSource) exists(path string) bool {
	return path == s.path || loader.FileExists(path)
}

func (s *replSource) readFile(path string) ([]byte, error) {
	if path != s.path {
		return os.ReadFile(path)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.src), nil
}

type repl struct {
	app     *app
	wd      string
	source  *replSource
	exec    *executor.Executor
	runOpts []executor.Option
	errOut  io.Writer

	imports []string
}

// eval bundles input behind the imports of earlier inputs and runs it.
// The input's own imports are kept only when it ran cleanly.
func (r *repl) eval(ctx context.Context, input string) error {
	program := strings.Join(append(slices.Clone(r.imports), input), "\n")
	r.source.set(program)

	built, err := bundle.Build(ctx, "./"+replEntry, bundle.Options{Pipeline: r.app.pipeline, WorkingDir: r.wd})
	if err != nil {
		return err
	}
	for _, w := range built.Warnings {
		r.app.logger.Warn("bundle warning", "message", w)
	}

	result := r.exec.Run(ctx, javascript.New(), string(built.Code), r.runOpts...)
	r.app.logger.Debug("evaluated", "duration", result.Duration, "exit", result.ExitCode)
	if result.ExitCode != 0 {
		return &exitError{code: result.ExitCode}
	}
	if result.Error != nil {
		return result.Error
	}
	r.imports = append(r.imports, importLines(input)...)
	return nil
}

func (r *repl) loop(ctx context.Context, in lineReader) error {
	var pending strings.Builder
	for {
		line, err := in.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			pending.Reset()
			in.SetPrompt(promptMain)
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("read input: %w", err)
		}

		if strings.HasSuffix(line, "\\") {
			pending.WriteString(strings.TrimSuffix(line, "\\"))
			pending.WriteString("\n")
			in.SetPrompt(promptMore)
			continue
		}
		if pending.Len() > 0 {
			pending.WriteString(line)
			line = pending.String()
			pending.Reset()
			in.SetPrompt(promptMain)
		}

		input := strings.TrimSpace(line)
		switch input {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := r.eval(ctx, input); err != nil {
			fmt.Fprintf(r.errOut, "Error: %v\n", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

var importLine = regexp.MustCompile(`^import\s+(?:[\w$*{][^'"]*\s+from\s*)?['"][^'"]+['"]\s*;?\s*$`)

// importLines returns the single-line static import declarations in input.
func importLines(input string) []string {
	var out []string
	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if importLine.MatchString(line) {
			out = append(out, line)
		}
	}
	return out
}

type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
	Close() error
}

// newLineReader uses readline on a terminal and reads plain lines
// otherwise, so input can be piped in.
func newLineReader(cmd *cobra.Command) (lineReader, error) {
	in := cmd.InOrStdin()
	if in != os.Stdin || !readline.DefaultIsTerminal() {
		return &scanReader{sc: bufio.NewScanner(in)}, nil
	}

	historyFile, _ := cmd.Flags().GetString("history")
	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".modshim_history")
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            promptMain,
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdout:            cmd.OutOrStdout(),
		Stderr:            cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, fmt.Errorf("initialize readline: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "modshim %s (type 'exit' to quit, Ctrl+D to exit)\n", version)
	return rl, nil
}

type scanReader struct {
	sc *bufio.Scanner
}

func (s *scanReader) Readline() (string, error) {
	if s.sc.Scan() {
		return s.sc.Text(), nil
	}
	if err := s.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *scanReader) SetPrompt(string) {}

func (s *scanReader) Close() error { return nil }
