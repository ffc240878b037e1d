// Package diag formats and filters process warnings.
//
// A Sink replaces the host's default warning printer. It reproduces the
// host format, shows the trace hint at most once, drops internal
// ExperimentalWarning noise unless asked not to, and can silence
// everything. Construct one Sink per process and pass it to every
// component that emits warnings.
package diag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
)

// Warning names with special handling.
const (
	NameModshim      = "ModshimWarning"
	NameExperimental = "ExperimentalWarning"
	NameDeprecation  = "DeprecationWarning"
	NameDefault      = "Warning"
)

// Warning is a single diagnostic.
type Warning struct {
	Name    string `json:"name"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

func (w Warning) String() string {
	name := w.Name
	if name == "" {
		name = NameDefault
	}
	if w.Message == "" {
		return name
	}
	return name + ": " + w.Message
}

// Options controls filtering and formatting.
type Options struct {
	// KeepInternal disables suppression of ExperimentalWarning.
	KeepInternal bool
	// Silent drops every warning. It wins over KeepInternal.
	Silent bool
	// NoDeprecation drops deprecation warnings.
	NoDeprecation bool
	// Trace prints stacks instead of messages for all warnings.
	Trace bool
	// TraceDeprecation prints stacks for deprecation warnings.
	TraceDeprecation bool
	// Release is the runtime name printed in the prefix.
	Release string
	// Argv0 is the command suggested by the trace hint.
	Argv0 string
	// PID is printed in the prefix. Zero means os.Getpid().
	PID int
}

// Sink prints warnings. It is safe for concurrent use.
type Sink struct {
	opts Options

	mu  sync.Mutex
	out io.Writer

	hintShown atomic.Bool
}

// New returns a sink writing to out.
func New(out io.Writer, opts Options) *Sink {
	if opts.Release == "" {
		opts.Release = "modshim"
	}
	if opts.Argv0 == "" {
		opts.Argv0 = strings.TrimSuffix(filepath.Base(os.Args[0]), ".exe")
	}
	if opts.PID == 0 {
		opts.PID = os.Getpid()
	}
	return &Sink{opts: opts, out: out}
}

// Discard returns a sink that prints nothing.
func Discard() *Sink {
	return New(io.Discard, Options{Silent: true})
}

// Options returns the sink configuration.
func (s *Sink) Options() Options {
	return s.opts
}

// Emit formats and prints w unless it is filtered out.
func (s *Sink) Emit(w Warning) {
	if s == nil {
		return
	}
	msg, ok := s.Format(w)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, msg)
}

// Format renders w the way Emit would print it. The second result is false
// when w is filtered out. Formatting may consume the one-time trace hint.
func (s *Sink) Format(w Warning) (string, bool) {
	if w.Name == "" {
		w.Name = NameDefault
	}
	if s.opts.Silent {
		return "", false
	}
	if w.Name == NameExperimental && !s.opts.KeepInternal {
		return "", false
	}
	deprecation := w.Name == NameDeprecation
	if deprecation && s.opts.NoDeprecation {
		return "", false
	}
	trace := s.opts.Trace || (deprecation && s.opts.TraceDeprecation)

	var b strings.Builder
	fmt.Fprintf(&b, "(%s:%d) ", s.opts.Release, s.opts.PID)
	if w.Code != "" {
		fmt.Fprintf(&b, "[%s] ", w.Code)
	}
	if trace && w.Stack != "" {
		b.WriteString(w.Stack)
	} else {
		b.WriteString(w.String())
	}
	if w.Detail != "" {
		b.WriteString("\n")
		b.WriteString(w.Detail)
	}
	if !trace && w.Name != NameModshim && s.hintShown.CompareAndSwap(false, true) {
		flag := "--trace-warnings"
		if deprecation {
			flag = "--trace-deprecation"
		}
		fmt.Fprintf(&b, "\n(Use `%s %s ...` to show where the warning was created)", s.opts.Argv0, flag)
	}
	return b.String(), true
}
