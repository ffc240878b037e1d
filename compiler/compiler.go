// Package compiler turns TypeScript and modern JavaScript source into
// JavaScript the host can execute.
//
// The pipeline only depends on the Compiler interface. Esbuild is the
// production implementation; Func adapts a plain function, which is how
// tests substitute a deterministic fake.
package compiler

import (
	"context"
	"fmt"
)

// Mode selects the input syntax.
type Mode int

const (
	ModeTypeScript Mode = iota
	ModeJavaScript
)

func (m Mode) String() string {
	if m == ModeJavaScript {
		return "javascript"
	}
	return "typescript"
}

// Module selects the module system of the output.
type Module int

const (
	ModuleESM Module = iota
	ModuleCommonJS
)

// Request is one compilation.
type Request struct {
	Source string
	// Filename is used in diagnostics and source maps only.
	Filename string
	Mode     Mode
	Module   Module
}

// Compiler compiles source text.
type Compiler interface {
	Compile(ctx context.Context, req Request) (string, error)
}

// Func adapts a function to the Compiler interface.
type Func func(ctx context.Context, req Request) (string, error)

// Compile calls f.
func (f Func) Compile(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Error is a compilation failure with a source position. Line is 1-based,
// Column 0-based.
type Error struct {
	File     string
	Line     int
	Column   int
	Text     string
	LineText string
	// More counts further errors reported for the same input.
	More int
}

func (e *Error) Error() string {
	loc := e.File
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d:%d", e.File, e.Line, e.Column)
	}
	msg := fmt.Sprintf("%s: syntax error: %s", loc, e.Text)
	if e.More > 0 {
		msg += fmt.Sprintf(" (and %d more)", e.More)
	}
	return msg
}
