package compiler

import (
	"context"

	"github.com/evanw/esbuild/pkg/api"
)

// Esbuild compiles with esbuild's transform API.
type Esbuild struct {
	// Target is the language level of the output. Zero means ES2022.
	Target api.Target
	// SourceMaps appends an inline source map to the output.
	SourceMaps bool
}

// NewEsbuild returns the default compiler: ES2022 output with inline
// source maps.
func NewEsbuild() *Esbuild {
	return &Esbuild{Target: api.ES2022, SourceMaps: true}
}

// Compile implements Compiler.
func (e *Esbuild) Compile(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	opts := api.TransformOptions{
		Loader:     api.LoaderTS,
		Format:     api.FormatESModule,
		Target:     e.Target,
		Sourcefile: req.Filename,
		KeepNames:  true,
		LogLevel:   api.LogLevelSilent,
	}
	if opts.Target == api.DefaultTarget {
		opts.Target = api.ES2022
	}
	if req.Mode == ModeJavaScript {
		opts.Loader = api.LoaderJS
	}
	if req.Module == ModuleCommonJS {
		opts.Format = api.FormatCommonJS
	}
	if e.SourceMaps {
		opts.Sourcemap = api.SourceMapInline
	}

	result := api.Transform(req.Source, opts)
	if len(result.Errors) > 0 {
		return "", toError(req.Filename, result.Errors)
	}
	return string(result.Code), nil
}

func toError(file string, msgs []api.Message) *Error {
	first := msgs[0]
	err := &Error{File: file, Text: first.Text, More: len(msgs) - 1}
	if loc := first.Location; loc != nil {
		if loc.File != "" {
			err.File = loc.File
		}
		err.Line = loc.Line
		err.Column = loc.Column
		err.LineText = loc.LineText
	}
	return err
}
