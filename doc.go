// Package modshim runs programs written against Bun's module conventions
// on a Node-style module system.
//
// # Overview
//
// A program's imports go through two hooks held by a [loader.Pipeline].
// The resolve hook serves reserved bun:* names from a virtual module table
// and probes the filesystem for extensionless and TypeScript specifiers.
// The load hook compiles TypeScript, tags JSON imports and prepends a
// bootstrap prologue that fills in import.meta. Warnings go through a
// single [diag.Sink].
//
// # Basic Usage
//
//	p, _ := loader.New(shimDir)
//	res, err := p.Resolve(ctx, loader.Request{Specifier: "./util", ParentURL: parent}, host.Resolve)
//
//	built, _ := bundle.Build(ctx, "./main.ts", bundle.Options{Pipeline: p})
//	exec, _ := executor.New(registry)
//	result := exec.Run(ctx, javascript.New(), string(built.Code))
//
// See the [loader], [bundle], [executor] and [hostfunc] packages for
// details, and cmd/modshim for the command-line tool.
package modshim
