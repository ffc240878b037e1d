// Package loader decides what every import in a program refers to and what
// source text the host should run for it.
//
// # Overview
//
// The host calls [Pipeline.Resolve] for each specifier and then
// [Pipeline.Load] for the result. Both hooks receive the host's own
// implementation as next and delegate to it for anything they do not
// handle.
//
// Resolution checks the reserved namespace first. Names in the [Table] are
// served without filesystem access; unknown names in the namespace fail
// with [ErrUnknownVirtual]. Everything else goes to next, and file results
// are refined by the [Prober]:
//
//	./util       -> /app/util.ts   (tsmodule)
//	./util.ts    -> /app/util.js   (when only the .js file exists)
//	./lib        -> /app/lib/index.ts
//
// Loading compiles TypeScript through a [compiler.Compiler], tags JSON
// imports for the host, and prepends the bootstrap [Prologue] to every ES
// module backed by a file.
//
// # Basic Usage
//
//	p, err := loader.New(shimDir, loader.WithSink(sink))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := p.Resolve(ctx, loader.Request{Specifier: "./main"}, host.Resolve)
//	mod, err := p.Load(ctx, res.URL, &loader.LoadContext{Format: res.Format}, hostLoader.Load)
package loader
