// Package executor runs bundled programs inside a WebAssembly interpreter.
//
// The executor compiles each [Language] module once, then instantiates it
// per run with its own stdin, stdout and stderr. The guest talks to Go
// over stderr using framed JSON messages, and reads call results from
// stdin. Those calls dispatch to a [hostfunc.Registry].
//
//	exec, err := executor.New(registry)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exec.Close()
//
//	result := exec.Run(ctx, javascript.New(), code,
//	    executor.WithMount("/app", "./app", executor.MountReadOnly),
//	    executor.WithArgs("--verbose"),
//	)
//	fmt.Print(result.Output)
//
// A program has no filesystem access beyond its mounts and no other
// capabilities than the registered host functions.
package executor
