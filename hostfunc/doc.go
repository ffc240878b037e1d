// Package hostfunc holds the Go functions a sandboxed program can call.
//
// The executor forwards every call the program makes through
// __modshim_host(name, args) to the function registered under name in a
// [Registry]. Functions take the decoded JSON arguments and return any
// JSON-encodable value.
//
//	registry := hostfunc.NewRegistry()
//	registry.Register("greet", func(ctx context.Context, args map[string]any) (any, error) {
//	    return "hello " + args["name"].(string), nil
//	})
//
// The built-in capabilities back the compatibility shims:
//
//   - [Modules] serves import.meta.resolveSync through the loader pipeline.
//   - [Warnings] routes process.emitWarning into a diag.Sink.
//   - [FS] gives mount-scoped file access to Bun.file and Bun.write.
//
// Nothing is reachable unless registered, and FS only sees its mounts.
package hostfunc
