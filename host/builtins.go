package host

import "strings"

// BuiltinScheme prefixes the URL of every builtin module.
const BuiltinScheme = "node:"

// builtins are Node's public core modules, without subpaths.
var builtins = map[string]bool{
	"assert":              true,
	"async_hooks":         true,
	"buffer":              true,
	"child_process":       true,
	"cluster":             true,
	"console":             true,
	"constants":           true,
	"crypto":              true,
	"dgram":               true,
	"diagnostics_channel": true,
	"dns":                 true,
	"domain":              true,
	"events":              true,
	"fs":                  true,
	"http":                true,
	"http2":               true,
	"https":               true,
	"inspector":           true,
	"module":              true,
	"net":                 true,
	"os":                  true,
	"path":                true,
	"perf_hooks":          true,
	"process":             true,
	"punycode":            true,
	"querystring":         true,
	"readline":            true,
	"repl":                true,
	"stream":              true,
	"string_decoder":      true,
	"sys":                 true,
	"timers":              true,
	"tls":                 true,
	"trace_events":        true,
	"tty":                 true,
	"url":                 true,
	"util":                true,
	"v8":                  true,
	"vm":                  true,
	"wasi":                true,
	"worker_threads":      true,
	"zlib":                true,
}

// Builtin reports whether specifier names a core module, with or without
// the node: prefix, and returns its canonical name. Subpaths such as
// "fs/promises" count.
func Builtin(specifier string) (string, bool) {
	name := strings.TrimPrefix(specifier, BuiltinScheme)
	base, _, _ := strings.Cut(name, "/")
	if !builtins[base] {
		return "", false
	}
	return name, true
}
