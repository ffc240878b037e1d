// Package javascript runs bundles on QuickJS compiled to WASI.
package javascript

import (
	_ "embed"
	"strings"

	quickjswasi "github.com/paralin/go-quickjs-wasi"
)

//go:embed stdlib.js
var stdlib string

// JavaScript implements executor.Language for bundled JavaScript.
type JavaScript struct{}

// New returns a JavaScript language adapter.
func New() *JavaScript {
	return &JavaScript{}
}

// Name returns "javascript".
func (j *JavaScript) Name() string {
	return "javascript"
}

// Module returns the QuickJS WASM binary.
func (j *JavaScript) Module() []byte {
	return quickjswasi.QuickJSWASM
}

// WrapCode prepends the guest runtime to a bundle. The runtime is closed
// with a semicolon so a bundle opening with a parenthesized IIFE is not
// parsed as a call on it, and a leading #! line of the bundle is turned
// into a comment since it no longer starts the script.
func (j *JavaScript) WrapCode(code string) string {
	if strings.HasPrefix(code, "#!") {
		code = "//" + code[2:]
	}
	var b strings.Builder
	b.Grow(len(stdlib) + len(code) + 2)
	b.WriteString(strings.TrimRight(stdlib, "\n"))
	b.WriteString(";\n")
	b.WriteString(code)
	return b.String()
}

// Args returns the command-line arguments for the QuickJS interpreter.
func (j *JavaScript) Args(wrappedCode string) []string {
	return []string{"qjs", "--std", "-e", wrappedCode}
}

