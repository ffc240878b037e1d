package executor

// Language is a WASM-hosted interpreter.
type Language interface {
	// Name identifies the language. It is the compile cache key.
	Name() string

	// Module returns the interpreter's WASM binary.
	Module() []byte

	// WrapCode prepends the language's runtime glue to code.
	WrapCode(code string) string

	// Args returns the interpreter's argv for running wrapped code.
	Args(wrappedCode string) []string
}
