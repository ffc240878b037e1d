package loader

import "fmt"

// Kind is the module kind a resolved URL is executed as.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindModule
	KindCommonJS
	KindJSON
	KindBuiltin
	KindWasm
	KindVirtual
)

func (k Kind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindCommonJS:
		return "commonjs"
	case KindJSON:
		return "json"
	case KindBuiltin:
		return "builtin"
	case KindWasm:
		return "wasm"
	case KindVirtual:
		return "virtual"
	default:
		return "unknown"
	}
}

// Format describes how a module is executed. TypeScript marks sources that
// must be compiled before the host can run them; it is only meaningful for
// KindModule and KindCommonJS.
type Format struct {
	Kind       Kind
	TypeScript bool
}

// Common formats.
var (
	FormatUnknown    = Format{}
	FormatModule     = Format{Kind: KindModule}
	FormatCommonJS   = Format{Kind: KindCommonJS}
	FormatTSModule   = Format{Kind: KindModule, TypeScript: true}
	FormatTSCommonJS = Format{Kind: KindCommonJS, TypeScript: true}
	FormatJSON       = Format{Kind: KindJSON}
	FormatBuiltin    = Format{Kind: KindBuiltin}
	FormatWasm       = Format{Kind: KindWasm}
	FormatVirtual    = Format{Kind: KindVirtual}
)

// IsScript reports whether the format is JavaScript source, compiled or not.
func (f Format) IsScript() bool {
	return f.Kind == KindModule || f.Kind == KindCommonJS
}

// NeedsCompile reports whether the format requires the compiler.
func (f Format) NeedsCompile() bool {
	return f.TypeScript && f.IsScript()
}

// Intrinsic reports whether the host owns this format outright. Results in
// an intrinsic format are never refined by extension probing.
func (f Format) Intrinsic() bool {
	return f.Kind == KindBuiltin || f.Kind == KindWasm
}

// WithDialect returns f tagged as TypeScript. Non-script formats are
// returned unchanged.
func (f Format) WithDialect() Format {
	if !f.IsScript() {
		return f
	}
	f.TypeScript = true
	return f
}

// Executable returns f with the TypeScript tag removed.
func (f Format) Executable() Format {
	f.TypeScript = false
	return f
}

// String renders the format using the host's format names, with the
// TypeScript dialect as a "ts" prefix.
func (f Format) String() string {
	if f.NeedsCompile() {
		return "ts" + f.Kind.String()
	}
	return f.Kind.String()
}

// ParseFormat is the inverse of Format.String. The empty string parses to
// FormatUnknown.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "unknown":
		return FormatUnknown, nil
	case "module":
		return FormatModule, nil
	case "commonjs":
		return FormatCommonJS, nil
	case "tsmodule":
		return FormatTSModule, nil
	case "tscommonjs":
		return FormatTSCommonJS, nil
	case "json":
		return FormatJSON, nil
	case "builtin":
		return FormatBuiltin, nil
	case "wasm":
		return FormatWasm, nil
	case "virtual":
		return FormatVirtual, nil
	}
	return FormatUnknown, fmt.Errorf("unknown module format %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(b []byte) error {
	parsed, err := ParseFormat(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
