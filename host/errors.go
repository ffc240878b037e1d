package host

import "fmt"

// Error codes carried by *Error. All but CodeInvalidWasm are Node's codes
// for the same conditions.
const (
	CodeModuleNotFound       = "ERR_MODULE_NOT_FOUND"
	CodeUnsupportedDir       = "ERR_UNSUPPORTED_DIR_IMPORT"
	CodeUnsupportedScheme    = "ERR_UNSUPPORTED_ESM_URL_SCHEME"
	CodeAttributeMissing     = "ERR_IMPORT_ATTRIBUTE_MISSING"
	CodeUnknownExtension     = "ERR_UNKNOWN_FILE_EXTENSION"
	CodeInvalidPackageTarget = "ERR_INVALID_PACKAGE_TARGET"
	CodeInvalidWasm          = "ERR_INVALID_WASM_MODULE"
)

// Error is a resolution or load failure from the host.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func errorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func importedFrom(parentURL string) string {
	if parentURL == "" {
		return ""
	}
	return " imported from " + parentURL
}
