package loader

import (
	"errors"
	"fmt"
)

// Error codes carried by *Error.
const (
	CodeUnknownVirtual = "ERR_UNKNOWN_VIRTUAL_MODULE"
	CodeUnsupported    = "ERR_VIRTUAL_MODULE_UNSUPPORTED"
)

var (
	// ErrUnknownVirtual matches errors for reserved names outside the table.
	ErrUnknownVirtual = errors.New("unknown virtual module")
	// ErrUnsupported matches errors for virtual modules that cannot be provided.
	ErrUnsupported = errors.New("virtual module not supported")
)

// Error is a resolution or load failure raised by the pipeline itself.
// These failures are never retried.
type Error struct {
	Code      string
	Specifier string
	Message   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[modshim] %s", e.Message)
}

// Is lets errors.Is match the package sentinels by code.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnknownVirtual:
		return e.Code == CodeUnknownVirtual
	case ErrUnsupported:
		return e.Code == CodeUnsupported
	}
	return false
}

func unknownVirtual(specifier string) *Error {
	return &Error{
		Code:      CodeUnknownVirtual,
		Specifier: specifier,
		Message:   fmt.Sprintf("Unknown or unimplemented %s module %q", namespaceOf(specifier), specifier),
	}
}

func unsupported(name, reason string) *Error {
	msg := fmt.Sprintf("A polyfill for %s is not yet implemented by modshim.", name)
	if reason != "" {
		msg = fmt.Sprintf("A polyfill for %s is not available: %s", name, reason)
	}
	return &Error{Code: CodeUnsupported, Specifier: name, Message: msg}
}

func namespaceOf(specifier string) string {
	for i := 0; i < len(specifier); i++ {
		if specifier[i] == ':' {
			return specifier[:i]
		}
	}
	return specifier
}
