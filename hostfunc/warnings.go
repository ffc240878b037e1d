package hostfunc

import (
	"context"
	"errors"

	"github.com/caffeineduck/modshim/diag"
)

// Warnings routes process.emitWarning calls into a diag.Sink.
type Warnings struct {
	Sink *diag.Sink
}

// Emit is emit_warning: {name, code, message, detail, stack} -> null.
// A missing name defaults to "Warning".
func (w *Warnings) Emit(ctx context.Context, args map[string]any) (any, error) {
	msg, _ := stringArg(args, "message")
	name, _ := stringArg(args, "name")
	if msg == "" && name == "" {
		return nil, errors.New("message required")
	}
	if name == "" {
		name = diag.NameDefault
	}
	code, _ := stringArg(args, "code")
	detail, _ := stringArg(args, "detail")
	stack, _ := stringArg(args, "stack")
	w.Sink.Emit(diag.Warning{Name: name, Code: code, Message: msg, Detail: detail, Stack: stack})
	return nil, nil
}

// Register adds emit_warning to r.
func (w *Warnings) Register(r *Registry) {
	r.Register("emit_warning", w.Emit)
}
