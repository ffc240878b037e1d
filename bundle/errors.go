package bundle

import (
	"fmt"

	"github.com/evanw/esbuild/pkg/api"
)

// Error is a bundling failure reported by esbuild itself rather than by a
// hook.
type Error struct {
	Messages []string
}

func (e *Error) Error() string {
	if len(e.Messages) == 0 {
		return "bundle failed"
	}
	msg := "bundle failed: " + e.Messages[0]
	if len(e.Messages) > 1 {
		msg += fmt.Sprintf(" (and %d more)", len(e.Messages)-1)
	}
	return msg
}

func messagesError(msgs []api.Message) *Error {
	err := &Error{}
	for _, m := range msgs {
		err.Messages = append(err.Messages, formatMessage(m))
	}
	return err
}

func formatMessage(m api.Message) string {
	if m.Location == nil {
		return m.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text)
}
