package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/caffeineduck/modshim/hostfunc"
)

// Messages travel on the guest's stderr, framed as \x00PREFIX:{json}\x00.
// A call blocks the guest until its response line arrives on stdin; a
// notify is fire and forget.
const (
	protocolPrefix       = "\x00MODSHIM:"
	protocolNotifyPrefix = "\x00MODSHIM_NOTIFY:"
	protocolSuffix       = "\x00"
)

type messageType int

const (
	messageNone messageType = iota
	messageCall
	messageNotify
)

type callRequest struct {
	ID   string         `json:"id,omitempty"`
	Fn   string         `json:"fn"`
	Args map[string]any `json:"args"`
}

type callResponse struct {
	ID    string `json:"id,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// protocolHandler is the guest's stderr. Framed messages become host calls;
// everything else is passed to out and kept for the result.
type protocolHandler struct {
	ctx         context.Context
	registry    *hostfunc.Registry
	stdinWriter *io.PipeWriter
	out         io.Writer

	mu         sync.Mutex
	buf        bytes.Buffer
	realStderr bytes.Buffer
}

func newProtocolHandler(ctx context.Context, registry *hostfunc.Registry, stdinWriter *io.PipeWriter, out io.Writer) *protocolHandler {
	return &protocolHandler{
		ctx:         ctx,
		registry:    registry,
		stdinWriter: stdinWriter,
		out:         out,
	}
}

// findNextMessage returns the index and type of the first framed message
// in content, or -1 and messageNone.
func findNextMessage(content string) (int, messageType) {
	call := strings.Index(content, protocolPrefix)
	notify := strings.Index(content, protocolNotifyPrefix)
	switch {
	case call == -1 && notify == -1:
		return -1, messageNone
	case notify == -1 || (call != -1 && call < notify):
		return call, messageCall
	default:
		return notify, messageNotify
	}
}

// extractMessage cuts the message starting at idx. ok is false when the
// closing delimiter has not arrived yet; remaining is then the partial
// message.
func extractMessage(content string, idx int, prefix string) (payload, remaining string, ok bool) {
	start := idx + len(prefix)
	end := strings.Index(content[start:], protocolSuffix)
	if end == -1 {
		return "", content[idx:], false
	}
	return content[start : start+end], content[start+end+len(protocolSuffix):], true
}

// partialPrefixLen reports how many trailing bytes of content could begin
// a frame that is still being written.
func partialPrefixLen(content string) int {
	for n := min(len(protocolNotifyPrefix)-1, len(content)); n > 0; n-- {
		tail := content[len(content)-n:]
		if strings.HasPrefix(protocolPrefix, tail) || strings.HasPrefix(protocolNotifyPrefix, tail) {
			return n
		}
	}
	return 0
}

func (p *protocolHandler) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf.Write(data)
	content := p.buf.String()
	p.buf.Reset()

	for {
		idx, typ := findNextMessage(content)
		if typ == messageNone {
			keep := partialPrefixLen(content)
			p.passthrough(content[:len(content)-keep])
			p.buf.WriteString(content[len(content)-keep:])
			break
		}
		p.passthrough(content[:idx])

		prefix := protocolPrefix
		if typ == messageNotify {
			prefix = protocolNotifyPrefix
		}
		payload, remaining, ok := extractMessage(content, idx, prefix)
		if !ok {
			p.buf.WriteString(remaining)
			break
		}
		content = remaining

		var req callRequest
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			if typ == messageCall {
				p.respond(callResponse{Error: "invalid call format"})
			}
			continue
		}
		resp := p.handleCall(req)
		if typ == messageCall {
			p.respond(resp)
		}
	}

	return len(data), nil
}

func (p *protocolHandler) passthrough(s string) {
	if s == "" {
		return
	}
	p.realStderr.WriteString(s)
	if p.out != nil {
		io.WriteString(p.out, s)
	}
}

// respond writes asynchronously: the guest reads its response only after
// the stderr write returns.
func (p *protocolHandler) respond(resp callResponse) {
	data, _ := json.Marshal(resp)
	go p.stdinWriter.Write(append(data, '\n'))
}

func (p *protocolHandler) handleCall(req callRequest) callResponse {
	fn, ok := p.registry.Get(req.Fn)
	if !ok {
		return callResponse{ID: req.ID, Error: "unknown function: " + req.Fn}
	}

	result, err := fn(p.ctx, req.Args)
	if err != nil {
		return callResponse{ID: req.ID, Error: err.Error()}
	}
	return callResponse{ID: req.ID, Data: result}
}

// finish passes through whatever is left of an unterminated frame.
func (p *protocolHandler) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.passthrough(p.buf.String())
	p.buf.Reset()
}

// Stderr returns the guest's stderr with protocol frames removed.
func (p *protocolHandler) Stderr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.realStderr.String()
}
