package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/caffeineduck/modshim/compiler"
)

// Load is the load hook. It serves virtual modules, compiles TypeScript,
// tags JSON imports, and gives every ES module backed by a file the
// bootstrap prologue.
func (p *Pipeline) Load(ctx context.Context, url string, lc *LoadContext, next NextLoad) (Loaded, error) {
	if lc == nil {
		lc = &LoadContext{}
	}
	if strings.HasPrefix(url, VirtualScheme) {
		return p.loadVirtual(url)
	}
	if e, ok := p.table.ByURL(url); ok && e.Advisory != nil {
		p.sink.Emit(*e.Advisory)
	}

	switch {
	case lc.Format.NeedsCompile():
		return p.compile(ctx, url, lc.Format)
	case lc.Format.Kind == KindJSON:
		if lc.Attributes == nil {
			lc.Attributes = make(map[string]string)
		}
		lc.Attributes["type"] = "json"
		return next(ctx, url, lc)
	}

	loaded, err := next(ctx, url, lc)
	if err != nil {
		return Loaded{}, err
	}
	if IsFileURL(url) && loaded.Format.Kind == KindModule && url != p.helperURL {
		src := make([]byte, 0, len(p.prologue)+len(loaded.Source))
		src = append(src, p.prologue...)
		src = append(src, commentHashbang(string(loaded.Source))...)
		return Loaded{Format: loaded.Format, Source: src, ShortCircuit: true}, nil
	}
	return loaded, nil
}

func (p *Pipeline) loadVirtual(url string) (Loaded, error) {
	name := strings.TrimPrefix(url, VirtualScheme)
	e, match := p.table.Lookup(name)
	if match != MatchFound {
		return Loaded{}, unknownVirtual(name)
	}
	if e.Advisory != nil {
		p.sink.Emit(*e.Advisory)
	}
	switch d := e.Dispatch.(type) {
	case Inline:
		return Loaded{Format: FormatModule, Source: []byte(d.Source), ShortCircuit: true}, nil
	case Redirect:
		target := PathToFileURL(d.Path)
		src := fmt.Sprintf("export * from %q;\nexport { default } from %q;\n", target, target)
		return Loaded{Format: FormatModule, Source: []byte(src), ShortCircuit: true}, nil
	case Unsupported:
		return Loaded{}, unsupported(e.Name, d.Reason)
	}
	return Loaded{}, unknownVirtual(name)
}

func (p *Pipeline) compile(ctx context.Context, url string, format Format) (Loaded, error) {
	path, err := FileURLToPath(url)
	if err != nil {
		return Loaded{}, err
	}
	raw, err := p.readFile(path)
	if err != nil {
		return Loaded{}, fmt.Errorf("read %s: %w", path, err)
	}

	module := compiler.ModuleESM
	if format.Kind == KindCommonJS {
		module = compiler.ModuleCommonJS
	}
	out, err := p.compiler.Compile(ctx, compiler.Request{
		Source:   p.prologue + commentHashbang(normalizeNewlines(string(raw))),
		Filename: filepath.Base(path),
		Mode:     compiler.ModeTypeScript,
		Module:   module,
	})
	if err != nil {
		return Loaded{}, err
	}
	if out == "" {
		out = ";"
	}
	return Loaded{Format: format.Executable(), Source: []byte(out), ShortCircuit: true}, nil
}

// commentHashbang turns a leading #! line into a line comment. The
// prologue shares the module's first line, where #! is not valid.
func commentHashbang(s string) string {
	if strings.HasPrefix(s, "#!") {
		return "//" + s[2:]
	}
	return s
}

// normalizeNewlines converts CRLF and lone CR line endings to LF.
func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
