package loader

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/caffeineduck/modshim/diag"
)

// VirtualScheme prefixes the URL of every virtual module with no backing file.
const VirtualScheme = "virtual:"

// Dispatch says how a virtual module is served. The concrete types are
// Inline, Redirect and Unsupported.
type Dispatch interface {
	dispatch()
}

// Inline serves generated source text.
type Inline struct {
	Source string
}

// Redirect serves a shim file on disk.
type Redirect struct {
	Path string
}

// Unsupported fails every import of the module.
type Unsupported struct {
	Reason string
}

func (Inline) dispatch()      {}
func (Redirect) dispatch()    {}
func (Unsupported) dispatch() {}

// Entry is one reserved name.
type Entry struct {
	Name     string
	Dispatch Dispatch
	// Advisory, when set, is emitted each time the module is loaded.
	Advisory *diag.Warning
}

// Match is the outcome of a table lookup.
type Match int

const (
	// MatchNone means the specifier is outside the reserved namespace.
	MatchNone Match = iota
	// MatchFound means the specifier is a registered name.
	MatchFound
	// MatchUnknown means the specifier claims the namespace but is not registered.
	MatchUnknown
)

// Table is the immutable set of reserved module names.
type Table struct {
	namespace string
	entries   map[string]Entry
	byURL     map[string]Entry
}

// NewTable builds a table for namespace. Later entries replace earlier ones
// with the same name. Every name must be the namespace itself or start
// with "namespace:".
func NewTable(namespace string, entries ...Entry) (*Table, error) {
	t := &Table{
		namespace: namespace,
		entries:   make(map[string]Entry, len(entries)),
		byURL:     make(map[string]Entry),
	}
	for _, e := range entries {
		if e.Name != namespace && !strings.HasPrefix(e.Name, namespace+":") {
			return nil, fmt.Errorf("virtual module %q is outside namespace %q", e.Name, namespace)
		}
		switch d := e.Dispatch.(type) {
		case Inline, Unsupported:
		case Redirect:
			if !filepath.IsAbs(d.Path) {
				return nil, fmt.Errorf("virtual module %q: redirect path %q is not absolute", e.Name, d.Path)
			}
		default:
			return nil, fmt.Errorf("virtual module %q: missing dispatch", e.Name)
		}
		if old, ok := t.entries[e.Name]; ok {
			if r, ok := old.Dispatch.(Redirect); ok {
				delete(t.byURL, PathToFileURL(r.Path))
			}
		}
		t.entries[e.Name] = e
		if r, ok := e.Dispatch.(Redirect); ok {
			t.byURL[PathToFileURL(r.Path)] = e
		}
	}
	return t, nil
}

// Namespace returns the reserved namespace.
func (t *Table) Namespace() string {
	return t.namespace
}

// Lookup classifies a specifier against the table.
func (t *Table) Lookup(specifier string) (Entry, Match) {
	if e, ok := t.entries[specifier]; ok {
		return e, MatchFound
	}
	if specifier == t.namespace || strings.HasPrefix(specifier, t.namespace+":") {
		return Entry{}, MatchUnknown
	}
	return Entry{}, MatchNone
}

// ByURL returns the entry whose redirect target is url.
func (t *Table) ByURL(url string) (Entry, bool) {
	e, ok := t.byURL[url]
	return e, ok
}

// Names returns the reserved names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultEntries is the built-in compatibility surface, backed by the shim
// files in shimDir.
func DefaultEntries(shimDir string) []Entry {
	shim := func(name string) string {
		return filepath.Join(shimDir, name+".js")
	}
	root := PathToFileURL(shim("bun"))
	return []Entry{
		{
			Name: "bun",
			Dispatch: Inline{Source: fmt.Sprintf(
				"export * from %q;\nexport { default } from %q;\n", root, root)},
		},
		{Name: "bun:main", Dispatch: Unsupported{Reason: "it would require the entry module to import itself"}},
		{Name: "bun:sqlite", Dispatch: Unsupported{}},
		{Name: "bun:ffi", Dispatch: Redirect{Path: shim("ffi")}},
		{Name: "bun:test", Dispatch: Redirect{Path: shim("test")}},
		{
			Name:     "bun:jsc",
			Dispatch: Redirect{Path: shim("jsc")},
			Advisory: &diag.Warning{
				Name:    diag.NameModshim,
				Code:    "MODSHIM_JSC_POLYFILL",
				Message: "Loading polyfill for bun:jsc module.",
				Detail:  "bun:jsc polyfill attempts to translate JSC debug APIs to host engine debug APIs, but is very crude and incomplete, do not use this for serious debugging.",
			},
		},
	}
}

func virtualURL(name string) string {
	return VirtualScheme + name
}
