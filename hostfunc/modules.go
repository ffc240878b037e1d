package hostfunc

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/caffeineduck/modshim/loader"
)

// Modules exposes the loader pipeline to the program.
type Modules struct {
	Pipeline *loader.Pipeline
	// Next is the host resolver the pipeline delegates to.
	Next loader.NextResolve
}

// ResolveSync is resolve_sync: {specifier, parent} -> Resolved. parent may
// be a file URL or a filesystem path; an empty parent resolves against
// the working directory.
func (m *Modules) ResolveSync(ctx context.Context, args map[string]any) (any, error) {
	spec, ok := stringArg(args, "specifier")
	if !ok || spec == "" {
		return nil, errors.New("specifier required")
	}
	parent, _ := stringArg(args, "parent")
	if filepath.IsAbs(parent) {
		parent = loader.PathToFileURL(parent)
	}

	res, err := m.Pipeline.Resolve(ctx, loader.Request{Specifier: spec, ParentURL: parent}, m.Next)
	if err != nil {
		return nil, err
	}
	out := Resolved{Path: res.URL, URL: res.URL, Format: res.Format.String()}
	if loader.IsFileURL(res.URL) {
		if path, err := loader.FileURLToPath(res.URL); err == nil {
			out.Path = path
		}
	}
	return out, nil
}

// Register adds resolve_sync to r.
func (m *Modules) Register(r *Registry) {
	r.Register("resolve_sync", m.ResolveSync)
}
