package loader

import (
	"context"
)

// Resolve is the resolution hook. Reserved names are answered from the
// table without touching the filesystem or next; everything else goes to
// next first and, when the result is a file, is refined by extension
// probing.
func (p *Pipeline) Resolve(ctx context.Context, req Request, next NextResolve) (Resolution, error) {
	res, err := p.resolve(ctx, req, next)
	if err != nil {
		p.logger.Debug("resolve failed", "specifier", req.Specifier, "parent", req.ParentURL, "error", err)
		return Resolution{}, err
	}
	if req.IsEntry() {
		p.recordMain(res.URL)
	}
	p.logger.Debug("resolved", "specifier", req.Specifier, "parent", req.ParentURL,
		"url", res.URL, "format", res.Format.String())
	return res, nil
}

func (p *Pipeline) resolve(ctx context.Context, req Request, next NextResolve) (Resolution, error) {
	switch entry, match := p.table.Lookup(req.Specifier); match {
	case MatchUnknown:
		return Resolution{}, unknownVirtual(req.Specifier)
	case MatchFound:
		return virtualResolution(entry), nil
	}

	delegated, delegateErr := next(ctx, req)
	specifier := req.Specifier
	expected := FormatModule
	if delegateErr == nil {
		if delegated.ShortCircuit || delegated.Format.Intrinsic() {
			return delegated, nil
		}
		specifier = delegated.URL
		if delegated.Format.Kind != KindUnknown {
			expected = delegated.Format
		}
	}

	if IsPathLike(specifier) {
		if res, ok := p.prober.Probe(specifier, req.ParentURL, expected); ok {
			return res, nil
		}
	}
	if delegateErr != nil {
		return Resolution{}, delegateErr
	}
	return delegated, nil
}

func virtualResolution(e Entry) Resolution {
	if r, ok := e.Dispatch.(Redirect); ok {
		return Resolution{URL: PathToFileURL(r.Path), Format: FormatModule, ShortCircuit: true}
	}
	return Resolution{URL: virtualURL(e.Name), Format: FormatVirtual, ShortCircuit: true}
}
