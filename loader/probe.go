package loader

import (
	"os"
	"path/filepath"
	"strings"
)

// Suffixes probed by the Prober.
const (
	SuffixTS   = ".ts"
	SuffixJS   = ".js"
	SuffixJSON = ".json"
)

// Prober finds the file a path-like specifier refers to when the specifier
// omits its extension or names the TypeScript/JavaScript twin of the file
// that actually exists. It keeps no cache: every call re-checks the
// filesystem.
type Prober struct {
	// Exists reports whether path is an existing regular file.
	Exists func(path string) bool
	// Cwd is the base for entry specifiers. Empty means os.Getwd.
	Cwd string
}

// NewProber returns a prober backed by the OS filesystem.
func NewProber() *Prober {
	return &Prober{Exists: FileExists}
}

// FileExists reports whether path is an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Probe resolves specifier against parentURL. expected is the module kind
// the caller would otherwise use; TypeScript hits carry it with the dialect
// tag. The boolean is false when no candidate exists.
func (p *Prober) Probe(specifier, parentURL string, expected Format) (Resolution, bool) {
	base, err := p.absolute(specifier, parentURL)
	if err != nil {
		return Resolution{}, false
	}
	ts := expected.WithDialect()

	hit := func(path string, f Format) (Resolution, bool) {
		return Resolution{URL: PathToFileURL(path), Format: f, ShortCircuit: true}, true
	}

	exists := p.Exists(base)
	switch {
	case strings.HasSuffix(base, SuffixTS) && exists:
		return hit(base, ts)
	case strings.HasSuffix(base, SuffixJS) && exists:
		return hit(base, expected)
	}
	stem := base[:len(base)-len(filepath.Ext(base))]
	switch {
	case strings.HasSuffix(base, SuffixTS) && p.Exists(stem+SuffixJS):
		return hit(stem+SuffixJS, expected)
	case strings.HasSuffix(base, SuffixJS) && p.Exists(stem+SuffixTS):
		return hit(stem+SuffixTS, ts)
	}

	candidates := []struct {
		path   string
		format Format
	}{
		{base + SuffixTS, ts},
		{base + SuffixJS, expected},
		{base + SuffixJSON, FormatJSON},
		{filepath.Join(base, "index"+SuffixTS), ts},
		{filepath.Join(base, "index"+SuffixJS), expected},
		{filepath.Join(base, "index"+SuffixJSON), FormatJSON},
	}
	for _, c := range candidates {
		if p.Exists(c.path) {
			return hit(c.path, c.format)
		}
	}
	return Resolution{}, false
}

// absolute turns a path-like specifier into an absolute filesystem path.
func (p *Prober) absolute(specifier, parentURL string) (string, error) {
	if IsFileURL(specifier) {
		return FileURLToPath(specifier)
	}
	if filepath.IsAbs(specifier) {
		return filepath.Clean(specifier), nil
	}
	var dir string
	switch {
	case parentURL != "":
		parent, err := FileURLToPath(parentURL)
		if err != nil {
			return "", err
		}
		dir = filepath.Dir(parent)
	default:
		cwd := p.Cwd
		if cwd == "" {
			var err error
			if cwd, err = os.Getwd(); err != nil {
				return "", err
			}
		}
		dir = cwd
	}
	return filepath.Join(dir, specifier), nil
}
