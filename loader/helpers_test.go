package loader

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/caffeineduck/modshim/compiler"
)

const testShimDir = "/shims"

// memFS is an in-memory set of existing files that records every probe.
type memFS struct {
	mu     sync.Mutex
	files  map[string]string
	probes []string
}

func newMemFS(files map[string]string) *memFS {
	m := &memFS{files: make(map[string]string)}
	for path, content := range files {
		m.files[filepath.FromSlash(path)] = content
	}
	return m
}

func (m *memFS) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes = append(m.probes, path)
	_, ok := m.files[path]
	return ok
}

func (m *memFS) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[path]
	if !ok {
		return nil, errors.New("no such file: " + path)
	}
	return []byte(content), nil
}

func (m *memFS) probeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.probes)
}

// echoCompiler returns its input unchanged and records each request.
type echoCompiler struct {
	mu       sync.Mutex
	requests []compiler.Request
}

func (c *echoCompiler) Compile(ctx context.Context, req compiler.Request) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	return req.Source, nil
}

func newTestPipeline(t *testing.T, fs *memFS, opts ...Option) *Pipeline {
	t.Helper()
	base := []Option{
		WithProber(&Prober{Exists: fs.Exists, Cwd: "/app"}),
		WithReadFile(fs.ReadFile),
		WithCompiler(&echoCompiler{}),
	}
	p, err := New(testShimDir, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

// notFound mimics a host resolver that only knows fully specified files.
func notFound(ctx context.Context, req Request) (Resolution, error) {
	return Resolution{}, errors.New("cannot find module " + req.Specifier)
}

// strictHost resolves path-like specifiers that exist verbatim, as the
// host does for fully specified imports.
func strictHost(fs *memFS) NextResolve {
	return func(ctx context.Context, req Request) (Resolution, error) {
		if !IsPathLike(req.Specifier) {
			return Resolution{}, errors.New("cannot find package " + req.Specifier)
		}
		path := req.Specifier
		if IsFileURL(path) {
			path, _ = FileURLToPath(path)
		} else if !filepath.IsAbs(path) {
			dir := "/app"
			if req.ParentURL != "" {
				parent, _ := FileURLToPath(req.ParentURL)
				dir = filepath.Dir(parent)
			}
			path = filepath.Join(dir, path)
		}
		if _, ok := fs.files[path]; !ok {
			return Resolution{}, errors.New("cannot find module " + path)
		}
		f := FormatUnknown
		switch {
		case strings.HasSuffix(path, ".js"):
			f = FormatModule
		case strings.HasSuffix(path, ".json"):
			f = FormatJSON
		}
		return Resolution{URL: PathToFileURL(path), Format: f}, nil
	}
}

func fileURL(path string) string {
	return PathToFileURL(filepath.FromSlash(path))
}
