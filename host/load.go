package host

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"

	"github.com/caffeineduck/modshim/loader"
)

// Loader is the default loader. It reads files from disk and validates
// WebAssembly modules by compiling them with wazero. Compiled modules are
// cached per URL for the lifetime of the Loader.
type Loader struct {
	runtime  wazero.Runtime
	compiled map[string]wazero.CompiledModule
	mu       sync.RWMutex
	closed   bool
}

// NewLoader returns a Loader. Call Close to release the wasm runtime.
func NewLoader() *Loader {
	return &Loader{
		runtime:  wazero.NewRuntime(context.Background()),
		compiled: make(map[string]wazero.CompiledModule),
	}
}

// Load returns the source of url in the format resolution assigned.
func (l *Loader) Load(ctx context.Context, url string, lc *loader.LoadContext) (loader.Loaded, error) {
	if lc == nil {
		lc = &loader.LoadContext{}
	}
	if strings.HasPrefix(url, BuiltinScheme) || lc.Format.Kind == loader.KindBuiltin {
		return loader.Loaded{Format: loader.FormatBuiltin}, nil
	}
	if !loader.IsFileURL(url) {
		return loader.Loaded{}, errorf(CodeUnsupportedScheme, "Cannot load %s with the default loader", url)
	}
	path, err := loader.FileURLToPath(url)
	if err != nil {
		return loader.Loaded{}, err
	}

	format := lc.Format
	if format.Kind == loader.KindUnknown {
		format = FormatOf(path)
	}

	switch {
	case format.Kind == loader.KindJSON:
		if lc.Attributes["type"] != "json" {
			return loader.Loaded{}, errorf(CodeAttributeMissing, "Module \"%s\" needs an import attribute of \"type: json\"", url)
		}
	case format.Kind == loader.KindWasm:
	case format.IsScript() && !format.NeedsCompile():
	default:
		return loader.Loaded{}, errorf(CodeUnknownExtension, "Unknown file extension \"%s\" for %s", filepath.Ext(path), path)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return loader.Loaded{}, errorf(CodeModuleNotFound, "Cannot find module '%s'", path)
		}
		return loader.Loaded{}, fmt.Errorf("read %s: %w", path, err)
	}
	if format.Kind == loader.KindWasm {
		if _, err := l.compile(ctx, url, src); err != nil {
			return loader.Loaded{}, err
		}
	}
	return loader.Loaded{Format: format, Source: src}, nil
}

// WasmExports lists the functions exported by a wasm module this loader
// has already loaded.
func (l *Loader) WasmExports(url string) ([]string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	compiled, ok := l.compiled[url]
	if !ok {
		return nil, false
	}
	names := make([]string, 0, len(compiled.ExportedFunctions()))
	for name := range compiled.ExportedFunctions() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, true
}

func (l *Loader) compile(ctx context.Context, url string, src []byte) (wazero.CompiledModule, error) {
	l.mu.RLock()
	if compiled, ok := l.compiled[url]; ok {
		l.mu.RUnlock()
		return compiled, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, errors.New("host loader closed")
	}
	if compiled, ok := l.compiled[url]; ok {
		return compiled, nil
	}

	compiled, err := l.runtime.CompileModule(ctx, src)
	if err != nil {
		return nil, errorf(CodeInvalidWasm, "%s: %v", url, err)
	}
	l.compiled[url] = compiled
	return compiled, nil
}

// Close releases the wasm runtime and every compiled module.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	l.compiled = nil
	return l.runtime.Close(context.Background())
}
