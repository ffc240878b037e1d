// Package bundle is the module system that runs the pipeline hooks.
//
// Build walks the import graph of an entry module with esbuild. Every
// import goes through the pipeline's Resolve hook and every module through
// its Load hook, with the host package as "next". The output is a single
// IIFE script that the executor can run. esbuild keys modules by path, so
// each resolved URL is instantiated once.
package bundle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/caffeineduck/modshim/host"
	"github.com/caffeineduck/modshim/internal/ctxlog"
	"github.com/caffeineduck/modshim/loader"
)

const virtualNamespace = "virtual"

// Options configures a build.
type Options struct {
	// Pipeline provides the hooks. Required.
	Pipeline *loader.Pipeline
	// Resolve is the next resolver. Default is host.Resolve.
	Resolve loader.NextResolve
	// Load is the next loader. Default is a host.Loader owned by the build.
	Load loader.NextLoad
	// WorkingDir anchors relative entries and metafile paths. Default is
	// the process working directory.
	WorkingDir string
	// Minify shrinks the output.
	Minify bool
	// SourceMap appends an inline source map to the output.
	SourceMap bool
}

// Module is one module instance in the bundle.
type Module struct {
	URL    string        `json:"url"`
	Format loader.Format `json:"format"`
}

// Result is a finished bundle.
type Result struct {
	Code []byte
	// Modules lists every bundled module in esbuild's discovery order.
	Modules []Module
	// Externals lists builtin modules the bundle imports but does not contain.
	Externals []string
	Warnings  []string
}

// Build bundles entry. A hook failure is returned as the original error,
// so callers can match *loader.Error, *host.Error or *compiler.Error.
func Build(ctx context.Context, entry string, opts Options) (*Result, error) {
	if opts.Pipeline == nil {
		return nil, errors.New("bundle: pipeline is required")
	}
	if opts.Resolve == nil {
		opts.Resolve = host.Resolve
	}
	if opts.Load == nil {
		l := host.NewLoader()
		defer l.Close()
		opts.Load = l.Load
	}
	if opts.WorkingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		opts.WorkingDir = wd
	}
	if loader.IsPathLike(entry) && !loader.IsFileURL(entry) && !filepath.IsAbs(entry) {
		entry = filepath.Join(opts.WorkingDir, filepath.FromSlash(entry))
	}

	b := &builder{ctx: ctx, opts: opts, formats: make(map[string]loader.Format)}
	buildOpts := api.BuildOptions{
		EntryPoints:   []string{entry},
		AbsWorkingDir: opts.WorkingDir,
		Bundle:        true,
		Write:         false,
		Outfile:       "bundle.js",
		Format:        api.FormatIIFE,
		Platform:      api.PlatformNeutral,
		Target:        api.ES2022,
		Metafile:      true,
		LogLevel:      api.LogLevelSilent,
		LogOverride: map[string]api.LogLevel{
			"empty-import-meta": api.LogLevelSilent,
		},
		MinifyWhitespace:  opts.Minify,
		MinifySyntax:      opts.Minify,
		MinifyIdentifiers: opts.Minify,
		Plugins:           []api.Plugin{b.plugin()},
	}
	if opts.SourceMap {
		buildOpts.Sourcemap = api.SourceMapInline
	}

	result := api.Build(buildOpts)
	if len(result.Errors) > 0 {
		if err := b.firstError(); err != nil {
			return nil, err
		}
		return nil, messagesError(result.Errors)
	}
	if len(result.OutputFiles) == 0 {
		return nil, errors.New("bundle: esbuild produced no output")
	}

	order, err := inputOrder(result.Metafile)
	if err != nil {
		return nil, fmt.Errorf("bundle: read metafile: %w", err)
	}
	out := &Result{Code: result.OutputFiles[0].Contents}
	for _, key := range order {
		url := inputURL(opts.WorkingDir, key)
		out.Modules = append(out.Modules, Module{URL: url, Format: b.format(url)})
	}
	out.Externals = b.sortedExternals()
	for _, m := range result.Warnings {
		out.Warnings = append(out.Warnings, formatMessage(m))
	}
	ctxlog.FromContext(ctx).Debug("bundle built", "entry", entry, "modules", len(out.Modules), "bytes", len(out.Code))
	return out, nil
}

type builder struct {
	ctx  context.Context
	opts Options

	mu        sync.Mutex
	formats   map[string]loader.Format
	externals []string
	err       error
}

func (b *builder) fail(err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		b.err = err
	}
	return err
}

func (b *builder) firstError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

func (b *builder) record(url string, f loader.Format) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.formats[url] = f
}

func (b *builder) format(url string) loader.Format {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.formats[url]
}

func (b *builder) external(url string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !slices.Contains(b.externals, url) {
		b.externals = append(b.externals, url)
	}
}

func (b *builder) sortedExternals() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := slices.Clone(b.externals)
	slices.Sort(out)
	return out
}

func (b *builder) plugin() api.Plugin {
	return api.Plugin{
		Name: "modshim",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: ".*"}, b.onResolve)
			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: "file"}, b.onLoad)
			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: virtualNamespace}, b.onLoad)
		},
	}
}

// parentURL maps an esbuild importer back to the module URL the hooks saw.
func parentURL(args api.OnResolveArgs) string {
	if args.Kind == api.ResolveEntryPoint || args.Importer == "" {
		return ""
	}
	if args.Namespace == virtualNamespace {
		return loader.VirtualScheme + args.Importer
	}
	return loader.PathToFileURL(args.Importer)
}

func (b *builder) onResolve(args api.OnResolveArgs) (api.OnResolveResult, error) {
	if err := b.ctx.Err(); err != nil {
		return api.OnResolveResult{}, b.fail(err)
	}
	req := loader.Request{Specifier: args.Path, ParentURL: parentURL(args)}
	res, err := b.opts.Pipeline.Resolve(b.ctx, req, b.opts.Resolve)
	if err != nil {
		return api.OnResolveResult{}, b.fail(err)
	}

	switch {
	case res.Format.Kind == loader.KindBuiltin:
		b.external(res.URL)
		return api.OnResolveResult{Path: res.URL, External: true}, nil
	case strings.HasPrefix(res.URL, loader.VirtualScheme):
		b.record(res.URL, res.Format)
		return api.OnResolveResult{
			Path:       strings.TrimPrefix(res.URL, loader.VirtualScheme),
			Namespace:  virtualNamespace,
			PluginData: res,
		}, nil
	case loader.IsFileURL(res.URL):
		path, err := loader.FileURLToPath(res.URL)
		if err != nil {
			return api.OnResolveResult{}, b.fail(err)
		}
		b.record(res.URL, res.Format)
		return api.OnResolveResult{Path: path, Namespace: "file", PluginData: res}, nil
	}
	return api.OnResolveResult{}, b.fail(fmt.Errorf("cannot bundle module %s", res.URL))
}

func (b *builder) onLoad(args api.OnLoadArgs) (api.OnLoadResult, error) {
	if err := b.ctx.Err(); err != nil {
		return api.OnLoadResult{}, b.fail(err)
	}
	url := loader.PathToFileURL(args.Path)
	if args.Namespace == virtualNamespace {
		url = loader.VirtualScheme + args.Path
	}
	lc := &loader.LoadContext{Format: b.format(url)}
	if res, ok := args.PluginData.(loader.Resolution); ok {
		lc.Format = res.Format
	}

	loaded, err := b.opts.Pipeline.Load(b.ctx, url, lc, b.opts.Load)
	if err != nil {
		return api.OnLoadResult{}, b.fail(err)
	}
	b.record(url, loaded.Format)

	contents := string(loaded.Source)
	var esLoader api.Loader
	switch loaded.Format.Kind {
	case loader.KindJSON:
		esLoader = api.LoaderJSON
	case loader.KindWasm:
		esLoader = api.LoaderBinary
	case loader.KindModule:
		esLoader = api.LoaderJS
		if loader.IsFileURL(url) {
			contents = fmt.Sprintf("import.meta.url = %q;\n", url) + contents
		}
	case loader.KindCommonJS:
		esLoader = api.LoaderJS
	default:
		return api.OnLoadResult{}, b.fail(fmt.Errorf("cannot bundle %s module %s", loaded.Format, url))
	}

	result := api.OnLoadResult{Contents: &contents, Loader: esLoader}
	if args.Namespace == "file" {
		result.ResolveDir = filepath.Dir(args.Path)
	}
	return result, nil
}

// inputOrder returns the keys of the metafile "inputs" object in the order
// esbuild wrote them.
func inputOrder(metafile string) ([]string, error) {
	dec := json.NewDecoder(strings.NewReader(metafile))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if tok != "inputs" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
			continue
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := tok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected metafile token %v", tok)
			}
			keys = append(keys, key)
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func inputURL(workingDir, key string) string {
	if strings.HasPrefix(key, virtualNamespace+":") {
		return loader.VirtualScheme + strings.TrimPrefix(key, virtualNamespace+":")
	}
	key = strings.TrimPrefix(key, "file:")
	if !filepath.IsAbs(key) {
		key = filepath.Join(workingDir, filepath.FromSlash(key))
	}
	return loader.PathToFileURL(key)
}
