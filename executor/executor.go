package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/caffeineduck/modshim/hostfunc"
	"github.com/caffeineduck/modshim/shims"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
)

// Environment variables read by the guest runtime.
const (
	// EnvArgv carries the program's arguments as a JSON array.
	EnvArgv = "MODSHIM_ARGV"
	// EnvMain is the entry path, process.argv[1].
	EnvMain = "MODSHIM_MAIN"
)

// Result holds the output and metadata from one run.
type Result struct {
	Output   string
	Duration time.Duration
	// ExitCode is the code the program passed to process.exit, or 0.
	ExitCode int
	Error    error
}

// Executor manages the WASM runtime and caches compiled interpreters.
type Executor struct {
	runtime  wazero.Runtime
	cache    wazero.CompilationCache
	compiled map[string]wazero.CompiledModule
	registry *hostfunc.Registry
	mu       sync.RWMutex
	closed   bool
}

// New creates an Executor. Every run sees the functions in registry plus
// its own per-run functions.
func New(registry *hostfunc.Registry, opts ...ExecutorOption) (*Executor, error) {
	cfg := defaultExecutorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx := context.Background()

	var cache wazero.CompilationCache
	var err error

	if cfg.diskCache {
		cacheDir := cfg.cacheDir
		if cacheDir == "" {
			cacheDir = defaultCacheDir()
		}
		cache, err = wazero.NewCompilationCacheWithDir(cacheDir)
		if err != nil {
			return nil, fmt.Errorf("create disk cache: %w", err)
		}
	}

	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cache != nil {
		rtConfig = rtConfig.WithCompilationCache(cache)
	}
	if cfg.memoryLimitPages > 0 {
		rtConfig = rtConfig.WithMemoryLimitPages(cfg.memoryLimitPages)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, rtConfig)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		if cache != nil {
			cache.Close(ctx)
		}
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}

	if registry == nil {
		registry = hostfunc.NewRegistry()
	}
	e := &Executor{
		runtime:  rt,
		cache:    cache,
		compiled: make(map[string]wazero.CompiledModule),
		registry: registry,
	}

	for _, lang := range cfg.precompile {
		if _, err := e.getCompiled(ctx, lang); err != nil {
			e.Close()
			return nil, fmt.Errorf("precompile %s: %w", lang.Name(), err)
		}
	}

	return e, nil
}

// Run executes code in lang.
func (e *Executor) Run(ctx context.Context, lang Language, code string, opts ...Option) Result {
	start := time.Now()

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	compiled, err := e.getCompiled(ctx, lang)
	if err != nil {
		return Result{Error: err, Duration: time.Since(start)}
	}

	registry := e.runRegistry(cfg)

	argv, err := json.Marshal(append([]string{}, cfg.args...))
	if err != nil {
		return Result{Error: fmt.Errorf("encode args: %w", err), Duration: time.Since(start)}
	}

	var stdout bytes.Buffer
	var stdoutW io.Writer = &stdout
	if cfg.stdout != nil {
		stdoutW = io.MultiWriter(&stdout, cfg.stdout)
	}
	stdinReader, stdinWriter := io.Pipe()
	protocol := newProtocolHandler(ctx, registry, stdinWriter, cfg.stderr)

	moduleConfig := wazero.NewModuleConfig().
		WithStdout(stdoutW).
		WithStderr(protocol).
		WithStdin(stdinReader).
		WithArgs(lang.Args(lang.WrapCode(code))...).
		WithEnv(EnvArgv, string(argv)).
		WithSysWalltime().
		WithSysNanotime().
		WithName("")
	for _, k := range slices.Sorted(maps.Keys(cfg.env)) {
		moduleConfig = moduleConfig.WithEnv(k, cfg.env[k])
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := e.runtime.InstantiateModule(ctx, compiled, moduleConfig)
		stdinWriter.Close()
		errCh <- err
	}()

	err = <-errCh
	protocol.finish()

	result := Result{
		Output:   stdout.String() + protocol.Stderr(),
		Duration: time.Since(start),
	}

	var exitErr *sys.ExitError
	switch {
	case err == nil:
	case ctx.Err() == context.DeadlineExceeded:
		result.Error = fmt.Errorf("timeout after %v", cfg.timeout)
	case errors.As(err, &exitErr):
		result.ExitCode = int(exitErr.ExitCode())
		if result.ExitCode != 0 {
			result.Error = fmt.Errorf("exit status %d", result.ExitCode)
		}
	default:
		result.Error = fmt.Errorf("execution failed: %w", err)
	}

	return result
}

// runRegistry clones the shared registry and adds the per-run functions.
func (e *Executor) runRegistry(cfg runConfig) *hostfunc.Registry {
	registry := e.registry.Clone()

	registry.Register("time_now", func(ctx context.Context, args map[string]any) (any, error) {
		return float64(time.Now().UnixNano()) / 1e9, nil
	})

	if len(cfg.mounts) > 0 {
		hostfunc.NewFS(cfg.mounts, cfg.fsOptions...).Register(registry)
	}
	for name, fn := range cfg.funcs {
		registry.Register(name, fn)
	}
	return registry
}

// getCompiled returns a cached compiled module, compiling if necessary.
func (e *Executor) getCompiled(ctx context.Context, lang Language) (wazero.CompiledModule, error) {
	name := lang.Name()

	e.mu.RLock()
	if compiled, ok := e.compiled[name]; ok {
		e.mu.RUnlock()
		return compiled, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if compiled, ok := e.compiled[name]; ok {
		return compiled, nil
	}

	compiled, err := e.runtime.CompileModule(ctx, lang.Module())
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}

	e.compiled[name] = compiled
	return compiled, nil
}

// Close releases all resources held by the Executor.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	ctx := context.Background()

	var errs []error
	if err := e.runtime.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if e.cache != nil {
		if err := e.cache.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func defaultCacheDir() string {
	return filepath.Join(shims.CacheDir(), "wazero")
}
