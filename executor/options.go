package executor

import (
	"io"
	"maps"
	"time"

	"github.com/caffeineduck/modshim/hostfunc"
)

// Option configures a single run.
type Option func(*runConfig)

type runConfig struct {
	timeout   time.Duration
	mounts    []hostfunc.Mount
	fsOptions []hostfunc.FSOption
	args      []string
	env       map[string]string
	stdout    io.Writer
	stderr    io.Writer
	funcs     map[string]hostfunc.Func
}

func defaultRunConfig() runConfig {
	return runConfig{
		timeout: 30 * time.Second,
	}
}

// WithTimeout sets the maximum execution time. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *runConfig) {
		c.timeout = d
	}
}

// Mount permission modes (re-exported from hostfunc for convenience).
const (
	MountReadOnly        = hostfunc.MountReadOnly
	MountReadWrite       = hostfunc.MountReadWrite
	MountReadWriteCreate = hostfunc.MountReadWriteCreate
)

// WithMount adds a filesystem mount. The program sees virtualPath; reads
// and writes go to hostPath.
//
//	executor.WithMount("/app", "./project", executor.MountReadOnly)
//	executor.WithMount("/out", "./out", executor.MountReadWriteCreate)
func WithMount(virtualPath, hostPath string, mode hostfunc.MountMode) Option {
	return func(c *runConfig) {
		c.mounts = append(c.mounts, hostfunc.Mount{
			VirtualPath: virtualPath,
			HostPath:    hostPath,
			Mode:        mode,
		})
	}
}

// WithFSMaxFileSize sets the maximum file size for read operations.
func WithFSMaxFileSize(size int64) Option {
	return func(c *runConfig) {
		c.fsOptions = append(c.fsOptions, hostfunc.WithMaxFileSize(size))
	}
}

// WithFSMaxWriteSize sets the maximum content size for write operations.
func WithFSMaxWriteSize(size int64) Option {
	return func(c *runConfig) {
		c.fsOptions = append(c.fsOptions, hostfunc.WithMaxWriteSize(size))
	}
}

// WithFSMaxPathLength sets the maximum path length for filesystem operations.
func WithFSMaxPathLength(length int) Option {
	return func(c *runConfig) {
		c.fsOptions = append(c.fsOptions, hostfunc.WithMaxPathLength(length))
	}
}

// WithArgs sets the program's process.argv tail.
func WithArgs(args ...string) Option {
	return func(c *runConfig) {
		c.args = append(c.args, args...)
	}
}

// WithMain sets the entry path the program sees as process.argv[1].
func WithMain(path string) Option {
	return WithEnv(map[string]string{EnvMain: path})
}

// WithEnv adds environment variables visible to the program.
func WithEnv(env map[string]string) Option {
	return func(c *runConfig) {
		if c.env == nil {
			c.env = make(map[string]string, len(env))
		}
		maps.Copy(c.env, env)
	}
}

// WithStdout streams the program's stdout to w. Result.Output still holds
// a copy.
func WithStdout(w io.Writer) Option {
	return func(c *runConfig) {
		c.stdout = w
	}
}

// WithStderr streams the program's stderr, minus protocol frames, to w.
func WithStderr(w io.Writer) Option {
	return func(c *runConfig) {
		c.stderr = w
	}
}

// WithHostFunc registers fn for this run only.
func WithHostFunc(name string, fn hostfunc.Func) Option {
	return func(c *runConfig) {
		if c.funcs == nil {
			c.funcs = make(map[string]hostfunc.Func)
		}
		c.funcs[name] = fn
	}
}

// ExecutorOption configures the Executor at creation time.
type ExecutorOption func(*executorConfig)

type executorConfig struct {
	diskCache        bool
	cacheDir         string
	precompile       []Language
	memoryLimitPages uint32 // 0 = wazero default (4GB)
}

func defaultExecutorConfig() executorConfig {
	return executorConfig{}
}

// WithDiskCache enables a persistent compilation cache. The default
// directory is $XDG_CACHE_HOME/modshim/wazero.
//
//	executor.New(registry, executor.WithDiskCache())
//	executor.New(registry, executor.WithDiskCache("/tmp/cache"))
func WithDiskCache(dir ...string) ExecutorOption {
	return func(c *executorConfig) {
		c.diskCache = true
		if len(dir) > 0 && dir[0] != "" {
			c.cacheDir = dir[0]
		}
	}
}

// WithPrecompile compiles langs when the Executor is created.
func WithPrecompile(langs ...Language) ExecutorOption {
	return func(c *executorConfig) {
		c.precompile = langs
	}
}

// WithMemoryLimit caps guest memory in 64KB pages.
func WithMemoryLimit(pages uint32) ExecutorOption {
	return func(c *executorConfig) {
		c.memoryLimitPages = pages
	}
}

// Memory limit constants for convenience.
const (
	MemoryLimit1MB   uint32 = 16
	MemoryLimit16MB  uint32 = 256
	MemoryLimit64MB  uint32 = 1024
	MemoryLimit256MB uint32 = 4096
	MemoryLimit1GB   uint32 = 16384
)
