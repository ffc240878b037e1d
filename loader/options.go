package loader

import (
	"log/slog"

	"github.com/caffeineduck/modshim/compiler"
	"github.com/caffeineduck/modshim/diag"
)

// Option configures a Pipeline.
type Option func(*pipelineConfig)

type pipelineConfig struct {
	table    *Table
	compiler compiler.Compiler
	sink     *diag.Sink
	prober   *Prober
	readFile func(path string) ([]byte, error)
	logger   *slog.Logger
}

// WithTable replaces the default virtual module table.
func WithTable(t *Table) Option {
	return func(c *pipelineConfig) {
		c.table = t
	}
}

// WithCompiler sets the compiler used for TypeScript modules.
// Default is compiler.NewEsbuild().
func WithCompiler(comp compiler.Compiler) Option {
	return func(c *pipelineConfig) {
		c.compiler = comp
	}
}

// WithSink routes advisories to s. Default drops them.
func WithSink(s *diag.Sink) Option {
	return func(c *pipelineConfig) {
		c.sink = s
	}
}

// WithProber replaces the filesystem prober.
func WithProber(p *Prober) Option {
	return func(c *pipelineConfig) {
		c.prober = p
	}
}

// WithReadFile replaces the function used to read TypeScript sources.
func WithReadFile(fn func(path string) ([]byte, error)) Option {
	return func(c *pipelineConfig) {
		c.readFile = fn
	}
}

// WithLogger sets the logger for resolution tracing at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(c *pipelineConfig) {
		c.logger = l
	}
}
