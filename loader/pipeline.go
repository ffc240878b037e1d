package loader

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/caffeineduck/modshim/compiler"
	"github.com/caffeineduck/modshim/diag"
)

// DefaultNamespace is the reserved namespace of the built-in table.
const DefaultNamespace = "bun"

// BootstrapHelper is the shim file, relative to the shim directory, that
// the prologue imports.
const BootstrapHelper = "importmeta.js"

const bootstrapBinding = "__modshim_meta__"

// Pipeline holds the resolve and load hooks. It is safe for concurrent use;
// its only mutable state is the entry URL, recorded once.
type Pipeline struct {
	table     *Table
	compiler  compiler.Compiler
	sink      *diag.Sink
	prober    *Prober
	readFile  func(path string) ([]byte, error)
	logger    *slog.Logger
	helperURL string
	prologue  string

	mainMu  sync.Mutex
	mainURL string
}

// New returns a pipeline whose shims live in shimDir.
func New(shimDir string, opts ...Option) (*Pipeline, error) {
	cfg := pipelineConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	shimDir, err := filepath.Abs(shimDir)
	if err != nil {
		return nil, fmt.Errorf("shim dir: %w", err)
	}
	if cfg.table == nil {
		cfg.table, err = NewTable(DefaultNamespace, DefaultEntries(shimDir)...)
		if err != nil {
			return nil, err
		}
	}
	if cfg.compiler == nil {
		cfg.compiler = compiler.NewEsbuild()
	}
	if cfg.sink == nil {
		cfg.sink = diag.Discard()
	}
	if cfg.prober == nil {
		cfg.prober = NewProber()
	}
	if cfg.readFile == nil {
		cfg.readFile = os.ReadFile
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	helperURL := PathToFileURL(filepath.Join(shimDir, BootstrapHelper))
	return &Pipeline{
		table:     cfg.table,
		compiler:  cfg.compiler,
		sink:      cfg.sink,
		prober:    cfg.prober,
		readFile:  cfg.readFile,
		logger:    cfg.logger,
		helperURL: helperURL,
		prologue:  Prologue(helperURL),
	}, nil
}

// Prologue is the bootstrap code placed ahead of every module's own
// statements. It gives import.meta the module's path, dir, file and the
// resolve/resolveSync functions. It has no trailing newline so the
// module's first line stays line 1 in diagnostics and source maps.
func Prologue(helperURL string) string {
	return fmt.Sprintf("import %s from %q;%s(import.meta);", bootstrapBinding, helperURL, bootstrapBinding)
}

// Table returns the virtual module table.
func (p *Pipeline) Table() *Table {
	return p.table
}

// Prologue returns this pipeline's bootstrap prologue.
func (p *Pipeline) Prologue() string {
	return p.prologue
}

// HelperURL is the URL of the bootstrap helper module.
func (p *Pipeline) HelperURL() string {
	return p.helperURL
}

// Sink returns the diagnostics sink.
func (p *Pipeline) Sink() *diag.Sink {
	return p.sink
}

// MainURL returns the resolved URL of the program entry, or "" before the
// entry has been resolved.
func (p *Pipeline) MainURL() string {
	p.mainMu.Lock()
	defer p.mainMu.Unlock()
	return p.mainURL
}

// recordMain keeps the first entry URL only.
func (p *Pipeline) recordMain(url string) {
	p.mainMu.Lock()
	defer p.mainMu.Unlock()
	if p.mainURL == "" {
		p.mainURL = url
	}
}
