// Package config loads modshim.hcl, the optional per-project
// configuration file.
//
// A missing file is not an error: every setting has a default, and the
// built-in virtual module table is used as is. The file can extend the
// table with its own virtual blocks:
//
//	namespace = "bun"
//	shim_dir  = "${cache_dir}/shims"
//
//	warnings {
//	  keep_internal = false
//	  silent        = false
//	}
//
//	virtual "bun:sqlite" {
//	  unsupported = "use the sql host module instead"
//	}
//
//	virtual "bun:answer" {
//	  source = "export default 42;"
//	}
//
// Expressions can use the variables cwd, cache_dir and version, and the
// function env(name).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/caffeineduck/modshim/loader"
	"github.com/caffeineduck/modshim/shims"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "modshim.hcl"

// EnvNoWarnings silences all diagnostics when set to a true value.
const EnvNoWarnings = "MODSHIM_TRUE_NO_WARNINGS"

// Config is the resolved project configuration.
type Config struct {
	// Path is the file the configuration came from, or "" for defaults.
	Path      string
	Namespace string
	ShimDir   string
	Warnings  Warnings
	Virtual   []Virtual
}

// Warnings mirrors diag.Options for the settings a project may pin.
type Warnings struct {
	KeepInternal  bool `hcl:"keep_internal,optional"`
	Silent        bool `hcl:"silent,optional"`
	Trace         bool `hcl:"trace,optional"`
	NoDeprecation bool `hcl:"no_deprecation,optional"`
}

// Virtual is one project-defined virtual module. Exactly one of
// Unsupported, Redirect and Source is set.
type Virtual struct {
	Name        string  `hcl:"name,label"`
	Unsupported *string `hcl:"unsupported,optional"`
	Redirect    *string `hcl:"redirect,optional"`
	Source      *string `hcl:"source,optional"`
}

type hclFile struct {
	Namespace *string    `hcl:"namespace,optional"`
	ShimDir   *string    `hcl:"shim_dir,optional"`
	Warnings  *Warnings  `hcl:"warnings,block"`
	Virtual   []*Virtual `hcl:"virtual,block"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Namespace: loader.DefaultNamespace,
		ShimDir:   shims.DefaultDir(),
	}
}

// Load reads the configuration at path. An empty path means FileName in
// the working directory, and in that case a missing file yields Default().
// Environment overrides are applied last.
func Load(path, version string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = FileName
	}
	cfg := Default()

	src, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(cfg, path, src, version); err != nil {
			return nil, err
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func decode(cfg *Config, path string, src []byte, version string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, path)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse %s: %w", path, diags)
	}

	var parsed hclFile
	diags = gohcl.DecodeBody(file.Body, evalContext(filepath.Dir(abs), version), &parsed)
	if diags.HasErrors() {
		return fmt.Errorf("failed to decode %s: %w", path, diags)
	}

	cfg.Path = abs
	if parsed.Namespace != nil {
		if *parsed.Namespace == "" {
			return fmt.Errorf("%s: namespace must not be empty", path)
		}
		cfg.Namespace = *parsed.Namespace
	}
	if parsed.ShimDir != nil {
		cfg.ShimDir = relativeTo(filepath.Dir(abs), *parsed.ShimDir)
	}
	if parsed.Warnings != nil {
		cfg.Warnings = *parsed.Warnings
	}

	seen := make(map[string]bool)
	for _, v := range parsed.Virtual {
		if seen[v.Name] {
			return fmt.Errorf("%s: virtual module %q defined twice", path, v.Name)
		}
		seen[v.Name] = true

		set := 0
		for _, field := range []*string{v.Unsupported, v.Redirect, v.Source} {
			if field != nil {
				set++
			}
		}
		if set != 1 {
			return fmt.Errorf("%s: virtual module %q needs exactly one of unsupported, redirect or source", path, v.Name)
		}
		if v.Redirect != nil {
			target := relativeTo(filepath.Dir(abs), *v.Redirect)
			v.Redirect = &target
		}
		cfg.Virtual = append(cfg.Virtual, *v)
	}
	return nil
}

func relativeTo(dir, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(dir, path)
}

func evalContext(cwd, version string) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"cwd":       cty.StringVal(cwd),
			"cache_dir": cty.StringVal(shims.CacheDir()),
			"version":   cty.StringVal(version),
		},
		Functions: map[string]function.Function{
			"env": envFunc,
		},
	}
}

var envFunc = function.New(&function.Spec{
	Params: []function.Parameter{{Name: "name", Type: cty.String}},
	Type:   function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		return cty.StringVal(os.Getenv(args[0].AsString())), nil
	},
})

func (c *Config) applyEnv() {
	switch os.Getenv(EnvNoWarnings) {
	case "", "0", "false":
	default:
		c.Warnings.Silent = true
	}
}

// Entries returns the virtual module entries for a pipeline whose shims
// live in shimDir: the built-in ones when the namespace is the default,
// followed by the project's own, which win on conflicts.
func (c *Config) Entries(shimDir string) []loader.Entry {
	var entries []loader.Entry
	if c.Namespace == loader.DefaultNamespace {
		entries = loader.DefaultEntries(shimDir)
	}
	for _, v := range c.Virtual {
		e := loader.Entry{Name: v.Name}
		switch {
		case v.Unsupported != nil:
			e.Dispatch = loader.Unsupported{Reason: *v.Unsupported}
		case v.Redirect != nil:
			e.Dispatch = loader.Redirect{Path: *v.Redirect}
		case v.Source != nil:
			e.Dispatch = loader.Inline{Source: *v.Source}
		}
		entries = append(entries, e)
	}
	return entries
}

// Table builds the virtual module table.
func (c *Config) Table(shimDir string) (*loader.Table, error) {
	return loader.NewTable(c.Namespace, c.Entries(shimDir)...)
}
