package host

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caffeineduck/modshim/loader"
)

// Resolve is the default resolver. It never guesses extensions; that is
// the pipeline's job.
func Resolve(ctx context.Context, req loader.Request) (loader.Resolution, error) {
	spec := req.Specifier
	if name, ok := Builtin(spec); ok {
		return loader.Resolution{URL: BuiltinScheme + name, Format: loader.FormatBuiltin}, nil
	}

	switch {
	case loader.IsFileURL(spec):
		path, err := loader.FileURLToPath(spec)
		if err != nil {
			return loader.Resolution{}, errorf(CodeModuleNotFound, "%v", err)
		}
		return resolveFile(path, req)
	case isRelative(spec) || filepath.IsAbs(spec):
		path := spec
		if !filepath.IsAbs(path) {
			dir, err := parentDir(req)
			if err != nil {
				return loader.Resolution{}, err
			}
			path = filepath.Join(dir, filepath.FromSlash(spec))
		}
		return resolveFile(path, req)
	case hasScheme(spec):
		return loader.Resolution{}, errorf(CodeUnsupportedScheme,
			"Only URLs with a scheme in: file, node are supported by the default ESM loader. Received protocol '%s'",
			spec[:strings.Index(spec, ":")+1])
	}
	return resolvePackage(spec, req)
}

func isRelative(spec string) bool {
	return spec == "." || spec == ".." || strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")
}

// hasScheme reports whether spec looks like an absolute URL. Single letter
// schemes are Windows drive letters.
func hasScheme(spec string) bool {
	i := strings.Index(spec, ":")
	if i < 2 {
		return false
	}
	for _, c := range spec[:i] {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.') {
			return false
		}
	}
	return true
}

func parentDir(req loader.Request) (string, error) {
	if req.IsEntry() {
		return os.Getwd()
	}
	path, err := loader.FileURLToPath(req.ParentURL)
	if err != nil {
		return "", errorf(CodeModuleNotFound, "Cannot resolve %q relative to %s", req.Specifier, req.ParentURL)
	}
	return filepath.Dir(path), nil
}

func resolveFile(path string, req loader.Request) (loader.Resolution, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return loader.Resolution{}, errorf(CodeModuleNotFound, "Cannot find module '%s'%s", path, importedFrom(req.ParentURL))
		}
		return loader.Resolution{}, err
	}
	if info.IsDir() {
		return loader.Resolution{}, errorf(CodeUnsupportedDir, "Directory import '%s' is not supported resolving ES modules%s", path, importedFrom(req.ParentURL))
	}
	return loader.Resolution{URL: loader.PathToFileURL(path), Format: FormatOf(path)}, nil
}

// FormatOf returns the format the host assigns to a file by extension.
// Extensions the host cannot execute, including .ts, are FormatUnknown.
func FormatOf(path string) loader.Format {
	switch filepath.Ext(path) {
	case ".mjs":
		return loader.FormatModule
	case ".cjs":
		return loader.FormatCommonJS
	case ".js":
		if packageType(filepath.Dir(path)) == "module" {
			return loader.FormatModule
		}
		return loader.FormatCommonJS
	case ".json":
		return loader.FormatJSON
	case ".wasm":
		return loader.FormatWasm
	}
	return loader.FormatUnknown
}

type packageJSON struct {
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Main    string          `json:"main"`
	Module  string          `json:"module"`
	Exports json.RawMessage `json:"exports"`
}

func readPackageJSON(dir string) (*packageJSON, error) {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return nil, err
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, errorf(CodeInvalidPackageTarget, "Invalid package config %s: %v", filepath.Join(dir, "package.json"), err)
	}
	return &pkg, nil
}

// packageType returns the "type" of the nearest package.json at or above
// dir, stopping at node_modules boundaries.
func packageType(dir string) string {
	for {
		if pkg, err := readPackageJSON(dir); err == nil {
			return pkg.Type
		}
		if filepath.Base(dir) == "node_modules" {
			return ""
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// splitPackage splits "pkg/sub" and "@scope/pkg/sub" into name and subpath.
func splitPackage(spec string) (name, subpath string) {
	parts := strings.SplitN(spec, "/", 3)
	if strings.HasPrefix(spec, "@") && len(parts) > 1 {
		name = parts[0] + "/" + parts[1]
		if len(parts) == 3 {
			subpath = parts[2]
		}
		return name, subpath
	}
	name, subpath, _ = strings.Cut(spec, "/")
	return name, subpath
}

func resolvePackage(spec string, req loader.Request) (loader.Resolution, error) {
	name, subpath := splitPackage(spec)
	dir, err := parentDir(req)
	if err != nil {
		return loader.Resolution{}, err
	}
	for {
		pkgDir := filepath.Join(dir, "node_modules", filepath.FromSlash(name))
		if info, err := os.Stat(pkgDir); err == nil && info.IsDir() {
			target, err := packageEntry(pkgDir, subpath)
			if err != nil {
				return loader.Resolution{}, err
			}
			return resolveFile(target, req)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return loader.Resolution{}, errorf(CodeModuleNotFound, "Cannot find package '%s'%s", name, importedFrom(req.ParentURL))
}

// packageEntry picks the file a package import refers to: a matching
// "exports" entry, then "module", "main" and index.js.
func packageEntry(pkgDir, subpath string) (string, error) {
	pkg, err := readPackageJSON(pkgDir)
	if err != nil {
		var herr *Error
		if errors.As(err, &herr) {
			return "", herr
		}
		pkg = &packageJSON{}
	}

	key := "."
	if subpath != "" {
		key = "./" + subpath
	}
	if target, ok := exportsTarget(pkg.Exports, key); ok {
		if !strings.HasPrefix(target, "./") {
			return "", errorf(CodeInvalidPackageTarget, "Invalid \"exports\" target %q in %s", target, pkgDir)
		}
		return filepath.Join(pkgDir, filepath.FromSlash(target)), nil
	}
	if subpath != "" {
		return filepath.Join(pkgDir, filepath.FromSlash(subpath)), nil
	}

	for _, field := range []string{pkg.Module, pkg.Main} {
		if field == "" {
			continue
		}
		base := filepath.Join(pkgDir, filepath.FromSlash(field))
		for _, candidate := range []string{base, base + ".js", filepath.Join(base, "index.js")} {
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
	}
	return filepath.Join(pkgDir, "index.js"), nil
}

// conditions are the export conditions this host matches, in priority order.
var conditions = []string{"import", "node", "default"}

func exportsTarget(raw json.RawMessage, key string) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, key == "."
	}
	m, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	subpaths := false
	for k := range m {
		if strings.HasPrefix(k, ".") {
			subpaths = true
			break
		}
	}
	if !subpaths {
		if key != "." {
			return "", false
		}
		return conditionalTarget(m)
	}
	entry, ok := m[key]
	if !ok {
		return "", false
	}
	switch e := entry.(type) {
	case string:
		return e, true
	case map[string]any:
		return conditionalTarget(e)
	}
	return "", false
}

func conditionalTarget(m map[string]any) (string, bool) {
	for _, cond := range conditions {
		switch v := m[cond].(type) {
		case string:
			return v, true
		case map[string]any:
			if s, ok := conditionalTarget(v); ok {
				return s, true
			}
		}
	}
	return "", false
}
