// Package shims embeds the JavaScript compatibility modules that back the
// virtual module table and the bootstrap prologue.
//
// The pipeline addresses shims by file URL, so they must exist on disk.
// Materialize writes them to a directory once and leaves them alone when
// they are already current.
package shims

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed js/*.js js/package.json
var files embed.FS

// FS is the embedded shim tree, rooted at the shim directory.
var FS fs.FS

func init() {
	sub, err := fs.Sub(files, "js")
	if err != nil {
		panic(err)
	}
	FS = sub
}

// Names lists the embedded shim files.
func Names() []string {
	entries, _ := fs.ReadDir(FS, ".")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// Materialize writes every shim into dir and returns its absolute path.
// Files whose content already matches are not rewritten.
func Materialize(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("shim dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create shim dir: %w", err)
	}
	for _, name := range Names() {
		data, err := fs.ReadFile(FS, name)
		if err != nil {
			return "", err
		}
		dest := filepath.Join(dir, name)
		if existing, err := os.ReadFile(dest); err == nil && bytes.Equal(existing, data) {
			continue
		}
		if err := writeAtomic(dest, data); err != nil {
			return "", fmt.Errorf("write shim %s: %w", name, err)
		}
	}
	return dir, nil
}

// writeAtomic replaces dest in one rename so concurrent processes never
// read a partial shim.
func writeAtomic(dest string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".shim-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

// DefaultDir is where the CLI materializes shims:
// $XDG_CACHE_HOME/modshim/shims, falling back to ~/.cache and the
// system temp dir.
func DefaultDir() string {
	return filepath.Join(CacheDir(), "shims")
}

// CacheDir is modshim's per-user cache root.
func CacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "modshim")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "modshim")
	}
	return filepath.Join(os.TempDir(), "modshim-cache")
}
