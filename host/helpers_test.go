package host

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/caffeineduck/modshim/loader"
)

// writeTree creates files under a fresh temp dir and returns its root.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func urlOf(root, name string) string {
	return loader.PathToFileURL(filepath.Join(root, filepath.FromSlash(name)))
}

func hostCode(err error) string {
	if herr, ok := err.(*Error); ok {
		return herr.Code
	}
	return ""
}
