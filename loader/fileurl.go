package loader

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// PathToFileURL converts an absolute filesystem path to a file: URL.
func PathToFileURL(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

// FileURLToPath converts a file: URL back to a filesystem path.
func FileURLToPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", rawURL, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("%q is not a file URL", rawURL)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("file URL %q has non-local host", rawURL)
	}
	return filepath.FromSlash(u.Path), nil
}

// IsFileURL reports whether s uses the file: scheme.
func IsFileURL(s string) bool {
	return strings.HasPrefix(s, "file://")
}

// IsPathLike reports whether a specifier names a filesystem location rather
// than a package or a builtin.
func IsPathLike(specifier string) bool {
	return strings.HasPrefix(specifier, ".") ||
		strings.HasPrefix(specifier, "/") ||
		IsFileURL(specifier)
}
