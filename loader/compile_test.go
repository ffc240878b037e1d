package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/caffeineduck/modshim/compiler"
)

// These tests run the real esbuild compiler through the load hook.

func loadFromDisk(t *testing.T, name, src string) (Loaded, error) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p.Load(context.Background(), PathToFileURL(path), &LoadContext{Format: FormatTSModule}, failNext(t))
}

func TestCompileErrorLineMatchesFile(t *testing.T) {
	_, err := loadFromDisk(t, "bad.ts", "const a: number = 1;\nconst = ;\n")

	var cerr *compiler.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want *compiler.Error", err)
	}
	if cerr.File != "bad.ts" || cerr.Line != 2 {
		t.Errorf("error at %s:%d, want bad.ts:2", cerr.File, cerr.Line)
	}
}

func TestCompileErrorOnFirstLine(t *testing.T) {
	_, err := loadFromDisk(t, "first.ts", "const = 1;\n")

	var cerr *compiler.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want *compiler.Error", err)
	}
	if cerr.Line != 1 {
		t.Errorf("line = %d, want 1", cerr.Line)
	}
}

func TestCompileHashbangScript(t *testing.T) {
	got, err := loadFromDisk(t, "cli.ts", "#!/usr/bin/env bun\nconst n: number = 1;\nconsole.log(n);\n")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.Contains(string(got.Source), "console.log(n)") {
		t.Errorf("compiled source = %q", got.Source)
	}
}
