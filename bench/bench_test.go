// Package bench measures the cost of each stage between a program on disk
// and its first output.
//
// Benchmarks: go test -bench=. -benchtime=3x ./bench/
package bench

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/caffeineduck/modshim/bundle"
	"github.com/caffeineduck/modshim/compiler"
	"github.com/caffeineduck/modshim/executor"
	"github.com/caffeineduck/modshim/host"
	"github.com/caffeineduck/modshim/hostfunc"
	"github.com/caffeineduck/modshim/language/javascript"
	"github.com/caffeineduck/modshim/loader"
	"github.com/caffeineduck/modshim/shims"
)

// fixture is a small TypeScript program with a few extensionless imports.
type fixture struct {
	dir      string
	pipeline *loader.Pipeline
}

func newFixture(tb testing.TB) *fixture {
	tb.Helper()
	dir := tb.TempDir()
	files := map[string]string{
		"main.ts":      "import { add } from './math';\nimport { fmt } from './lib';\nconsole.log(fmt(add(1, 2)));\n",
		"math.ts":      "export const add = (a: number, b: number): number => a + b;\n",
		"lib/index.ts": "export { fmt } from './fmt';\n",
		"lib/fmt.ts":   "export function fmt(n: number): string { return `n=${n}`; }\n",
		"package.json": `{"type":"module"}`,
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		os.MkdirAll(filepath.Dir(path), 0755)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			tb.Fatal(err)
		}
	}
	shimDir, err := shims.Materialize(filepath.Join(dir, ".shims"))
	if err != nil {
		tb.Fatal(err)
	}
	p, err := loader.New(shimDir)
	if err != nil {
		tb.Fatal(err)
	}
	return &fixture{dir: dir, pipeline: p}
}

func (f *fixture) parent() string {
	return loader.PathToFileURL(filepath.Join(f.dir, "main.ts"))
}

// =============================================================================
// PIPELINE
// =============================================================================

func BenchmarkResolve_Probe(b *testing.B) {
	f := newFixture(b)
	req := loader.Request{Specifier: "./math", ParentURL: f.parent()}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := f.pipeline.Resolve(context.Background(), req, host.Resolve); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkResolve_Virtual(b *testing.B) {
	f := newFixture(b)
	req := loader.Request{Specifier: "bun:ffi", ParentURL: f.parent()}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := f.pipeline.Resolve(context.Background(), req, host.Resolve); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCompile_TypeScript(b *testing.B) {
	comp := compiler.NewEsbuild()
	req := compiler.Request{
		Source:   "export const add = (a: number, b: number): number => a + b;\n",
		Filename: "math.ts",
		Mode:     compiler.ModeTypeScript,
		Module:   compiler.ModuleESM,
	}

	for i := 0; i < b.N; i++ {
		if _, err := comp.Compile(context.Background(), req); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBundle(b *testing.B) {
	f := newFixture(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := bundle.Build(context.Background(), "./main.ts", bundle.Options{Pipeline: f.pipeline, WorkingDir: f.dir}); err != nil {
			b.Fatal(err)
		}
	}
}

// =============================================================================
// EXECUTION
// =============================================================================

func BenchmarkRun_ColdStart(b *testing.B) {
	f := newFixture(b)
	built, err := bundle.Build(context.Background(), "./main.ts", bundle.Options{Pipeline: f.pipeline, WorkingDir: f.dir})
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		exec, _ := executor.New(hostfunc.NewRegistry())
		exec.Run(context.Background(), javascript.New(), string(built.Code))
		exec.Close()
	}
}

func BenchmarkRun_WarmStart(b *testing.B) {
	f := newFixture(b)
	built, err := bundle.Build(context.Background(), "./main.ts", bundle.Options{Pipeline: f.pipeline, WorkingDir: f.dir})
	if err != nil {
		b.Fatal(err)
	}
	exec, _ := executor.New(hostfunc.NewRegistry())
	defer exec.Close()
	lang := javascript.New()
	exec.Run(context.Background(), lang, "1")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		exec.Run(context.Background(), lang, string(built.Code))
	}
}

func BenchmarkRun_HostFunction(b *testing.B) {
	exec, _ := executor.New(hostfunc.NewRegistry())
	defer exec.Close()
	lang := javascript.New()
	code := `for (let i = 0; i < 100; i++) __modshim_host("time_now", {});`
	exec.Run(context.Background(), lang, "1")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		exec.Run(context.Background(), lang, code)
	}
}

// =============================================================================
// DISK CACHE (simulates CLI usage)
// =============================================================================

func TestDiskCacheBenefit(t *testing.T) {
	if testing.Short() {
		t.Skip("compiles the interpreter several times")
	}
	cacheDir := t.TempDir()
	lang := javascript.New()

	var times []time.Duration
	for i := 0; i < 3; i++ {
		start := time.Now()

		exec, err := executor.New(hostfunc.NewRegistry(), executor.WithDiskCache(cacheDir))
		if err != nil {
			t.Fatal(err)
		}
		result := exec.Run(context.Background(), lang, `console.log(1)`)
		exec.Close()
		if result.Error != nil {
			t.Fatalf("run %d: %v", i, result.Error)
		}

		times = append(times, time.Since(start))
	}

	fmt.Println()
	fmt.Println("=== Disk Cache Benefit (simulated CLI calls) ===")
	for i, d := range times {
		label := "cached"
		if i == 0 {
			label = "compile"
		}
		fmt.Printf("Call %d (%s): %v\n", i+1, label, d)
	}
	fmt.Printf("Speedup: %.1fx faster after first call\n", float64(times[0])/float64(times[1]))
	fmt.Println()
}

func TestEndToEnd(t *testing.T) {
	f := newFixture(t)
	built, err := bundle.Build(context.Background(), "./main.ts", bundle.Options{Pipeline: f.pipeline, WorkingDir: f.dir})
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}

	exec, err := executor.New(hostfunc.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	defer exec.Close()

	result := exec.Run(context.Background(), javascript.New(), string(built.Code))
	if result.Error != nil {
		t.Fatalf("run: %v\n%s", result.Error, result.Output)
	}
	if result.Output != "n=3\n" {
		t.Errorf("output = %q, want %q", result.Output, "n=3\n")
	}
}
