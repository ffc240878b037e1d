package javascript

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/caffeineduck/modshim/executor"
	"github.com/caffeineduck/modshim/hostfunc"
)

func newExecutor(t *testing.T, registry *hostfunc.Registry) *executor.Executor {
	t.Helper()
	exec, err := executor.New(registry)
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	t.Cleanup(func() { exec.Close() })
	return exec
}

func TestJavaScriptBasicExecution(t *testing.T) {
	exec := newExecutor(t, hostfunc.NewRegistry())

	result := exec.Run(context.Background(), New(), `console.log("hello")`)
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if strings.TrimSpace(result.Output) != "hello" {
		t.Errorf("expected 'hello', got %q", result.Output)
	}
}

func TestJavaScriptTimeout(t *testing.T) {
	exec := newExecutor(t, hostfunc.NewRegistry())

	result := exec.Run(context.Background(), New(), `while(true){}`,
		executor.WithTimeout(2*time.Second))
	if result.Error == nil || !strings.Contains(result.Error.Error(), "timeout") {
		t.Errorf("expected timeout error, got %v", result.Error)
	}
}

func TestJavaScriptCustomHostFunction(t *testing.T) {
	registry := hostfunc.NewRegistry()
	registry.Register("greet", func(ctx context.Context, args map[string]any) (any, error) {
		return "Hello, " + args["name"].(string) + "!", nil
	})
	exec := newExecutor(t, registry)

	result := exec.Run(context.Background(), New(), `
const greeting = __modshim_host("greet", {name: "World"});
console.log(greeting);
`)
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if strings.TrimSpace(result.Output) != "Hello, World!" {
		t.Errorf("expected 'Hello, World!', got %q", result.Output)
	}
}

func TestJavaScriptHostErrorThrows(t *testing.T) {
	registry := hostfunc.NewRegistry()
	registry.Register("fail", func(ctx context.Context, args map[string]any) (any, error) {
		return nil, errors.New("denied")
	})
	exec := newExecutor(t, registry)

	result := exec.Run(context.Background(), New(), `
try { __modshim_host("fail", {}); } catch (e) { console.log("caught " + e.message); }
`)
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if !strings.Contains(result.Output, "caught denied") {
		t.Errorf("output = %q", result.Output)
	}
}

func TestJavaScriptProcessArgv(t *testing.T) {
	exec := newExecutor(t, hostfunc.NewRegistry())

	result := exec.Run(context.Background(), New(), `console.log(JSON.stringify(process.argv.slice(1)))`,
		executor.WithMain("/app/main.ts"), executor.WithArgs("a", "b c"))
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if strings.TrimSpace(result.Output) != `["/app/main.ts","a","b c"]` {
		t.Errorf("output = %q", result.Output)
	}
}

func TestJavaScriptExitCode(t *testing.T) {
	exec := newExecutor(t, hostfunc.NewRegistry())

	result := exec.Run(context.Background(), New(), `console.log("bye"); process.exit(3);`)
	if result.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3 (err %v)", result.ExitCode, result.Error)
	}
	if !strings.Contains(result.Output, "bye") {
		t.Errorf("output = %q", result.Output)
	}
}

func TestJavaScriptEmitWarning(t *testing.T) {
	var got []map[string]any
	registry := hostfunc.NewRegistry()
	registry.Register("emit_warning", func(ctx context.Context, args map[string]any) (any, error) {
		got = append(got, args)
		return nil, nil
	})
	exec := newExecutor(t, registry)

	result := exec.Run(context.Background(), New(), `
process.emitWarning("old api", "DeprecationWarning", "DEP0001");
console.log("done");
`)
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if len(got) != 1 {
		t.Fatalf("emit_warning called %d times", len(got))
	}
	if got[0]["name"] != "DeprecationWarning" || got[0]["code"] != "DEP0001" || got[0]["message"] != "old api" {
		t.Errorf("warning = %v", got[0])
	}
}

func TestJavaScriptRequireBuiltins(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "in.txt"), []byte("payload"), 0644)
	exec := newExecutor(t, hostfunc.NewRegistry())

	result := exec.Run(context.Background(), New(), `
const path = require("node:path");
const fs = require("fs");
console.log(path.join("/data", "x", "..", "in.txt"));
console.log(fs.readFileSync("/data/in.txt"));
try { require("node:net"); } catch (e) { console.log("missing"); }
`, executor.WithMount("/data", dir, executor.MountReadOnly))
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	want := "/data/in.txt\npayload\nmissing"
	if strings.TrimSpace(result.Output) != want {
		t.Errorf("output = %q, want %q", result.Output, want)
	}
}

func TestWrapCodeSeparatesRuntime(t *testing.T) {
	wrapped := New().WrapCode("(() => { console.log(1); })();")
	if !strings.HasSuffix(wrapped, ";\n(() => { console.log(1); })();") {
		t.Errorf("bundle should follow the runtime on a new statement, got tail %q", wrapped[len(wrapped)-40:])
	}
}

func TestWrapCodeHashbang(t *testing.T) {
	wrapped := New().WrapCode("#!/usr/bin/env bun\nconsole.log(1);")
	if !strings.HasSuffix(wrapped, "\n///usr/bin/env bun\nconsole.log(1);") {
		t.Errorf("hashbang not commented out, got tail %q", wrapped[len(wrapped)-40:])
	}
}

func TestJavaScriptHashbangBundle(t *testing.T) {
	exec := newExecutor(t, hostfunc.NewRegistry())

	result := exec.Run(context.Background(), New(), "#!/usr/bin/env bun\n(() => { console.log(\"iife\"); })();")
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if strings.TrimSpace(result.Output) != "iife" {
		t.Errorf("expected 'iife', got %q", result.Output)
	}
}
