package compiler

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestEsbuildStripsTypes(t *testing.T) {
	c := &Esbuild{}
	out, err := c.Compile(context.Background(), Request{
		Source:   "export const n: number = 1;\nexport function f(a: string): string { return a; }\n",
		Filename: "util.ts",
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if strings.Contains(out, ": number") || strings.Contains(out, ": string") {
		t.Errorf("type annotations survived:\n%s", out)
	}
	if !strings.Contains(out, "export") {
		t.Errorf("ESM output expected:\n%s", out)
	}
}

func TestEsbuildCommonJS(t *testing.T) {
	c := &Esbuild{}
	out, err := c.Compile(context.Background(), Request{
		Source:   "export const n = 1;",
		Filename: "util.ts",
		Module:   ModuleCommonJS,
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(out, "module.exports") {
		t.Errorf("commonjs output expected:\n%s", out)
	}
}

func TestEsbuildSourceMaps(t *testing.T) {
	out, err := NewEsbuild().Compile(context.Background(), Request{Source: "const a = 1;", Filename: "a.ts"})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(out, "sourceMappingURL=data:") {
		t.Errorf("inline source map missing:\n%s", out)
	}
}

func TestEsbuildSyntaxError(t *testing.T) {
	_, err := (&Esbuild{}).Compile(context.Background(), Request{
		Source:   "const a = ;\n",
		Filename: "bad.ts",
	})
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if cerr.File != "bad.ts" || cerr.Line != 1 {
		t.Errorf("position = %s:%d", cerr.File, cerr.Line)
	}
	if !strings.Contains(err.Error(), "bad.ts:1:") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestEsbuildJavaScriptMode(t *testing.T) {
	_, err := (&Esbuild{}).Compile(context.Background(), Request{
		Source:   "const a: number = 1;",
		Filename: "a.js",
		Mode:     ModeJavaScript,
	})
	if err == nil {
		t.Error("type annotations should not parse as JavaScript")
	}
}

func TestEsbuildCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (&Esbuild{}).Compile(ctx, Request{Source: "1"}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{&Error{File: "a.ts", Line: 3, Column: 7, Text: "Unexpected \";\""}, `a.ts:3:7: syntax error: Unexpected ";"`},
		{&Error{File: "a.ts", Text: "boom"}, "a.ts: syntax error: boom"},
		{&Error{File: "a.ts", Line: 1, Text: "x", More: 2}, "a.ts:1:0: syntax error: x (and 2 more)"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
