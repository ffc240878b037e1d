package diag

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func newTestSink(opts Options) (*Sink, *bytes.Buffer) {
	var buf bytes.Buffer
	if opts.PID == 0 {
		opts.PID = 7
	}
	if opts.Argv0 == "" {
		opts.Argv0 = "modshim"
	}
	return New(&buf, opts), &buf
}

func TestFormatDefault(t *testing.T) {
	s, _ := newTestSink(Options{})
	got, ok := s.Format(Warning{Name: "Warning", Code: "X1", Message: "careful", Detail: "more"})
	if !ok {
		t.Fatal("warning filtered")
	}
	want := "(modshim:7) [X1] Warning: careful\nmore\n(Use `modshim --trace-warnings ...` to show where the warning was created)"
	if got != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}
}

func TestHintShownOnce(t *testing.T) {
	s, buf := newTestSink(Options{})
	s.Emit(Warning{Message: "one"})
	s.Emit(Warning{Message: "two"})
	if n := strings.Count(buf.String(), "--trace-warnings"); n != 1 {
		t.Errorf("hint shown %d times:\n%s", n, buf.String())
	}
}

func TestHintNeverForModshimWarnings(t *testing.T) {
	s, buf := newTestSink(Options{})
	s.Emit(Warning{Name: NameModshim, Code: "MODSHIM_JSC_POLYFILL", Message: "polyfill"})
	if strings.Contains(buf.String(), "--trace-warnings") {
		t.Errorf("hint attached to modshim warning:\n%s", buf.String())
	}
	s.Emit(Warning{Message: "later"})
	if !strings.Contains(buf.String(), "--trace-warnings") {
		t.Error("hint should still be available for the first other warning")
	}
}

func TestDeprecationHint(t *testing.T) {
	s, _ := newTestSink(Options{})
	got, _ := s.Format(Warning{Name: NameDeprecation, Code: "DEP0005", Message: "Buffer()"})
	if !strings.Contains(got, "--trace-deprecation") {
		t.Errorf("got %q", got)
	}
}

func TestTraceUsesStack(t *testing.T) {
	s, _ := newTestSink(Options{Trace: true})
	got, _ := s.Format(Warning{Message: "m", Stack: "Warning: m\n    at main.js:1:1"})
	want := "(modshim:7) Warning: m\n    at main.js:1:1"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFiltering(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		w    Warning
		want bool
	}{
		{"experimental suppressed", Options{}, Warning{Name: NameExperimental, Message: "loaders"}, false},
		{"experimental kept", Options{KeepInternal: true}, Warning{Name: NameExperimental, Message: "loaders"}, true},
		{"silent wins", Options{Silent: true, KeepInternal: true}, Warning{Name: NameExperimental}, false},
		{"silent drops modshim", Options{Silent: true}, Warning{Name: NameModshim}, false},
		{"no deprecation", Options{NoDeprecation: true}, Warning{Name: NameDeprecation}, false},
		{"plain warning", Options{}, Warning{Message: "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSink(tt.opts)
			if _, ok := s.Format(tt.w); ok != tt.want {
				t.Errorf("Format ok = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestNilSinkEmit(t *testing.T) {
	var s *Sink
	s.Emit(Warning{Message: "ignored"})
}

func TestConcurrentEmit(t *testing.T) {
	s, buf := newTestSink(Options{})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Emit(Warning{Message: "x"})
		}()
	}
	wg.Wait()
	if n := strings.Count(buf.String(), "(modshim:7)"); n != 20 {
		t.Errorf("printed %d warnings, want 20", n)
	}
	if n := strings.Count(buf.String(), "--trace-warnings"); n != 1 {
		t.Errorf("hint shown %d times", n)
	}
}
