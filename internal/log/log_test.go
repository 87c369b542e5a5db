package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

// --- helpers

func newTestLogger(t *testing.T, buf *bytes.Buffer, opts Options) *slogLogger {
	t.Helper()
	opts.Writer = buf
	opts.JSON = true
	l, err := newSlog(opts)
	if err != nil {
		t.Fatalf("newSlog: %v", err)
	}
	return l.(*slogLogger)
}

// lastRecord decodes the last JSON line written to buf.
func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &m); err != nil {
		t.Fatalf("decode log line: %v\nraw: %s", err, buf.String())
	}
	return m
}

// --- ParseLevel

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{" warn ", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"Error", slog.LevelError, false},
		{"trace", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseLevel(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

// --- construction

func TestNew_BaseAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, Options{App: "bhfe-web", Version: "1.2.3", Environment: "staging"})
	l.Info(context.Background(), "hello")

	rec := lastRecord(t, &buf)
	if rec["app"] != "bhfe-web" || rec["version"] != "1.2.3" || rec["env"] != "staging" {
		t.Fatalf("base attrs missing: %v", rec)
	}
	if _, ok := rec["commit"]; ok {
		t.Fatal("empty commit should not be logged")
	}
	if rec["msg"] != "hello" {
		t.Fatalf("msg = %v", rec["msg"])
	}
}

func TestNew_Defaults(t *testing.T) {
	l, err := newSlog(Options{App: "x"})
	if err != nil {
		t.Fatalf("newSlog: %v", err)
	}
	s := l.(*slogLogger)
	if s.maxErrorLinks != 8 {
		t.Fatalf("maxErrorLinks = %d, want 8", s.maxErrorLinks)
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(Options{App: "x", Writer: &buf})
	l.Info(context.Background(), "plain", "k", "v")
	if !strings.Contains(buf.String(), "k=v") {
		t.Fatalf("expected logfmt output, got %q", buf.String())
	}
}

// --- levels and attrs

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, Options{Level: slog.LevelWarn})
	ctx := context.Background()
	l.Debug(ctx, "d")
	l.Info(ctx, "i")
	if buf.Len() != 0 {
		t.Fatalf("debug/info should be filtered, got %q", buf.String())
	}
	l.Warn(ctx, "w")
	if lastRecord(t, &buf)["msg"] != "w" {
		t.Fatal("warn should pass")
	}
}

func TestWith_CopyOnWrite(t *testing.T) {
	var buf bytes.Buffer
	parent := newTestLogger(t, &buf, Options{})
	a := parent.With("component", "a")
	_ = parent.With("component", "b", "extra", 1)

	a.Info(context.Background(), "from a")
	rec := lastRecord(t, &buf)
	if rec["component"] != "a" {
		t.Fatalf("component = %v", rec["component"])
	}
	if _, ok := rec["extra"]; ok {
		t.Fatal("sibling attrs leaked into a")
	}
}

func TestWith_DropsBadPairs(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, Options{}).With(42, "x", "ok", true, "dangling")
	l.Info(context.Background(), "m")
	rec := lastRecord(t, &buf)
	if rec["ok"] != true {
		t.Fatalf("ok attr missing: %v", rec)
	}
	if _, found := rec["dangling"]; found {
		t.Fatal("odd trailing key should be dropped")
	}
}

// --- Error enrichment

type codeErr struct{ code int }

func (e *codeErr) Error() string { return fmt.Sprintf("code %d", e.code) }

func TestError_Enrichment(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, Options{IncludeErrorLinks: true})
	err := fmt.Errorf("fetch page: %w", &codeErr{502})
	l.Error(context.Background(), err, "render failed", "uri", "/about/")

	rec := lastRecord(t, &buf)
	if rec["error_type"] != "*log.codeErr" {
		t.Fatalf("error_type = %v", rec["error_type"])
	}
	if rec["cause_type"] != "*log.codeErr" {
		t.Fatalf("cause_type = %v", rec["cause_type"])
	}
	chain, _ := rec["error_chain"].([]any)
	if len(chain) != 2 {
		t.Fatalf("error_chain = %v", rec["error_chain"])
	}
	if _, ok := rec["error_links"]; !ok {
		t.Fatal("error_links missing")
	}
	if _, ok := rec["stack"]; !ok {
		t.Fatal("error level should carry a stack")
	}
	if rec["uri"] != "/about/" {
		t.Fatal("caller kv missing")
	}
}

func TestError_NilErr(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, Options{})
	l.Error(context.Background(), nil, "no err")
	rec := lastRecord(t, &buf)
	if _, ok := rec["error_type"]; ok {
		t.Fatal("nil error should not be classified")
	}
}

func TestErrorChain_Joined(t *testing.T) {
	err := errors.Join(errors.New("a"), errors.New("b"))
	got := errorChain(err)
	if len(got) != 3 || got[1] != "a" || got[2] != "b" {
		t.Fatalf("errorChain = %q", got)
	}
}

func TestClassifyTypes_Nil(t *testing.T) {
	if s, r := classifyTypes(nil); s != "" || r != "" {
		t.Fatalf("got %q %q", s, r)
	}
}

func TestChainLinks_Max(t *testing.T) {
	err := fmt.Errorf("a: %w", fmt.Errorf("b: %w", errors.New("c")))
	if got := chainLinks(err, 1); len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
}

// --- handlers

func TestOtelHandler_TraceIDs(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, Options{})
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	l.Info(ctx, "traced")

	rec := lastRecord(t, &buf)
	if rec["trace_id"] != sc.TraceID().String() || rec["span_id"] != sc.SpanID().String() {
		t.Fatalf("trace fields = %v / %v", rec["trace_id"], rec["span_id"])
	}
}

func TestStackHandler_BelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, Options{})
	l.Warn(context.Background(), "no stack")
	if _, ok := lastRecord(t, &buf)["stack"]; ok {
		t.Fatal("warn should not carry a stack")
	}
}

func TestRenderPCs_Empty(t *testing.T) {
	if got := renderPCs(nil); got != "" {
		t.Fatalf("renderPCs(nil) = %q", got)
	}
	if _, ok := frameFromPC(0); ok {
		t.Fatal("zero pc should not resolve")
	}
	if _, ok := firstExtFrame(nil); ok {
		t.Fatal("empty pcs should not resolve")
	}
}

// --- context + nop

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, Options{})
	ctx := WithContext(context.Background(), l)
	if FromContext(ctx) != Logger(l) {
		t.Fatal("FromContext returned a different logger")
	}
	if _, ok := FromContext(context.Background()).(nopLogger); !ok {
		t.Fatal("empty context should yield Nop")
	}
}

func TestNop_Safe(t *testing.T) {
	l := Nop().With("a", 1).With("b", 2)
	ctx := context.Background()
	l.Debug(ctx, "x")
	l.Info(ctx, "x")
	l.Warn(ctx, "x")
	l.Error(ctx, errors.New("boom"), "x")
	if err := l.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
}
