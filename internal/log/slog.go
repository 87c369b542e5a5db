package log

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"runtime"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

type slogLogger struct {
	h                 slog.Handler
	attrs             []slog.Attr
	includeErrorLinks bool
	maxErrorLinks     int
}

// implemented by xerrors wrappers
type hasPC interface {
	PC() uintptr
}

type hasStack interface {
	StackPCs() []uintptr
}

func newSlog(opts Options) (Logger, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}
	if opts.StacktraceLevel == 0 {
		opts.StacktraceLevel = slog.LevelError
	}
	if opts.MaxErrorLinks <= 0 {
		opts.MaxErrorLinks = 8
	}

	ho := &slog.HandlerOptions{Level: opts.Level, AddSource: true}
	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(w, ho)
	} else {
		h = slog.NewTextHandler(w, ho)
	}
	h = otelHandler{next: h}
	h = stackHandler{next: h, level: opts.StacktraceLevel}

	base := []slog.Attr{slog.String("app", opts.App)}
	if opts.Version != "" {
		base = append(base, slog.String("version", opts.Version))
	}
	if opts.Commit != "" {
		base = append(base, slog.String("commit", opts.Commit))
	}
	if opts.Environment != "" {
		base = append(base, slog.String("env", opts.Environment))
	}

	return &slogLogger{
		h:                 h,
		attrs:             base,
		includeErrorLinks: opts.IncludeErrorLinks,
		maxErrorLinks:     opts.MaxErrorLinks,
	}, nil
}

func (s *slogLogger) With(kv ...any) Logger {
	add := kvAttrs(kv)
	// copy-on-write, children never share a backing array with the parent
	next := make([]slog.Attr, 0, len(s.attrs)+len(add))
	next = append(next, s.attrs...)
	next = append(next, add...)
	return &slogLogger{
		h:                 s.h,
		attrs:             next,
		includeErrorLinks: s.includeErrorLinks,
		maxErrorLinks:     s.maxErrorLinks,
	}
}

func (s *slogLogger) Debug(ctx context.Context, msg string, kv ...any) {
	s.emit(ctx, slog.LevelDebug, msg, kv)
}

func (s *slogLogger) Info(ctx context.Context, msg string, kv ...any) {
	s.emit(ctx, slog.LevelInfo, msg, kv)
}

func (s *slogLogger) Warn(ctx context.Context, msg string, kv ...any) {
	s.emit(ctx, slog.LevelWarn, msg, kv)
}

func (s *slogLogger) Error(ctx context.Context, err error, msg string, kv ...any) {
	if err != nil {
		surface, root := classifyTypes(err)
		kv = append(kv, "err", err, "error_type", surface, "cause_type", root)
		if chain := errorChain(err); len(chain) > 0 {
			kv = append(kv, "error_chain", chain)
		}
		if s.includeErrorLinks {
			kv = append(kv, "error_links", chainLinks(err, s.maxErrorLinks))
		}
	}
	s.emit(ctx, slog.LevelError, msg, kv)
}

func (s *slogLogger) Sync() error { return nil }

func (s *slogLogger) emit(ctx context.Context, lvl slog.Level, msg string, kv []any) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !s.h.Enabled(ctx, lvl) {
		return
	}
	// skip runtime.Callers, emit, the level method
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])

	r := slog.NewRecord(time.Now(), lvl, msg, pcs[0])
	r.AddAttrs(s.attrs...)
	r.AddAttrs(kvAttrs(kv)...)
	_ = s.h.Handle(ctx, r)
}

// kvAttrs pairs up kv, dropping non-string keys and a trailing odd value.
func kvAttrs(kv []any) []slog.Attr {
	out := make([]slog.Attr, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			out = append(out, slog.Any(k, kv[i+1]))
		}
	}
	return out
}

type otelHandler struct{ next slog.Handler }

func (h otelHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.next.Enabled(ctx, lvl)
}

func (h otelHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.next.Handle(ctx, r)
}

func (h otelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return otelHandler{next: h.next.WithAttrs(attrs)}
}

func (h otelHandler) WithGroup(name string) slog.Handler {
	return otelHandler{next: h.next.WithGroup(name)}
}

type stackHandler struct {
	next  slog.Handler
	level slog.Level
}

func (h stackHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.next.Enabled(ctx, lvl)
}

func (h stackHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level {
		var pcs []uintptr
		r.Attrs(func(a slog.Attr) bool {
			if a.Key != "err" {
				return true
			}
			if hs, ok := a.Value.Any().(hasStack); ok && hs != nil {
				pcs = hs.StackPCs()
			}
			return false
		})
		if len(pcs) == 0 {
			// skip runtime.Callers, Handle
			buf := make([]uintptr, 64)
			pcs = buf[:runtime.Callers(2, buf)]
		}
		r.AddAttrs(slog.String("stack", renderPCs(pcs)))
	}
	return h.next.Handle(ctx, r)
}

func (h stackHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return stackHandler{next: h.next.WithAttrs(attrs), level: h.level}
}

func (h stackHandler) WithGroup(name string) slog.Handler {
	return stackHandler{next: h.next.WithGroup(name), level: h.level}
}

// errorChain lists each distinct message down the Unwrap chain, then the
// branches of a joined error.
func errorChain(err error) []string {
	out := make([]string, 0, 8)
	var prev string
	for e := err; e != nil; e = errors.Unwrap(e) {
		if msg := e.Error(); msg != prev {
			out = append(out, msg)
			prev = msg
		}
	}
	if m, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range m.Unwrap() {
			if msg := e.Error(); msg != prev {
				out = append(out, msg)
				prev = msg
			}
		}
	}
	return out
}

func chainLinks(err error, max int) []map[string]any {
	links := make([]map[string]any, 0, 8)
	depth := 0
	for e := err; e != nil && (max <= 0 || depth < max); e = errors.Unwrap(e) {
		link := map[string]any{"msg": e.Error()}
		var fr runtime.Frame
		var ok bool
		if hp, isPC := e.(hasPC); isPC {
			fr, ok = frameFromPC(hp.PC())
		} else if hs, isStack := e.(hasStack); isStack {
			fr, ok = firstExtFrame(hs.StackPCs())
		}
		if ok {
			link["func"], link["file"], link["line"] = fr.Function, fr.File, fr.Line
		}
		if depth == 0 || ok {
			links = append(links, link)
		}
		depth++
	}
	return links
}

// classifyTypes reports the first non-wrapper type in the chain and the
// type of the innermost error.
func classifyTypes(err error) (surface, root string) {
	if err == nil {
		return "", ""
	}
	var last error
	for e := err; e != nil; e = errors.Unwrap(e) {
		last = e
		if surface != "" {
			continue
		}
		t := reflect.TypeOf(e)
		u := t
		for u.Kind() == reflect.Ptr {
			u = u.Elem()
		}
		if strings.Contains(u.PkgPath(), "/internal/xerrors") {
			continue
		}
		if u.PkgPath() == "fmt" && u.Name() == "wrapError" {
			continue
		}
		surface = t.String()
	}
	if surface == "" {
		surface = fmt.Sprintf("%T", err)
	}
	return surface, fmt.Sprintf("%T", last)
}
