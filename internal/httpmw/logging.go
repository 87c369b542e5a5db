package httpmw

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/beaconhillfe/bhfe-web/internal/log"
)

// responseWriter records status and body size for the access log.
type responseWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.status == 0 {
		rw.status = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying ResponseWriter does not implement http.Hijacker")
	}
	return h.Hijack()
}

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// WithLogger stores a request-scoped logger in the context, carrying the
// request id, client ip, method and path.
func WithLogger(base log.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = log.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reqID := RequestIDFromContext(ctx)
			client := ClientIPFromContext(ctx)
			scheme := schemeFromRequest(r)

			if span := trace.SpanFromContext(ctx); span.IsRecording() {
				span.SetAttributes(
					attribute.String("request_id", reqID),
					attribute.String("client.address", client),
					attribute.String("url.scheme", scheme),
				)
			}

			l := base.With(
				"request_id", reqID,
				"client.address", client,
				"server.address", r.Host,
				"http.request.method", r.Method,
				"url.path", r.URL.Path,
				"url.scheme", scheme,
			)
			next.ServeHTTP(w, r.WithContext(log.WithContext(ctx, l)))
		})
	}
}

// AccessLog writes one line per request. Static assets and probe
// endpoints are skipped.
func AccessLog() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w}
			next.ServeHTTP(rw, r)

			if skipAccessLog(r.URL.Path) {
				return
			}
			status := rw.status
			if status == 0 {
				status = http.StatusOK
			}
			ctx := r.Context()
			log.FromContext(ctx).Info(ctx, "http request",
				"http.response.status_code", status,
				"http.server.request.duration", time.Since(start).Seconds(),
				"http.response.body.size", rw.bytes,
				"http.route", routePattern(r),
				"cache", w.Header().Get("X-Cache"),
			)
		})
	}
}

func skipAccessLog(p string) bool {
	if strings.HasPrefix(p, "/-/") || strings.HasPrefix(p, "/static/") {
		return true
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".css", ".js", ".png", ".jpg", ".jpeg", ".webp", ".svg", ".ico", ".woff", ".woff2", ".map":
		return true
	}
	return false
}

// schemeFromRequest prefers X-Forwarded-Proto, which ClientIP strips
// unless the peer is a trusted proxy.
func schemeFromRequest(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-Proto"); xf != "" {
		s := strings.ToLower(strings.TrimSpace(strings.Split(xf, ",")[0]))
		if s == "http" || s == "https" {
			return s
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// Scope tags the context logger and span with the handler name.
func Scope(handler string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = log.WithContext(ctx, log.FromContext(ctx).With("handler", handler))
			if span := trace.SpanFromContext(ctx); span.IsRecording() {
				span.SetAttributes(attribute.String("app.handler", handler))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
