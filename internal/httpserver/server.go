package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/beaconhillfe/bhfe-web/internal/health"
	"github.com/beaconhillfe/bhfe-web/internal/httpmw"
	"github.com/beaconhillfe/bhfe-web/internal/log"
	"github.com/beaconhillfe/bhfe-web/internal/xerrors"
)

// maxRequestBody caps request bodies. Only the preview exit endpoint
// accepts POST and it reads nothing.
const maxRequestBody = 4 << 10

// NewHandler builds an HTTP handler with routes + middleware
// main() owns *http.Server so it can do graceful shutdown
func NewHandler(opts *Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}

	// chi router
	r := chi.NewRouter()

	// Compress text responses (HTML/CSS/JS/JSON/SVG/XML)
	r.Use(middleware.Compress(5,
		"text/html",
		"text/css",
		"text/plain",
		"application/javascript",
		"text/javascript",
		"application/json",
		"application/xml",
		"image/svg+xml",
	))

	// HEAD is answered by GET routes
	r.Use(middleware.GetHead)

	// Annotate logger and tracer with http.route from chi route pattern if trace is recording
	r.Use(httpmw.AnnotateHTTPRoute)

	// Access log middleware
	r.Use(httpmw.AccessLog())

	r.Use(httpmw.MaxBody(maxRequestBody))

	// Register health routes at /-/healthy and /-/ready if probes provided
	if opts.Health != nil {
		r.Get("/-/healthy", health.HealthzHandler(opts.Health))
	}
	if opts.Readiness != nil {
		r.Get("/-/ready", health.ReadyzHandler(opts.Readiness))
	}

	if opts.Routes != nil {
		opts.Routes(r)
	}

	// Middleware (outermost first in wrapping order)
	var h http.Handler = r

	// Request-scoped logging (inner so it sees trace_id, etc)
	h = httpmw.WithLogger(opts.Logger)(h)

	// Metrics middleware for prometheus instrumentation
	if opts.MetricsMW != nil {
		h = opts.MetricsMW(h)
	}

	// build version on every response
	h = httpmw.VersionHeaders(opts.Version, opts.Commit)(h)

	// add trace-id headers to any requests with a recording trace
	h = httpmw.TraceResponseHeaders("X-Trace-Id", "X-Span-Id")(h)

	h = otelhttp.NewHandler(
		h,
		"http.server",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return shouldTrace(r.URL.Path)
		}),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			// AnnotateHTTPRoute will rename the span later to the final route pattern
			return r.Method + " " + r.URL.Path
		}),
		otelhttp.WithPublicEndpointFn(func(r *http.Request) bool { return true }),
	)

	// Rate limiting (after client IP mw so it uses resolved IP)
	if opts.RateLimitMW != nil {
		h = opts.RateLimitMW(h)
	}

	// Client IP resolution (must be before rate limiter and logging in middleware chain)
	h = httpmw.ClientIPWithOptions(opts.ClientIPOpts)(h)

	// Request ID (outer so everything downstream sees it)
	h = httpmw.RequestID("X-Request-Id")(h)

	// Recovery middleware to log panics and serve 500 response
	if opts.UseRecoverMW {
		h = httpmw.Recover(opts.Logger, opts.OnPanic)(h)
	}

	// Security headers outermost to ensure they are served on every response
	h = httpmw.SecurityHeaders(opts.Security)(h)

	return h
}

// shouldTrace skips health checks, crawler files and static assets.
func shouldTrace(p string) bool {
	switch p {
	case "/favicon.ico", "/robots.txt", "/sitemap.xml", "/-/healthy", "/-/ready":
		return false
	}
	if strings.HasPrefix(p, "/static/") {
		return false
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".css", ".js", ".png", ".jpg", ".jpeg", ".webp", ".svg", ".ico", ".woff", ".woff2", ".map":
		return false
	}
	return true
}

const DefaultPort = 8080

// Server timeout defaults, shared with opshttp.
const (
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultReadTimeout       = 10 * time.Second
	DefaultWriteTimeout      = 30 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultMaxHeaderBytes    = 1 << 20 // 1 MB
)

func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		MaxHeaderBytes:    DefaultMaxHeaderBytes,
	}
}

// Start public HTTP server
// Returns stop(ctx) for graceful shutdown
func Start(ctx context.Context, opts *Options) (func(context.Context) error, error) {
	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}
	addr := fmt.Sprintf(":%d", port)

	handler := NewHandler(opts)
	srv := NewServer(addr, handler)

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp4", addr)
	if err != nil {
		return nil, xerrors.EnsureTrace(err)
	}

	go func() {
		opts.Logger.Info(ctx, "http server listening", "addr", addr)
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			opts.Logger.Error(ctx, err, "http server error")
		}
	}()

	var once sync.Once
	stop := func(sctx context.Context) (retErr error) {
		once.Do(func() {
			opts.Logger.Info(sctx, "http server shutting down")
			c, cancel := context.WithTimeout(sctx, 5*time.Second)
			defer cancel()
			retErr = srv.Shutdown(c)
		})
		return retErr
	}
	return stop, nil
}
