package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/beaconhillfe/bhfe-web/internal/health"
	"github.com/beaconhillfe/bhfe-web/internal/httpmw"
	"github.com/beaconhillfe/bhfe-web/internal/log"
)

// --- helpers

func doRequest(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, http.NoBody))
	return rec
}

func getFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp4", ":0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func routes(fns ...func(chi.Router)) func(chi.Router) {
	return func(r chi.Router) {
		for _, fn := range fns {
			fn(r)
		}
	}
}

func text(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}
}

// --- NewHandler: middleware stack

func TestNewHandler_HeadersOnEveryResponse(t *testing.T) {
	h := NewHandler(&Options{
		Security: httpmw.SecurityOptions{HSTS: true},
		Version:  "1.4.0",
		Commit:   "abc1234",
		Routes:   func(r chi.Router) { r.Get("/", text("home")) },
	})

	for _, tt := range []struct {
		method, path string
		status       int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/missing", http.StatusNotFound},
		{http.MethodPost, "/", http.StatusMethodNotAllowed},
	} {
		rec := doRequest(h, tt.method, tt.path)
		if rec.Code != tt.status {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, rec.Code, tt.status)
		}
		for _, hdr := range []string{
			"Strict-Transport-Security",
			"Content-Security-Policy",
			"X-Content-Type-Options",
			"X-Frame-Options",
			"X-Request-Id",
		} {
			if rec.Header().Get(hdr) == "" {
				t.Errorf("%s %s: missing %s", tt.method, tt.path, hdr)
			}
		}
		if rec.Header().Get("X-App-Version") != "1.4.0" || rec.Header().Get("X-App-Commit") != "abc1234" {
			t.Errorf("%s %s: version headers = %q/%q", tt.method, tt.path,
				rec.Header().Get("X-App-Version"), rec.Header().Get("X-App-Commit"))
		}
	}
}

func TestNewHandler_NoOptions(t *testing.T) {
	rec := doRequest(NewHandler(&Options{}), http.MethodGet, "/")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Fatal("security headers missing with no options set")
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS is opt-in")
	}
}

func TestNewHandler_RequestID(t *testing.T) {
	h := NewHandler(&Options{Routes: func(r chi.Router) {
		r.Get("/id", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(httpmw.RequestIDFromContext(r.Context())))
		})
	}})

	req := httptest.NewRequest(http.MethodGet, "/id", http.NoBody)
	req.Header.Set("X-Request-Id", "edge-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Body.String() != "edge-123" || rec.Header().Get("X-Request-Id") != "edge-123" {
		t.Fatalf("propagated id: body=%q header=%q", rec.Body.String(), rec.Header().Get("X-Request-Id"))
	}

	a := doRequest(h, http.MethodGet, "/id").Header().Get("X-Request-Id")
	b := doRequest(h, http.MethodGet, "/id").Header().Get("X-Request-Id")
	if a == "" || a == b {
		t.Fatalf("generated ids should be unique: %q %q", a, b)
	}
}

func TestNewHandler_ClientIPBeforeRateLimit(t *testing.T) {
	var seen string
	rl := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = httpmw.ClientIPFromContext(r.Context())
			if seen == "203.0.113.9" {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	h := NewHandler(&Options{
		RateLimitMW:  rl,
		ClientIPOpts: httpmw.ClientIPOptions{TrustedHops: 1},
		Routes:       func(r chi.Router) { r.Get("/", text("ok")) },
	})

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.RemoteAddr = "10.0.0.2:5000"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests || seen != "203.0.113.9" {
		t.Fatalf("status = %d, limiter saw %q", rec.Code, seen)
	}
}

func TestNewHandler_MetricsMW(t *testing.T) {
	calls := 0
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			next.ServeHTTP(w, r)
		})
	}
	h := NewHandler(&Options{MetricsMW: mw})
	doRequest(h, http.MethodGet, "/")
	if calls != 1 {
		t.Fatalf("metrics middleware calls = %d", calls)
	}
}

func TestNewHandler_Recover(t *testing.T) {
	boom := func(r chi.Router) {
		r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("template exploded") })
	}

	calls := 0
	h := NewHandler(&Options{UseRecoverMW: true, OnPanic: func() { calls++ }, Routes: boom})
	rec := doRequest(h, http.MethodGet, "/boom")
	if rec.Code != http.StatusInternalServerError || calls != 1 {
		t.Fatalf("status = %d, onPanic calls = %d", rec.Code, calls)
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Fatal("security headers must survive a panic")
	}

}

func TestNewHandler_HEADUsesGETRoute(t *testing.T) {
	h := NewHandler(&Options{Routes: func(r chi.Router) { r.Get("/", text("home")) }})
	rec := doRequest(h, http.MethodHead, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("HEAD status = %d", rec.Code)
	}
}

func TestNewHandler_MaxBody(t *testing.T) {
	var readErr error
	h := NewHandler(&Options{Routes: func(r chi.Router) {
		r.Post("/api/exit-preview", func(w http.ResponseWriter, r *http.Request) {
			buf := make([]byte, maxRequestBody*2)
			for readErr == nil {
				_, readErr = r.Body.Read(buf)
			}
		})
	}})
	req := httptest.NewRequest(http.MethodPost, "/api/exit-preview", strings.NewReader(strings.Repeat("x", maxRequestBody*2)))
	h.ServeHTTP(httptest.NewRecorder(), req)

	var tooLarge *http.MaxBytesError
	if !errors.As(readErr, &tooLarge) || tooLarge.Limit != maxRequestBody {
		t.Fatalf("read error = %v, want MaxBytesError", readErr)
	}
}

// --- NewHandler: compression

func TestNewHandler_Compression(t *testing.T) {
	big := strings.Repeat("<p>continuing education</p>", 200)
	h := NewHandler(&Options{Routes: func(r chi.Router) {
		r.Get("/page", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(big))
		})
	}})

	req := httptest.NewRequest(http.MethodGet, "/page", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", rec.Header().Get("Content-Encoding"))
	}

	rec = doRequest(h, http.MethodGet, "/page")
	if rec.Header().Get("Content-Encoding") != "" || rec.Body.String() != big {
		t.Fatal("should not compress without Accept-Encoding")
	}
}

// --- NewHandler: health routes

func TestNewHandler_HealthRoutes(t *testing.T) {
	tests := []struct {
		name   string
		opts   *Options
		path   string
		status int
	}{
		{"healthy", &Options{Health: health.Fixed(true, "")}, "/-/healthy", http.StatusOK},
		{"unhealthy", &Options{Health: health.Fixed(false, "draining")}, "/-/healthy", http.StatusServiceUnavailable},
		{"no health probe", &Options{}, "/-/healthy", http.StatusNotFound},
		{"ready", &Options{Readiness: health.Fixed(true, "")}, "/-/ready", http.StatusOK},
		{"not ready", &Options{Readiness: health.Fixed(false, "wordpress unreachable")}, "/-/ready", http.StatusServiceUnavailable},
		{"no readiness probe", &Options{}, "/-/ready", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := doRequest(NewHandler(tt.opts), http.MethodGet, tt.path); rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestNewHandler_HealthRoutesBeatCatchAll(t *testing.T) {
	h := NewHandler(&Options{
		Health: health.Fixed(true, ""),
		Routes: func(r chi.Router) { r.NotFound(text("site").ServeHTTP) },
	})
	if rec := doRequest(h, http.MethodGet, "/-/healthy"); !strings.Contains(rec.Body.String(), "ok") {
		t.Fatalf("body = %q", rec.Body.String())
	}
	if rec := doRequest(h, http.MethodGet, "/anything/"); rec.Body.String() != "site" {
		t.Fatalf("catch-all body = %q", rec.Body.String())
	}
}

func TestShouldTrace(t *testing.T) {
	tests := map[string]bool{
		"/":                 true,
		"/courses/":         true,
		"/preview/post/42":  true,
		"/-/healthy":        false,
		"/robots.txt":       false,
		"/static/site.css":  false,
		"/wp-content/a.png": false,
	}
	for p, want := range tests {
		if got := shouldTrace(p); got != want {
			t.Errorf("shouldTrace(%q) = %v, want %v", p, got, want)
		}
	}
}

// --- NewServer / Start

func TestNewServer_Configuration(t *testing.T) {
	h := http.NotFoundHandler()
	srv := NewServer(":9999", h)
	if srv.Addr != ":9999" || srv.Handler == nil {
		t.Fatalf("server = %+v", srv)
	}
	if srv.ReadHeaderTimeout != DefaultReadHeaderTimeout || srv.WriteTimeout != DefaultWriteTimeout ||
		srv.IdleTimeout != DefaultIdleTimeout || srv.MaxHeaderBytes != DefaultMaxHeaderBytes {
		t.Fatalf("timeouts not applied: %+v", srv)
	}
}

func TestStart_ServesAndStops(t *testing.T) {
	port := getFreePort(t)
	ctx := context.Background()
	stop, err := Start(ctx, &Options{
		Logger: log.Nop(),
		Port:   port,
		Routes: func(r chi.Router) { r.Get("/", text("live")) },
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	url := fmt.Sprintf("http://127.0.0.1:%d/", port)
	var resp *http.Response
	for i := 0; i < 20; i++ {
		if resp, err = http.Get(url); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatal("live server should set X-Request-Id")
	}

	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := stop(sctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := stop(sctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestStart_PortConflict(t *testing.T) {
	port := getFreePort(t)
	ctx := context.Background()
	stop, err := Start(ctx, &Options{Port: port})
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer stop(ctx)

	if _, err := Start(ctx, &Options{Port: port}); err == nil {
		t.Fatal("expected error for port conflict")
	}
}
