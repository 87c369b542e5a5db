package opshttp

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/beaconhillfe/bhfe-web/internal/health"
	"github.com/beaconhillfe/bhfe-web/internal/httpmw"
	"github.com/beaconhillfe/bhfe-web/internal/httpserver"
	"github.com/beaconhillfe/bhfe-web/internal/log"
	"github.com/beaconhillfe/bhfe-web/internal/xerrors"
)

const DefaultPort = 9000

// NewHandler builds the admin mux: /healthz, /readyz, /metrics and, when
// enabled, /debug/pprof/. Only non-public peers are served.
func NewHandler(L log.Logger, opts *Options) http.Handler {
	if L == nil {
		L = log.Nop()
	}
	mux := http.NewServeMux()
	mux.Handle("/healthz", health.HealthzHandler(opts.Health))
	mux.Handle("/readyz", health.ReadyzHandler(opts.Readiness))

	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics)
	}

	// pprof (or shadow with 404s)
	if opts.EnablePprof {
		RegisterPprof(mux)
	} else {
		mux.HandleFunc("/debug/pprof/", http.NotFound)
	}

	return httpmw.Recover(L, opts.OnPanic)(requireNonPublicNetwork(L, mux))
}

// Start runs the admin server and returns stop(ctx) for graceful shutdown.
func Start(ctx context.Context, L log.Logger, opts *Options) (func(context.Context) error, error) {
	if L == nil {
		L = log.Nop()
	}
	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}
	addr := fmt.Sprintf(":%d", port)
	srv := httpserver.NewServer(addr, NewHandler(L, opts))

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, xerrors.Wrapf(err, "listen for admin port on addr=%v", addr)
	}

	go func() {
		L.Info(ctx, "ops http server listening", "addr", addr)
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			L.Error(ctx, err, "ops http server error")
		}
	}()

	var once sync.Once
	stop := func(sctx context.Context) (retErr error) {
		once.Do(func() {
			L.Info(sctx, "ops http server shutting down")
			c, cancel := context.WithTimeout(sctx, 5*time.Second)
			defer cancel()
			retErr = srv.Shutdown(c)
		})
		return retErr
	}
	return stop, nil
}
