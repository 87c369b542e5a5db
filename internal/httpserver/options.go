package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/beaconhillfe/bhfe-web/internal/health"
	"github.com/beaconhillfe/bhfe-web/internal/httpmw"
	"github.com/beaconhillfe/bhfe-web/internal/log"
)

type Options struct {
	Logger       log.Logger
	Port         int
	UseRecoverMW bool
	OnPanic      func()
	MetricsMW    func(http.Handler) http.Handler
	RateLimitMW  func(http.Handler) http.Handler
	ClientIPOpts httpmw.ClientIPOptions
	Security     httpmw.SecurityOptions
	Health       health.Probe
	Readiness    health.Probe

	// Version and Commit are echoed as X-App-Version and X-App-Commit.
	Version string
	Commit  string

	// Routes registers the public site on the router. Anything it leaves
	// unmatched gets chi's default 404.
	Routes func(r chi.Router)
}
