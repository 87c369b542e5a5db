// Package metrics owns the Prometheus registry served on the admin port and
// implements the metric interfaces declared by the render, template, cache
// and WordPress packages.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/beaconhillfe/bhfe-web/internal/version"
)

type ServerMetrics struct {
	reg     *prometheus.Registry
	handler http.Handler

	inflight    prometheus.Gauge
	reqTotal    *prometheus.CounterVec
	reqDur      *prometheus.HistogramVec
	respBytes   *prometheus.HistogramVec
	errorsTotal *prometheus.CounterVec
	panicTotal  prometheus.Counter

	buildInfo       *prometheus.GaugeVec
	profilingActive prometheus.Gauge

	ratelimitDenied   prometheus.Counter
	ratelimitCapacity prometheus.Counter

	wpQueryDur    *prometheus.HistogramVec
	wpQueryErrors *prometheus.CounterVec
	wpLastSuccess prometheus.Gauge

	blockFallbacks   *prometheus.CounterVec
	templateResolves *prometheus.CounterVec
	renderDur        *prometheus.HistogramVec

	cacheLookups   *prometheus.CounterVec
	cacheEntries   prometheus.Gauge
	cacheRefreshes *prometheus.CounterVec
	cacheEvictions prometheus.Counter

	previewTotal *prometheus.CounterVec
}

// New returns a fresh registry with the Go and process collectors plus the
// application metrics. HTTP labels are method, route pattern and status only.
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Response size by method and route",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}, []string{"method", "route"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total 5xx responses by method and route",
		}, []string{"method", "route"}),
		panicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total number of recovered handler panics",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "component", "version", "commit", "commit_date", "build_id", "build_date", "vcs_dirty", "go_version"}),
		profilingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiling_active",
			Help: "Whether continuous profiling is active (1) or disabled/failed (0)",
		}),
		ratelimitDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Total requests rejected by the rate limiter",
		}),
		ratelimitCapacity: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_capacity_total",
			Help: "Total number of times the rate limiter client table was full",
		}),
		wpQueryDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wordpress_query_duration_seconds",
			Help:    "WordPress GraphQL round trip latency by operation",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"op"}),
		wpQueryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wordpress_query_errors_total",
			Help: "Failed WordPress GraphQL queries by operation",
		}, []string{"op"}),
		wpLastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wordpress_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful WordPress query",
		}),
		blockFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blocks_fallback_total",
			Help: "Blocks without a renderer, by the html they fell back to (rendered, original, empty)",
		}, []string{"kind"}),
		templateResolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "template_resolutions_total",
			Help: "Template resolutions by content type and template",
		}, []string{"content_type", "template"}),
		renderDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "page_render_duration_seconds",
			Help:    "Template execution time by template",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}, []string{"template"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pagecache_lookups_total",
			Help: "Page cache lookups by result (hit, stale, miss, error)",
		}, []string{"result"}),
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pagecache_entries",
			Help: "Pages currently held in the cache",
		}),
		cacheRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pagecache_refreshes_total",
			Help: "Background revalidations by outcome (ok, error)",
		}, []string{"outcome"}),
		cacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pagecache_evictions_total",
			Help: "Entries evicted to stay within the size bound",
		}),
		previewTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "preview_requests_total",
			Help: "Preview handshakes and renders by result",
		}, []string{"result"}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.respBytes,
		m.errorsTotal,
		m.panicTotal,
		m.buildInfo,
		m.profilingActive,
		m.ratelimitDenied,
		m.ratelimitCapacity,
		m.wpQueryDur,
		m.wpQueryErrors,
		m.wpLastSuccess,
		m.blockFallbacks,
		m.templateResolves,
		m.renderDur,
		m.cacheLookups,
		m.cacheEntries,
		m.cacheRefreshes,
		m.cacheEvictions,
		m.previewTotal,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	m.reg = reg
	return m
}

func (m *ServerMetrics) Handler() http.Handler {
	return m.handler
}

// set once at startup.
func (m *ServerMetrics) SetBuildInfoFromVersion(app, component string, vi version.Info) {
	dirty := "unknown"
	if vi.VCSDirty != nil {
		dirty = strconv.FormatBool(*vi.VCSDirty)
	}
	m.buildInfo.With(prometheus.Labels{
		"app":         app,
		"component":   component,
		"version":     vi.Version,
		"commit":      vi.Commit,
		"commit_date": vi.CommitDate,
		"build_id":    vi.BuildID,
		"build_date":  vi.BuildDate,
		"go_version":  vi.GoVersion,
		"vcs_dirty":   dirty,
	}).Set(1)
}

func (m *ServerMetrics) SetProfilingActive(active bool) {
	if active {
		m.profilingActive.Set(1)
	} else {
		m.profilingActive.Set(0)
	}
}

func (m *ServerMetrics) IncHTTPPanic() {
	m.panicTotal.Inc()
}

func (m *ServerMetrics) IncRateLimitDenied() {
	m.ratelimitDenied.Inc()
}

func (m *ServerMetrics) IncRateLimitCapacity() {
	m.ratelimitCapacity.Inc()
}

// ObserveQuery implements wp.Metrics.
func (m *ServerMetrics) ObserveQuery(op string, d time.Duration, err error) {
	m.wpQueryDur.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		m.wpQueryErrors.WithLabelValues(op).Inc()
		return
	}
	m.wpLastSuccess.Set(float64(time.Now().Unix()))
}

// IncBlockFallback implements blocks.Metrics.
func (m *ServerMetrics) IncBlockFallback(kind string) {
	m.blockFallbacks.WithLabelValues(kind).Inc()
}

// IncTemplateResolved implements templates.ResolveMetrics.
func (m *ServerMetrics) IncTemplateResolved(contentType, template string) {
	m.templateResolves.WithLabelValues(contentType, template).Inc()
}

func (m *ServerMetrics) ObserveRender(template string, d time.Duration) {
	m.renderDur.WithLabelValues(template).Observe(d.Seconds())
}

// IncCacheLookup, SetCacheEntries, IncCacheRefresh and IncCacheEviction
// implement pagecache.Metrics.
func (m *ServerMetrics) IncCacheLookup(result string) {
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *ServerMetrics) SetCacheEntries(n int) {
	m.cacheEntries.Set(float64(n))
}

func (m *ServerMetrics) IncCacheRefresh(ok bool) {
	if ok {
		m.cacheRefreshes.WithLabelValues("ok").Inc()
	} else {
		m.cacheRefreshes.WithLabelValues("error").Inc()
	}
}

func (m *ServerMetrics) IncCacheEviction() {
	m.cacheEvictions.Inc()
}

func (m *ServerMetrics) IncPreview(result string) {
	m.previewTotal.WithLabelValues(result).Inc()
}
