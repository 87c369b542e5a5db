package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/beaconhillfe/bhfe-web/internal/version"
)

// gatherMetric returns the family named name, or nil when it has no samples.
func gatherMetric(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func labelsOf(m *dto.Metric) map[string]string {
	out := make(map[string]string)
	for _, lp := range m.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}

// counterWith returns the counter value of the series matching want.
func counterWith(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	f := gatherMetric(t, reg, name)
	if f == nil {
		return 0
	}
next:
	for _, m := range f.GetMetric() {
		got := labelsOf(m)
		for k, v := range want {
			if got[k] != v {
				continue next
			}
		}
		return m.GetCounter().GetValue()
	}
	return 0
}

// --- New / Handler

func TestNew_ScrapeContainsCoreMetrics(t *testing.T) {
	m := New()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{
		"http_inflight_requests",
		"http_panic_total",
		"http_requests_rate_limited_total",
		"profiling_active",
		"pagecache_entries",
		"pagecache_evictions_total",
		"wordpress_last_success_timestamp_seconds",
		"go_goroutines",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metric %q not found in scrape", name)
		}
	}
}

func TestNew_IsolatedRegistries(t *testing.T) {
	a, b := New(), New()
	a.IncHTTPPanic()
	if v := gatherMetric(t, b.reg, "http_panic_total").GetMetric()[0].GetCounter().GetValue(); v != 0 {
		t.Fatalf("second registry saw %v panics", v)
	}
}

// --- build info / profiling

func TestSetBuildInfoFromVersion(t *testing.T) {
	m := New()
	dirty := true
	m.SetBuildInfoFromVersion("bhfe-web", "server", version.Info{
		Version:   "1.2.3",
		Commit:    "abc123",
		BuildID:   "build-42",
		GoVersion: "go1.24.0",
		VCSDirty:  &dirty,
	})

	f := gatherMetric(t, m.reg, "build_info")
	if f == nil || len(f.GetMetric()) != 1 {
		t.Fatal("build_info should have one series")
	}
	labels := labelsOf(f.GetMetric()[0])
	for k, want := range map[string]string{
		"app":       "bhfe-web",
		"component": "server",
		"version":   "1.2.3",
		"build_id":  "build-42",
		"vcs_dirty": "true",
	} {
		if labels[k] != want {
			t.Errorf("label %s = %q, want %q", k, labels[k], want)
		}
	}
}

func TestSetBuildInfoFromVersion_NilVCSDirty(t *testing.T) {
	m := New()
	m.SetBuildInfoFromVersion("bhfe-web", "server", version.Info{})
	labels := labelsOf(gatherMetric(t, m.reg, "build_info").GetMetric()[0])
	if labels["vcs_dirty"] != "unknown" {
		t.Fatalf("vcs_dirty = %q, want unknown", labels["vcs_dirty"])
	}
}

func TestSetProfilingActive(t *testing.T) {
	m := New()
	m.SetProfilingActive(true)
	if v := gatherMetric(t, m.reg, "profiling_active").GetMetric()[0].GetGauge().GetValue(); v != 1 {
		t.Fatalf("profiling_active = %v, want 1", v)
	}
	m.SetProfilingActive(false)
	if v := gatherMetric(t, m.reg, "profiling_active").GetMetric()[0].GetGauge().GetValue(); v != 0 {
		t.Fatalf("profiling_active = %v, want 0", v)
	}
}

// --- domain metrics

func TestObserveQuery(t *testing.T) {
	m := New()
	m.ObserveQuery("content_by_uri", 120*time.Millisecond, nil)
	m.ObserveQuery("content_by_uri", 2*time.Second, errors.New("timeout"))

	f := gatherMetric(t, m.reg, "wordpress_query_duration_seconds")
	if f == nil || f.GetMetric()[0].GetHistogram().GetSampleCount() != 2 {
		t.Fatal("expected two duration samples")
	}
	if v := counterWith(t, m.reg, "wordpress_query_errors_total", map[string]string{"op": "content_by_uri"}); v != 1 {
		t.Fatalf("errors = %v, want 1", v)
	}
	if v := gatherMetric(t, m.reg, "wordpress_last_success_timestamp_seconds").GetMetric()[0].GetGauge().GetValue(); v == 0 {
		t.Fatal("last success timestamp should be set")
	}
}

func TestRenderAndResolveCounters(t *testing.T) {
	m := New()
	m.IncBlockFallback("rendered")
	m.IncBlockFallback("rendered")
	m.IncBlockFallback("empty")
	m.IncTemplateResolved("Page", "landing")
	m.ObserveRender("landing", 3*time.Millisecond)

	if v := counterWith(t, m.reg, "blocks_fallback_total", map[string]string{"kind": "rendered"}); v != 2 {
		t.Fatalf("rendered fallbacks = %v", v)
	}
	if v := counterWith(t, m.reg, "template_resolutions_total", map[string]string{"content_type": "Page", "template": "landing"}); v != 1 {
		t.Fatalf("resolutions = %v", v)
	}
	if gatherMetric(t, m.reg, "page_render_duration_seconds") == nil {
		t.Fatal("render histogram missing")
	}
}

func TestCacheMetrics(t *testing.T) {
	m := New()
	m.IncCacheLookup("hit")
	m.IncCacheLookup("stale")
	m.IncCacheRefresh(true)
	m.IncCacheRefresh(false)
	m.IncCacheEviction()
	m.SetCacheEntries(7)

	if v := counterWith(t, m.reg, "pagecache_lookups_total", map[string]string{"result": "stale"}); v != 1 {
		t.Fatalf("stale lookups = %v", v)
	}
	if v := counterWith(t, m.reg, "pagecache_refreshes_total", map[string]string{"outcome": "error"}); v != 1 {
		t.Fatalf("refresh errors = %v", v)
	}
	if v := gatherMetric(t, m.reg, "pagecache_entries").GetMetric()[0].GetGauge().GetValue(); v != 7 {
		t.Fatalf("entries = %v", v)
	}
}

func TestIncPreviewAndRateLimit(t *testing.T) {
	m := New()
	m.IncPreview("enabled")
	m.IncRateLimitDenied()
	m.IncRateLimitCapacity()
	if v := counterWith(t, m.reg, "preview_requests_total", map[string]string{"result": "enabled"}); v != 1 {
		t.Fatalf("preview = %v", v)
	}
	if v := counterWith(t, m.reg, "http_requests_rate_limited_total", nil); v != 1 {
		t.Fatalf("denied = %v", v)
	}
}
