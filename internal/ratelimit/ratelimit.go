package ratelimit

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/beaconhillfe/bhfe-web/internal/httpmw"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	// logged is reset when the entry is evicted and re-created
	logged bool
}

// IPLimiter holds one token bucket per client ip.
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	full     bool

	perSecond   rate.Limit
	burst       int
	ttl         time.Duration
	maxVisitors int
	exempt      []string

	onFirstDenied func(ip string)
	onDenied      func(ip string)
	onCapacity    func()
}

type Option func(*IPLimiter)

// WithRate sets the refill rate and the bucket size. WithRate(10, 50) allows
// 50 requests at once, then 10 per second.
func WithRate(perSecond float64, burst int) Option {
	return func(l *IPLimiter) {
		l.perSecond = rate.Limit(perSecond)
		l.burst = burst
	}
}

// WithTTL controls how long an idle client stays tracked.
func WithTTL(d time.Duration) Option {
	return func(l *IPLimiter) { l.ttl = d }
}

// WithMaxVisitors bounds the client table. New clients are rejected while it
// is full; 0 disables the bound.
func WithMaxVisitors(n int) Option {
	return func(l *IPLimiter) { l.maxVisitors = n }
}

// WithExempt skips limiting for request paths with any of the prefixes.
func WithExempt(prefixes ...string) Option {
	return func(l *IPLimiter) { l.exempt = append(l.exempt, prefixes...) }
}

// WithOnFirstDenied is called once per tracked client, for logging.
func WithOnFirstDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) { l.onFirstDenied = fn }
}

// WithOnDenied is called on every denial, for counting.
func WithOnDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) { l.onDenied = fn }
}

// WithOnCapacity is called when the client table first fills up, and again
// each time it fills after having drained.
func WithOnCapacity(fn func()) Option {
	return func(l *IPLimiter) { l.onCapacity = fn }
}

// New creates an IPLimiter whose cleanup goroutine runs until ctx is done.
func New(ctx context.Context, opts ...Option) *IPLimiter {
	l := &IPLimiter{
		visitors:    make(map[string]*visitor),
		perSecond:   10,
		burst:       30,
		ttl:         5 * time.Minute,
		maxVisitors: 10000,
	}
	for _, o := range opts {
		o(l)
	}
	go l.cleanup(ctx)
	return l
}

// allow reports whether ip may proceed. Hooks run after the lock is
// released.
func (l *IPLimiter) allow(ip string) bool {
	l.mu.Lock()
	v, ok := l.visitors[ip]
	if !ok {
		if l.maxVisitors > 0 && len(l.visitors) >= l.maxVisitors {
			first := !l.full
			l.full = true
			l.mu.Unlock()
			if first && l.onCapacity != nil {
				l.onCapacity()
			}
			if l.onDenied != nil {
				l.onDenied(ip)
			}
			return false
		}
		v = &visitor{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	allowed := v.limiter.Allow()
	first := !allowed && !v.logged
	if first {
		v.logged = true
	}
	l.mu.Unlock()

	if first && l.onFirstDenied != nil {
		l.onFirstDenied(ip)
	}
	if !allowed && l.onDenied != nil {
		l.onDenied(ip)
	}
	return allowed
}

func (l *IPLimiter) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// cleanup evicts clients idle for longer than the ttl, every ttl/2.
func (l *IPLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for ip, v := range l.visitors {
				if now.Sub(v.lastSeen) > l.ttl {
					delete(l.visitors, ip)
				}
			}
			if l.maxVisitors == 0 || len(l.visitors) < l.maxVisitors {
				l.full = false
			}
			l.mu.Unlock()
		}
	}
}

func (l *IPLimiter) isExempt(path string) bool {
	for _, p := range l.exempt {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Middleware rejects requests over the per-client limit with 429. API
// routes get a JSON body, pages a short plain text one.
func (l *IPLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.isExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		if !l.allow(httpmw.ClientIPFromContext(r.Context())) {
			w.Header().Set("Retry-After", "30")
			w.Header().Set("Cache-Control", "no-store")
			if strings.HasPrefix(r.URL.Path, "/api/") {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"too many requests"}`))
				return
			}
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("Too many requests. Please slow down and try again shortly.\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
