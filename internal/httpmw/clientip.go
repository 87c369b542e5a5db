package httpmw

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type clientIPKey struct{}

type ClientIPOptions struct {
	// TrustedHops is the number of proxies in front of the server. 0 ignores
	// X-Forwarded-For, 1 takes its last entry (one load balancer), 2 the
	// second to last (CDN plus load balancer), and so on.
	TrustedHops int
}

// ClientIP stores the peer address in the context, ignoring forwarded
// headers.
func ClientIP(next http.Handler) http.Handler {
	return ClientIPWithOptions(ClientIPOptions{})(next)
}

func ClientIPWithOptions(opts ClientIPOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientAddr(r, opts.TrustedHops)
			next.ServeHTTP(w, r.WithContext(WithClientIP(r.Context(), ip)))
		})
	}
}

// clientAddr resolves the client ip. Forwarded headers are honored only
// when the peer is a private address and hops are configured; otherwise
// they are stripped so later handlers cannot trust them by accident.
func clientAddr(r *http.Request, hops int) string {
	if r.RemoteAddr == "" {
		return "0.0.0.0"
	}
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	ip := net.ParseIP(peer)
	if ip == nil {
		return "0.0.0.0"
	}

	if !ip.IsPrivate() || hops <= 0 {
		stripForwarded(r)
		return peer
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return peer
	}
	parts := strings.Split(xff, ",")
	idx := len(parts) - hops
	if idx < 0 {
		// fewer entries than proxies: misconfigured or forged
		stripForwarded(r)
		return peer
	}
	if cand := strings.TrimSpace(parts[idx]); net.ParseIP(cand) != nil {
		return cand
	}
	return peer
}

func stripForwarded(r *http.Request) {
	r.Header.Del("X-Forwarded-For")
	r.Header.Del("X-Forwarded-Proto")
}

func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey{}, ip)
}
