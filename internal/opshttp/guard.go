package opshttp

import (
	"net"
	"net/http"

	"github.com/beaconhillfe/bhfe-web/internal/log"
)

// requireNonPublicNetwork rejects peers outside loopback, private and
// link-local ranges.
func requireNonPublicNetwork(L log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !nonPublicPeer(r.RemoteAddr) {
			L.Warn(r.Context(), "ops request from public address rejected",
				"client.address", r.RemoteAddr,
				"url.path", r.URL.Path,
			)
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func nonPublicPeer(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	// ::ffff:a.b.c.d is judged by its IPv4 form
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}
