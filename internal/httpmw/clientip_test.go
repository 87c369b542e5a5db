package httpmw

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientAddr(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		xff     string
		hops    int
		want    string
		wantXFF bool
	}{
		{"public peer ignores xff", "203.0.113.1:1234", "10.0.0.1", 1, "203.0.113.1", false},
		{"private peer no hops", "10.0.0.1:1234", "203.0.113.50", 0, "10.0.0.1", false},
		{"one hop takes last", "10.0.0.1:1234", "198.51.100.7, 203.0.113.50", 1, "203.0.113.50", true},
		{"two hops takes second to last", "10.0.0.1:1234", "198.51.100.7, 203.0.113.50", 2, "198.51.100.7", true},
		{"too few entries", "10.0.0.1:1234", "203.0.113.50", 2, "10.0.0.1", false},
		{"garbage entry", "10.0.0.1:1234", "not-an-ip", 1, "10.0.0.1", true},
		{"no xff", "192.168.1.9:80", "", 1, "192.168.1.9", false},
		{"no port", "203.0.113.9", "", 0, "203.0.113.9", false},
		{"empty remote", "", "", 0, "0.0.0.0", false},
		{"unparseable host", "nohost:80", "", 0, "0.0.0.0", false},
		{"ipv6 peer", "[2001:db8::1]:443", "", 0, "2001:db8::1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
				r.Header.Set("X-Forwarded-Proto", "https")
			}
			if got := clientAddr(r, tt.hops); got != tt.want {
				t.Fatalf("clientAddr = %q, want %q", got, tt.want)
			}
			if has := r.Header.Get("X-Forwarded-For") != ""; has != tt.wantXFF {
				t.Fatalf("X-Forwarded-For kept = %v, want %v", has, tt.wantXFF)
			}
		})
	}
}

func TestClientIPMiddleware(t *testing.T) {
	var got string
	h := ClientIPWithOptions(ClientIPOptions{TrustedHops: 1})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClientIPFromContext(r.Context())
	}))
	r := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	r.RemoteAddr = "10.1.2.3:5555"
	r.Header.Set("X-Forwarded-For", "198.51.100.20")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if got != "198.51.100.20" {
		t.Fatalf("client ip = %q", got)
	}
}

func TestClientIP_IgnoresForwarded(t *testing.T) {
	var got string
	h := ClientIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClientIPFromContext(r.Context())
	}))
	r := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	r.RemoteAddr = "10.1.2.3:5555"
	r.Header.Set("X-Forwarded-For", "198.51.100.20")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if got != "10.1.2.3" {
		t.Fatalf("client ip = %q", got)
	}
}
