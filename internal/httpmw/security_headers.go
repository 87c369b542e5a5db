package httpmw

import (
	"net/http"
	"strings"
)

// SecurityOptions widens the content security policy for origins that
// WordPress content legitimately loads from.
type SecurityOptions struct {
	// ImageOrigins are allowed in img-src, e.g. the WordPress media host.
	ImageOrigins []string
	// FrameOrigins are allowed in frame-src for embeds and maps.
	FrameOrigins []string
	// HSTS enables Strict-Transport-Security. Off for plain http staging.
	HSTS bool
}

// DefaultFrameOrigins cover the embed providers the block renderer emits.
var DefaultFrameOrigins = []string{
	"https://www.youtube.com",
	"https://www.youtube-nocookie.com",
	"https://player.vimeo.com",
	"https://www.google.com",
}

// ContentSecurityPolicy builds the policy string for opts. Inline styles
// are allowed because rendered blocks carry style attributes.
func ContentSecurityPolicy(opts SecurityOptions) string {
	img := append([]string{"'self'", "data:"}, opts.ImageOrigins...)
	frame := opts.FrameOrigins
	if frame == nil {
		frame = DefaultFrameOrigins
	}
	directives := []string{
		"default-src 'self'",
		"script-src 'self'",
		"style-src 'self' 'unsafe-inline'",
		"img-src " + strings.Join(img, " "),
		"font-src 'self'",
		"base-uri 'self'",
		"form-action 'self'",
		"frame-ancestors 'none'",
		"object-src 'none'",
	}
	if len(frame) > 0 {
		directives = append(directives, "frame-src "+strings.Join(frame, " "))
	}
	return strings.Join(directives, "; ")
}

// SecurityHeaders sets the static security headers on every response.
// Preview cookies are SameSite=Lax and only read on GET, so there is no
// CSRF token.
func SecurityHeaders(opts SecurityOptions) func(http.Handler) http.Handler {
	csp := ContentSecurityPolicy(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if opts.HSTS {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			h.Set("Content-Security-Policy", csp)
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), geolocation=(), microphone=(), payment=(), usb=()")
			h.Set("Cross-Origin-Opener-Policy", "same-origin")
			next.ServeHTTP(w, r)
		})
	}
}
