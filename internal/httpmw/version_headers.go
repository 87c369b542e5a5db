package httpmw

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// VersionHeaders stamps X-App-Version and X-App-Commit on every response
// and the current span. Empty values are skipped.
func VersionHeaders(ver, commit string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ver != "" {
				w.Header().Set("X-App-Version", ver)
			}
			if commit != "" {
				w.Header().Set("X-App-Commit", commit)
			}
			if span := trace.SpanFromContext(r.Context()); span.IsRecording() {
				span.SetAttributes(
					attribute.String("service.version", ver),
					attribute.String("vcs.commit", commit),
				)
			}
			next.ServeHTTP(w, r)
		})
	}
}
