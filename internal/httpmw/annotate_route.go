package httpmw

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// routePattern returns the matched chi pattern, or the raw path when
// nothing matched.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// AnnotateHTTPRoute renames the server span to "METHOD pattern" once the
// router has matched, keeping span names low cardinality.
func AnnotateHTTPRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		span := trace.SpanFromContext(r.Context())
		if !span.IsRecording() {
			return
		}
		route := routePattern(r)
		span.SetAttributes(attribute.String("http.route", route))
		span.SetName(r.Method + " " + route)
	})
}
