package httpmw

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type requestIDKey struct{}

const maxRequestIDLen = 128

func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id, or "" if none.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID propagates a well-formed incoming id from header (default
// X-Request-Id) or assigns a UUID, and echoes it on the response.
func RequestID(header string) func(http.Handler) http.Handler {
	if header == "" {
		header = "X-Request-Id"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(header)
			if !validRequestID(id) {
				id = uuid.NewString()
			}
			w.Header().Set(header, id)
			next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
		})
	}
}

// validRequestID accepts short printable ascii ids only, so a client
// cannot smuggle control characters into logs.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if c := id[i]; c < 0x21 || c > 0x7e {
			return false
		}
	}
	return true
}
