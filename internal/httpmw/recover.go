package httpmw

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/beaconhillfe/bhfe-web/internal/log"
	"github.com/beaconhillfe/bhfe-web/internal/xerrors"
)

// Recover turns a handler panic into a 500 and an error log. onPanic, if
// set, runs once per recovered panic (metrics). http.ErrAbortHandler is
// re-panicked so net/http can abort the connection quietly.
func Recover(logger log.Logger, onPanic func()) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				if onPanic != nil {
					onPanic()
				}

				var err error
				switch x := v.(type) {
				case error:
					err = xerrors.Wrap(x, "panic")
				default:
					err = xerrors.Newf("panic: %s", fmt.Sprint(x))
				}
				logger.With(
					"http.request.method", r.Method,
					"url.path", r.URL.Path,
					"request_id", RequestIDFromContext(r.Context()),
					"panic_stack", string(debug.Stack()),
				).Error(r.Context(), err, "httpserver panic recovered")

				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
