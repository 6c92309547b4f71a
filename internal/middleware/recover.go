package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	pkghttp "github.com/BradenHooton/fintrack/pkg/http"
	"github.com/getsentry/sentry-go"
)

// Recoverer turns a handler panic into a generic 500. The panic and stack go
// to the log and to Sentry when a client is configured; never to the caller.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				stack := string(debug.Stack())
				hub := sentry.CurrentHub().Clone()
				hub.WithScope(func(scope *sentry.Scope) {
					scope.SetRequest(r)
					scope.SetTag("path", r.URL.Path)
					scope.SetExtra("stack", stack)
					hub.CaptureMessage(fmt.Sprintf("panic in request: %v", rec))
				})

				logger.Error("panic recovered",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec),
					slog.String("stack", stack),
				)

				pkghttp.WriteInternalError(w, "An internal error occurred")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
