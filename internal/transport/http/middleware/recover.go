package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"expenseflow/internal/transport/http/api"
)

// Recoverer turns a handler panic into a 500 envelope and logs the value.
// http.ErrAbortHandler is re-raised so the server can drop the connection.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			zap.L().Error("handler panic",
				zap.Any("panic", rec),
				zap.String("path", r.URL.Path),
				zap.String("requestId", GetRequestID(r.Context())),
				zap.Stack("stack"),
			)
			api.Fail(w, http.StatusInternalServerError, "internal", "internal error", GetRequestID(r.Context()))
		}()
		next.ServeHTTP(w, r)
	})
}
