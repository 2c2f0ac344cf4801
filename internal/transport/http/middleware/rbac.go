package middleware

import (
	"net/http"

	"expenseflow/internal/domain/auth"
	"expenseflow/internal/transport/http/api"
)

// RequirePermission gates a route on a role capability. Ownership and
// department checks stay in the services.
func RequirePermission(permission auth.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := GetActor(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthenticated", "authentication required", GetRequestID(r.Context()))
				return
			}
			if err := auth.Authorize(actor, permission); err != nil {
				api.FailError(w, err, GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
