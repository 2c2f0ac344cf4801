package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"expenseflow/internal/domain/auth"
	apperrors "expenseflow/internal/errors"
	"expenseflow/internal/requestctx"
	"expenseflow/internal/transport/http/api"
)

// ActorResolver loads the current actor context for a token subject.
type ActorResolver interface {
	Actor(ctx context.Context, userID string) (auth.Actor, error)
}

// Auth validates the bearer token and stores the resolved actor in the
// request context. Requests without a usable token continue anonymously and
// are rejected by the handlers that need an actor. With a nil resolver the
// actor is built from the token claims alone.
func Auth(secret string, resolver ActorResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, parts[1])
			if err != nil {
				zap.L().Debug("token rejected", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			actor := auth.Actor{UserID: claims.UserID, Role: claims.Role, Active: true}
			if resolver != nil {
				actor, err = resolver.Actor(r.Context(), claims.UserID)
				if apperrors.IsCode(err, apperrors.CodeUnavailable) {
					api.FailError(w, err, GetRequestID(r.Context()))
					return
				}
				if err != nil {
					zap.L().Debug("actor lookup failed", zap.String("userId", claims.UserID), zap.Error(err))
					next.ServeHTTP(w, r)
					return
				}
			}

			ctx := requestctx.WithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetActor(ctx context.Context) (auth.Actor, bool) {
	return requestctx.Actor(ctx)
}

// RequireActor rejects anonymous requests with 401.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetActor(r.Context()); !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthenticated", "authentication required", GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}
