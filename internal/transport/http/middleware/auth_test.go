package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"expenseflow/internal/domain/auth"
	apperrors "expenseflow/internal/errors"
	"expenseflow/internal/requestctx"
)

type resolverFunc func(ctx context.Context, userID string) (auth.Actor, error)

func (f resolverFunc) Actor(ctx context.Context, userID string) (auth.Actor, error) {
	return f(ctx, userID)
}

func bearer(t *testing.T, secret, userID string, role auth.Role) string {
	t.Helper()
	token, err := auth.GenerateToken(secret, auth.Claims{UserID: userID, Role: role}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestAuthMiddlewareSetsActor(t *testing.T) {
	secret := "test-secret"
	resolver := resolverFunc(func(_ context.Context, userID string) (auth.Actor, error) {
		return auth.Actor{UserID: userID, Role: auth.RoleManager, DepartmentID: "sales", Active: true}, nil
	})

	called := false
	handler := Auth(secret, resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		actor, ok := GetActor(r.Context())
		require.True(t, ok)
		assert.Equal(t, "u1", actor.UserID)
		assert.Equal(t, auth.RoleManager, actor.Role, "role comes from the roster, not the token")
		assert.Equal(t, "sales", actor.DepartmentID)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, secret, "u1", auth.RoleEmployee))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, called)
}

func TestAuthMiddlewareClaimsOnlyWithoutResolver(t *testing.T) {
	handler := Auth("secret", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetActor(r.Context())
		require.True(t, ok)
		assert.Equal(t, auth.RoleFinance, actor.Role)
		assert.True(t, actor.Active)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, "secret", "u2", auth.RoleFinance))
	handler.ServeHTTP(httptest.NewRecorder(), req)
}

func TestAuthMiddlewareMissingOrInvalidToken(t *testing.T) {
	handler := Auth("secret", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := GetActor(r.Context())
		assert.False(t, ok)
	}))

	for _, header := range []string{"", "Basic abc", "Bearer not-a-jwt", bearer(t, "other-secret", "u1", auth.RoleAdmin)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}

func TestAuthMiddlewareUnknownUserContinuesAnonymous(t *testing.T) {
	resolver := resolverFunc(func(context.Context, string) (auth.Actor, error) {
		return auth.Actor{}, apperrors.ErrNotFound
	})
	handler := Auth("secret", resolver)(RequireActor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, "secret", "ghost", auth.RoleAdmin))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRosterUnavailable(t *testing.T) {
	resolver := resolverFunc(func(context.Context, string) (auth.Actor, error) {
		return auth.Actor{}, apperrors.ErrUnavailable
	})
	handler := Auth("secret", resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, "secret", "u1", auth.RoleAdmin))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequirePermission(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	handler := RequirePermission(auth.PermViewAuditLogs)(ok)

	send := func(actor *auth.Actor) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if actor != nil {
			req = req.WithContext(requestctx.WithActor(req.Context(), *actor))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, send(nil))
	assert.Equal(t, http.StatusForbidden, send(&auth.Actor{UserID: "e", Role: auth.RoleEmployee, Active: true}))
	assert.Equal(t, http.StatusNoContent, send(&auth.Actor{UserID: "a", Role: auth.RoleAdmin, Active: true}))
	assert.Equal(t, http.StatusForbidden, send(&auth.Actor{UserID: "a", Role: auth.RoleAdmin, Active: false}))
}

func TestRequestIDPropagatesHeader(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
}

type statusCounter struct {
	statuses []int
}

func (s *statusCounter) Record(status int, _ time.Duration) {
	s.statuses = append(s.statuses, status)
}

func TestLoggerRecordsStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	metrics := &statusCounter{}
	handler := RequestID(Logger(zap.New(core), metrics)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/expenses", nil))

	assert.Equal(t, []int{http.StatusTeapot}, metrics.statuses)
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	assert.Equal(t, "/api/v1/expenses", fields["path"])
	assert.NotEmpty(t, fields["requestId"])
}

func TestBodyLimitRejectsDeclaredOversize(t *testing.T) {
	handler := BodyLimit(8)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"title":"too long"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	get := httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, get)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSecureHeaders(t *testing.T) {
	handler := SecureHeaders(true)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestRecovererWritesEnvelope(t *testing.T) {
	handler := RequestID(Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"internal"`)
}
