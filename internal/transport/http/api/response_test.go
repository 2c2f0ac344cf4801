package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "expenseflow/internal/errors"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, map[string]string{"status": "ok"}, "req-1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	env := decode(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "req-1", env.RequestID)
	assert.Nil(t, env.Error)
}

func TestFailErrorMapsDomainCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"forbidden", apperrors.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"self approval", apperrors.ErrSelfApprovalForbidden, http.StatusForbidden, "self_approval_forbidden"},
		{"not found", apperrors.ErrNotFound, http.StatusNotFound, "not_found"},
		{"conflict", apperrors.ErrConflict, http.StatusConflict, "conflict"},
		{"validation", apperrors.ErrValidationFailed, http.StatusBadRequest, "validation_failed"},
		{"unauthenticated", apperrors.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{"unavailable", apperrors.ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			FailError(rec, tc.err, "req-2")

			assert.Equal(t, tc.status, rec.Code)
			env := decode(t, rec)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}
}

func TestFailErrorCarriesMetadata(t *testing.T) {
	rec := httptest.NewRecorder()
	FailError(rec, apperrors.New(apperrors.CodeForbidden, "missing permission").With("permission", "EXPORT_DATA"), "")

	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "missing permission", env.Error.Message)
	assert.Equal(t, "EXPORT_DATA", env.Error.Metadata["permission"])
}

func TestFailErrorHidesUnknownErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	FailError(rec, errors.New("pq: password authentication failed"), "req-3")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "internal", env.Error.Code)
	assert.Equal(t, "internal error", env.Error.Message)
}
