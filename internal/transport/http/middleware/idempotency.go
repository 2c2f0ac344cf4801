package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"expenseflow/internal/platform/querier"
	"expenseflow/internal/transport/http/api"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	maxIdempotencyKey = 200
)

var ErrIdempotencyConflict = errors.New("idempotency key conflicts with existing request")

// StoredResponse is a replayable response captured for an idempotency key.
type StoredResponse struct {
	Status int
	Body   json.RawMessage
}

type IdempotencyBackend interface {
	Check(ctx context.Context, userID, endpoint, key, requestHash string) (StoredResponse, bool, error)
	Save(ctx context.Context, userID, endpoint, key, requestHash string, resp StoredResponse) error
}

// IdempotencyStore keeps responses in the idempotency_keys table.
type IdempotencyStore struct {
	db querier.Querier
}

func NewIdempotencyStore(db querier.Querier) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func (s *IdempotencyStore) Check(ctx context.Context, userID, endpoint, key, requestHash string) (StoredResponse, bool, error) {
	if s == nil || s.db == nil {
		return StoredResponse{}, false, nil
	}
	var storedHash string
	var stored StoredResponse
	err := s.db.QueryRow(ctx, `
    SELECT request_hash, status_code, response_json
    FROM idempotency_keys
    WHERE user_id = $1 AND key = $2 AND endpoint = $3
  `, userID, key, endpoint).Scan(&storedHash, &stored.Status, &stored.Body)
	if errors.Is(err, pgx.ErrNoRows) {
		return StoredResponse{}, false, nil
	}
	if err != nil {
		return StoredResponse{}, false, querier.MapError("check idempotency key", err, nil, nil)
	}
	if storedHash != requestHash {
		return StoredResponse{}, false, ErrIdempotencyConflict
	}
	return stored, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, userID, endpoint, key, requestHash string, resp StoredResponse) error {
	if s == nil || s.db == nil {
		return nil
	}
	tag, err := s.db.Exec(ctx, `
    INSERT INTO idempotency_keys (user_id, key, endpoint, request_hash, status_code, response_json)
    VALUES ($1, $2, $3, $4, $5, $6)
    ON CONFLICT (user_id, key, endpoint)
    DO UPDATE SET response_json = EXCLUDED.response_json, status_code = EXCLUDED.status_code
    WHERE idempotency_keys.request_hash = EXCLUDED.request_hash
  `, userID, key, endpoint, requestHash, resp.Status, resp.Body)
	if err != nil {
		return querier.MapError("save idempotency key", err, nil, nil)
	}
	if tag.RowsAffected() == 0 {
		return ErrIdempotencyConflict
	}
	return nil
}

type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(p []byte) (int, error) {
	c.body.Write(p)
	return c.ResponseWriter.Write(p)
}

// Idempotent replays the first successful response for a repeated
// Idempotency-Key from the same actor. A reused key with a different body is
// refused with 409.
func Idempotent(backend IdempotencyBackend) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			actor, ok := GetActor(r.Context())
			if key == "" || !ok || backend == nil {
				next.ServeHTTP(w, r)
				return
			}
			reqID := GetRequestID(r.Context())
			if len(key) > maxIdempotencyKey {
				api.Fail(w, http.StatusBadRequest, "invalid_idempotency_key", "idempotency key too long", reqID)
				return
			}

			raw, err := io.ReadAll(r.Body)
			if err != nil {
				api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(raw))

			endpoint := r.Method + " " + r.URL.Path
			hash := RequestHash(raw)
			stored, hit, err := backend.Check(r.Context(), actor.UserID, endpoint, key, hash)
			if errors.Is(err, ErrIdempotencyConflict) {
				api.Fail(w, http.StatusConflict, "idempotency_conflict", err.Error(), reqID)
				return
			}
			if err != nil {
				api.FailError(w, err, reqID)
				return
			}
			if hit {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(stored.Status)
				_, _ = w.Write(stored.Body)
				return
			}

			capture := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(capture, r)
			if capture.status < 200 || capture.status >= 300 {
				return
			}
			resp := StoredResponse{Status: capture.status, Body: bytes.TrimSpace(capture.body.Bytes())}
			if err := backend.Save(r.Context(), actor.UserID, endpoint, key, hash, resp); err != nil {
				zap.L().Warn("idempotency save failed", zap.String("requestId", reqID), zap.Error(err))
			}
		})
	}
}
