package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	apperrors "expenseflow/internal/errors"
)

type Error struct {
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     *Error `json:"error,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("write json failed", zap.Error(err))
	}
}

func Success(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Created(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Fail(w http.ResponseWriter, status int, code, message, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message}, RequestID: requestID})
}

func FailWithDetails(w http.ResponseWriter, status int, code, message string, metadata map[string]any, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message, Metadata: metadata}, RequestID: requestID})
}

// FailError writes err using its domain code. Errors outside the taxonomy are
// logged and reported as internal without leaking their text.
func FailError(w http.ResponseWriter, err error, requestID string) {
	code := apperrors.GetCode(err)
	status := code.HTTPStatus()
	if code == apperrors.CodeUnknown || code == apperrors.CodeInternal {
		zap.L().Error("request failed", zap.String("requestId", requestID), zap.Error(err))
		Fail(w, http.StatusInternalServerError, "internal", "internal error", requestID)
		return
	}
	if status >= http.StatusInternalServerError {
		zap.L().Warn("request failed", zap.String("requestId", requestID), zap.Error(err))
	}

	var metadata map[string]any
	if md := apperrors.GetMetadata(err); len(md) > 0 {
		metadata = make(map[string]any, len(md))
		for k, v := range md {
			metadata[k] = v
		}
	}
	FailWithDetails(w, status, strings.ToLower(string(code)), apperrors.Message(err, string(code)), metadata, requestID)
}
