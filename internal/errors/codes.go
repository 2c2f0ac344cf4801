// Package errors provides the coded error taxonomy shared by the authorization
// layer, the approval workflow and the HTTP transport.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an error that did not originate in this module.
	CodeUnknown Code = "UNKNOWN"

	// CodeUnauthenticated means no usable actor context was supplied.
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	// CodeForbidden means the authorization evaluator denied the action.
	CodeForbidden Code = "FORBIDDEN"
	// CodeSelfApprovalForbidden means the actor tried to decide a claim they own.
	CodeSelfApprovalForbidden Code = "SELF_APPROVAL_FORBIDDEN"
	// CodeNotFound means the claim, approval record or other resource is absent.
	CodeNotFound Code = "NOT_FOUND"
	// CodeConflict means the resource is no longer in the state the caller expected.
	CodeConflict Code = "CONFLICT"
	// CodeValidationFailed means the input was rejected before any state changed.
	CodeValidationFailed Code = "VALIDATION_FAILED"
	// CodeUnavailable means a collaborator (usually storage) could not be reached.
	CodeUnavailable Code = "UNAVAILABLE"
	// CodeInternal means storage rejected a statement for a non-transient reason.
	CodeInternal Code = "INTERNAL"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden, CodeSelfApprovalForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeValidationFailed:
		return http.StatusBadRequest
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
