// Package apperr defines the coded error taxonomy shared by services and the
// HTTP layer. Services return *Error values; the transport layer translates
// codes into status codes and a JSON envelope without inspecting messages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a failure for callers. Codes are part of the API surface:
// clients branch on them, so renaming one is a breaking change.
type Code string

const (
	// CodeInvalidInput marks malformed or missing client input. Never retried.
	CodeInvalidInput Code = "invalid_input"

	// CodeInvalidSignature marks a failed holder-signature check. Kept
	// deliberately detail-free so the check is not an oracle.
	CodeInvalidSignature Code = "invalid_signature"

	// CodeNotFound marks a missing credential on a direct lookup.
	CodeNotFound Code = "not_found"

	// CodeContextNotFound marks a context reference to a credential that
	// does not exist. The message names the offending id.
	CodeContextNotFound Code = "context_not_found"

	// CodeContextNotVerified marks a context credential whose verification
	// verdict is negative. The message names the offending id.
	CodeContextNotVerified Code = "context_not_verified"

	// CodeContextContentMissing marks a context credential whose content
	// body could not be retrieved from the content store.
	CodeContextContentMissing Code = "context_content_missing"

	// CodeContentNotCredible marks a claim the consistency oracle judged
	// contradictory to its verified context.
	CodeContentNotCredible Code = "content_not_credible"

	// CodeUpstream marks a failure of an external collaborator. Not retried
	// here; retries belong to the caller.
	CodeUpstream Code = "upstream_error"

	// CodeConfig marks a deployment that is not ready to serve, e.g. the
	// issuer identity was never bootstrapped.
	CodeConfig Code = "configuration_error"

	// CodeInternal is the fallback for unclassified failures.
	CodeInternal Code = "internal_error"
)

// Error carries a code alongside a human-readable message and an optional
// wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a coded error.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs a coded error around a cause.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the code from err, or CodeInternal when err is not coded.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf extracts the message from err, or a generic message otherwise.
// Uncoded errors are not surfaced verbatim to clients.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

// ToHTTPStatus maps a code to the HTTP status the transport layer writes.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeInvalidSignature:
		return http.StatusUnauthorized
	case CodeNotFound, CodeContextNotFound:
		return http.StatusNotFound
	case CodeContextNotVerified, CodeContextContentMissing, CodeContentNotCredible:
		return http.StatusUnprocessableEntity
	case CodeUpstream:
		return http.StatusBadGateway
	case CodeConfig, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
