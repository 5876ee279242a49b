package errx

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error so callers can branch on failure mode without
// string-matching messages. The set is closed: every error surfaced by this
// service carries exactly one of these.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindUnauthorized    Kind = "unauthorized"
	KindContextNotFound Kind = "context_not_found"
	KindProviderTimeout Kind = "provider_timeout"
	KindProviderError   Kind = "provider_error"
	KindToolNotFound    Kind = "tool_not_found"
	KindInvalidParams   Kind = "invalid_params"
	KindAmbiguousTarget Kind = "ambiguous_target"
	KindNotFound        Kind = "not_found"
	KindParseError      Kind = "parse_error"
	KindRateLimited     Kind = "rate_limited"
	KindStore           Kind = "store"
	KindInternal        Kind = "internal"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// StoreErrorMessage describes storage related failures.
	StoreErrorMessage = "storage operation failed"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// ProviderErrorMessage is shown when the model backend fails.
	ProviderErrorMessage = "model provider request failed"
	// ProviderTimeoutMessage is shown when the model backend exceeds the budget.
	ProviderTimeoutMessage = "model provider request timed out"
)

// AppError wraps an underlying error with a kind, HTTP status and safe message.
// Message is what clients see; Err stays internal.
type AppError struct {
	Err     error
	Kind    Kind
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another AppError by kind, or defers to the wrapped chain.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Kind == t.Kind
	}
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	if e.Err == nil {
		return false
	}
	return errors.As(e.Err, target)
}

// New creates a new AppError with the provided information.
func New(err error, kind Kind, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Kind:    kind,
		Status:  status,
		Message: message,
	}
}

// Validation marks a request that failed input validation.
func Validation(message string) *AppError {
	return New(nil, KindValidation, http.StatusBadRequest, message)
}

// Unauthorized marks a request whose bearer token is missing, unknown, or
// does not match the path user.
func Unauthorized(message string) *AppError {
	return New(nil, KindUnauthorized, http.StatusUnauthorized, message)
}

// ContextNotFound marks a missing or foreign conversation.
func ContextNotFound(message string) *AppError {
	return New(nil, KindContextNotFound, http.StatusNotFound, message)
}

// NotFound marks a missing domain entity such as a task.
func NotFound(message string) *AppError {
	return New(nil, KindNotFound, http.StatusNotFound, message)
}

// RateLimited marks a request rejected by the per-user limiter.
func RateLimited(message string) *AppError {
	return New(nil, KindRateLimited, http.StatusTooManyRequests, message)
}

// Internal wraps an unexpected failure with the generic safe message.
func Internal(err error) *AppError {
	return New(err, KindInternal, http.StatusInternalServerError, SystemErrorMessage)
}

// KindOf extracts the Kind from an error chain; unknown errors are internal.
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// StatusOf extracts the HTTP status from an error chain, defaulting to 500.
func StatusOf(err error) int {
	var ae *AppError
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}

// MessageOf extracts the safe client-facing message from an error chain.
func MessageOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return SystemErrorMessage
}
