package domain

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// HTTPError is implemented by errors that carry their own status code.
type HTTPError interface {
	error
	StatusCode() int
}

type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates an unknown or missing credential
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates the caller is known but may not proceed
	ForbiddenError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string    { return e.Message }

func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int    { return http.StatusForbidden }

func (e *NotFoundError) Is(target error) bool     { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool   { return target == ErrValidation }
func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }
func (e *ForbiddenError) Is(target error) bool    { return target == ErrForbidden }

// Sentinel errors, match with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrQuotaExceeded means the owner has no requests left on their plan.
	ErrQuotaExceeded = errors.New("request limit exceeded")
	// ErrBotDisabled means the bot was switched off by its owner.
	ErrBotDisabled = errors.New("this bot is currently inactive")
	// ErrPlanLimit means the owner's plan does not allow another bot.
	ErrPlanLimit = errors.New("plan bot limit reached")

	// ErrUpstreamUnavailable marks failures of an external dependency that
	// may succeed on retry (timeouts, 429, 5xx).
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrUpstreamRejected marks requests an external dependency refused
	// and will keep refusing.
	ErrUpstreamRejected = errors.New("upstream rejected request")
)

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (bot, payment)
	ResourceID   string // ID of the existing/conflicting resource
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// IsRetryable reports whether err is worth retrying against the same upstream.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}

// IsTimeout reports whether err came from a deadline or a network timeout.
// Caller cancellation is not a timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
