// Package apperrors defines the error taxonomy every handler reports through.
// Each AppError carries a Kind (which fixes the default HTTP status), a stable
// machine code and a user-facing message.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "server"
	}
}

// Status is the default HTTP status for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

const (
	CodeValidation            = "VALIDATION_ERROR"
	CodeAuthentication        = "AUTHENTICATION_ERROR"
	CodeAuthorization         = "AUTHORIZATION_ERROR"
	CodeNotFound              = "NOT_FOUND"
	CodeConflict              = "CONFLICT"
	CodeServer                = "SERVER_ERROR"
	CodeAccountLocked         = "ACCOUNT_LOCKED"
	CodePasswordResetCooldown = "PASSWORD_RESET_COOLDOWN"
	CodeEmailService          = "EMAIL_SERVICE_ERROR"
	CodeRateLimited           = "RATE_LIMITED"
)

type AppError struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]any
	// StatusOverride replaces Kind.Status when non-zero.
	StatusOverride int
	Err            error

	operational bool
	stack       []uintptr
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func (e *AppError) Status() int {
	if e.StatusOverride != 0 {
		return e.StatusOverride
	}
	return e.Kind.Status()
}

// IsOperational reports whether the error is an expected outcome of a request
// (bad input, wrong credentials) rather than a fault in the server.
func (e *AppError) IsOperational() bool { return e.operational }

// Stack renders the call stack captured when the error was built.
func (e *AppError) Stack() string {
	if len(e.stack) == 0 {
		return ""
	}
	frames := runtime.CallersFrames(e.stack)
	var b strings.Builder
	for {
		f, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
		if !more {
			break
		}
	}
	return b.String()
}

// WithDetails attaches structured details and returns the same error.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func newError(kind Kind, code, msg string, cause error, operational bool) *AppError {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	return &AppError{
		Kind:        kind,
		Code:        code,
		Message:     msg,
		Err:         cause,
		operational: operational,
		stack:       pcs[:n],
	}
}

func Validation(msg string) *AppError {
	return newError(KindValidation, CodeValidation, msg, nil, true)
}

func Authentication(msg string) *AppError {
	return newError(KindAuthentication, CodeAuthentication, msg, nil, true)
}

func Authorization(msg string) *AppError {
	return newError(KindAuthorization, CodeAuthorization, msg, nil, true)
}

func NotFound(msg string) *AppError {
	return newError(KindNotFound, CodeNotFound, msg, nil, true)
}

func Conflict(msg string) *AppError {
	return newError(KindConflict, CodeConflict, msg, nil, true)
}

// Server wraps an unexpected failure. The message is what clients see; the
// cause is only logged.
func Server(msg string, cause error) *AppError {
	return newError(KindServer, CodeServer, msg, cause, false)
}

// Coded builds an operational error of the given kind with a specific code.
func Coded(kind Kind, code, msg string) *AppError {
	return newError(kind, code, msg, nil, true)
}

// AccountLocked is returned while a lockout window is open.
func AccountLocked(minutes int) *AppError {
	return newError(KindValidation, CodeAccountLocked,
		fmt.Sprintf("Account locked. Try again in %d minutes", minutes), nil, true).
		WithDetails(map[string]any{"minutesRemaining": minutes})
}

// EmailService reports that a mail could not be delivered. It is kept apart
// from validation failures so clients can offer a retry.
func EmailService(cause error) *AppError {
	e := newError(KindServer, CodeEmailService, "Email service error. Please try again later", cause, true)
	e.StatusOverride = http.StatusBadGateway
	return e
}

// RateLimited is returned by the request limiter with the seconds left on
// the block.
func RateLimited(retryAfterSeconds int) *AppError {
	e := newError(KindValidation, CodeRateLimited,
		fmt.Sprintf("Too many requests. Try again in %d seconds", retryAfterSeconds), nil, true).
		WithDetails(map[string]any{"retryAfterSeconds": retryAfterSeconds})
	e.StatusOverride = http.StatusTooManyRequests
	return e
}

// As extracts an *AppError from err's chain.
func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindServer for errors outside the taxonomy.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return KindServer
}

// Normalize maps any error onto the taxonomy. Unknown errors become a generic
// server error so internal messages never reach clients.
func Normalize(err error) *AppError {
	if ae, ok := As(err); ok {
		return ae
	}
	return newError(KindServer, CodeServer, "Internal server error", err, false)
}
