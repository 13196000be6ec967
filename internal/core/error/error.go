package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage is used when a Redis key does not exist.
	RedisNotFoundMessage = "redis key not found"
	// StateUnavailableMessage is returned when conversation state cannot be read or written.
	StateUnavailableMessage = "state unavailable"
	// BadRequestMessage is returned for malformed client input.
	BadRequestMessage = "bad request"
)

// ErrStateUnavailable marks persistence failures that must fail the request.
var ErrStateUnavailable = errors.New(StateUnavailableMessage)

// Error wraps an underlying error with an HTTP status and safe message.
type Error struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrStateUnavailable) match persistence failures.
func (e *Error) Is(target error) bool {
	return target == ErrStateUnavailable && e.Status == http.StatusServiceUnavailable
}

// New creates a new Error with the provided information.
func New(err error, status int, message string) *Error {
	return &Error{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// BadRequest wraps a client input error.
func BadRequest(err error) *Error {
	return New(err, http.StatusBadRequest, BadRequestMessage)
}

// WrapState marks err as a persistence failure. The result matches
// ErrStateUnavailable under errors.Is while still unwrapping to err.
func WrapState(err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Status == http.StatusServiceUnavailable {
		return err
	}
	return New(err, http.StatusServiceUnavailable, StateUnavailableMessage)
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the safe message carried by err, or SystemErrorMessage.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return SystemErrorMessage
}
