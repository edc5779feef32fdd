package api

import (
	"errors"
	"fmt"
)

// Failure classifies why a call did not produce a value.
type Failure int

const (
	FailureNone Failure = iota
	FailureUnauthorized
	FailureForbidden
	FailureNotFound
	FailureConflict
	FailureValidation
	FailureServer
	FailureNetwork
	FailureDecode
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureUnauthorized:
		return "unauthorized"
	case FailureForbidden:
		return "forbidden"
	case FailureNotFound:
		return "not_found"
	case FailureConflict:
		return "conflict"
	case FailureValidation:
		return "validation"
	case FailureServer:
		return "server"
	case FailureNetwork:
		return "network"
	case FailureDecode:
		return "decode"
	default:
		return fmt.Sprintf("failure(%d)", int(f))
	}
}

// FailureForStatus maps a non-2xx HTTP status to a failure kind.
func FailureForStatus(status int) Failure {
	switch {
	case status == 401:
		return FailureUnauthorized
	case status == 403:
		return FailureForbidden
	case status == 404:
		return FailureNotFound
	case status == 409:
		return FailureConflict
	case status >= 400 && status < 500:
		return FailureValidation
	default:
		return FailureServer
	}
}

// Error describes a failed call.
type Error struct {
	Failure Failure
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("api %s (%d): %s", e.Failure, e.Status, msg)
	}
	return fmt.Sprintf("api %s: %s", e.Failure, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Result is the tagged outcome of a service call.
type Result[T any] struct {
	Value   T
	Failure Failure
	Err     *Error
}

// OK reports whether r carries a value.
func (r Result[T]) OK() bool { return r.Failure == FailureNone }

// Unwrap returns the value, or the zero value and the call's *Error.
func (r Result[T]) Unwrap() (T, error) {
	if r.OK() {
		return r.Value, nil
	}
	var zero T
	return zero, r.Err
}

func ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func fail[T any](e *Error) Result[T] {
	return Result[T]{Failure: e.Failure, Err: e}
}

// FailureOf returns the failure kind carried by err, or FailureNone.
func FailureOf(err error) Failure {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Failure
	}
	return FailureNone
}
