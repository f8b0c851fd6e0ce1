// Package apperr is the tagged error type shared by the lending core.
// Callers branch on Code, never on message text or on the error's origin.
package apperr

import (
	"errors"
	"fmt"
)

// Code classifies a failure.
type Code string

const (
	CodeValidation    Code = "VALIDATION"
	CodeNotFound      Code = "NOT_FOUND"
	CodeUpstreamParse Code = "UPSTREAM_PARSE"
	CodeConflict      Code = "CONFLICT"
	CodeInvalidState  Code = "INVALID_STATE"
	CodeUnavailable   Code = "UNAVAILABLE"
)

// ParsePDFPrefix starts every UpstreamParse message.
const ParsePDFPrefix = "Failed to parse PDF"

// Error carries a code and a human-readable message.
type Error struct {
	Code    Code
	Message string
	err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.err }

// Is matches another *Error by code, so errors.Is(err, &Error{Code: CodeNotFound}) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Message == "" && t.Code == e.Code
}

func newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error   { return newf(CodeValidation, format, args...) }
func NotFound(format string, args ...any) *Error     { return newf(CodeNotFound, format, args...) }
func Conflict(format string, args ...any) *Error     { return newf(CodeConflict, format, args...) }
func InvalidState(format string, args ...any) *Error { return newf(CodeInvalidState, format, args...) }

// Unavailable wraps a transport or storage failure that may succeed on retry.
func Unavailable(err error, format string, args ...any) *Error {
	e := newf(CodeUnavailable, format, args...)
	if err != nil {
		e.Message += ": " + err.Error()
		e.err = err
	}
	return e
}

// UpstreamParse reports a document-parser failure. Only the message of cause
// is kept; the cause itself is not reachable through errors.Unwrap.
func UpstreamParse(cause error) *Error {
	msg := ParsePDFPrefix
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return &Error{Code: CodeUpstreamParse, Message: msg}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }
func IsNotFound(err error) bool   { return CodeOf(err) == CodeNotFound }
