package host

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// CodeDecodeFailure is returned when an inbound call payload cannot be decoded.
	CodeDecodeFailure = "DECODE_FAILURE"
	// CodeOperationNotFound is returned when an operation name has no registration.
	CodeOperationNotFound = "OPERATION_NOT_FOUND"
	// CodeInvalidArguments is returned when arguments fail schema validation.
	CodeInvalidArguments = "INVALID_ARGUMENTS"
	// CodeUpstreamFailure is returned when a handler's downstream I/O fails.
	CodeUpstreamFailure = "UPSTREAM_FAILURE"
	// CodeTimeout is returned when a call exceeds the configured call timeout.
	CodeTimeout = "TIMEOUT"
	// CodeInternal is a fallback for failures inside the host itself.
	CodeInternal = "INTERNAL"
)

// CallError is a structured per-call failure that flows from validation and
// handlers into the response envelope without losing its machine-readable code.
type CallError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *CallError) Error() string {
	if e == nil {
		return ""
	}
	code := strings.TrimSpace(e.Code)
	msg := strings.TrimSpace(e.Message)
	switch {
	case code == "" && msg == "":
		return CodeInternal
	case code == "":
		return msg
	case msg == "":
		return code
	default:
		return fmt.Sprintf("%s: %s", code, msg)
	}
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *CallError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewCallError builds a CallError, falling back to the cause's message when
// no message is given.
func NewCallError(code, message string, cause error) *CallError {
	cleanCode := strings.TrimSpace(code)
	if cleanCode == "" {
		cleanCode = CodeInternal
	}
	cleanMsg := strings.TrimSpace(message)
	if cleanMsg == "" && cause != nil {
		cleanMsg = cause.Error()
	}
	return &CallError{
		Code:    cleanCode,
		Message: cleanMsg,
		Cause:   cause,
	}
}

// Failf builds a CallError with a formatted message.
func Failf(code, format string, args ...any) *CallError {
	return NewCallError(code, fmt.Sprintf(format, args...), nil)
}

func callErrorFrom(err error) (*CallError, bool) {
	if err == nil {
		return nil, false
	}
	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr, true
	}
	return nil, false
}

func callErrorCode(err error, fallback string) string {
	if callErr, ok := callErrorFrom(err); ok && callErr != nil && strings.TrimSpace(callErr.Code) != "" {
		return callErr.Code
	}
	return fallback
}
