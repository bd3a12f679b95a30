package calcflow

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Error codes
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeTimeout        = "TIMEOUT"
	ErrCodeCancelled      = "CANCELLED"
	ErrCodePanic          = "PANIC"
	ErrCodeTransport      = "TRANSPORT_ERROR"
	ErrCodeUpstreamStatus = "UPSTREAM_STATUS"
	ErrCodeUnitError      = "UNIT_ERROR"
	ErrCodeDecode         = "DECODE_ERROR"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)

// InvocationError represents a failure to obtain a unit result
type InvocationError struct {
	Message    string                 `json:"message" dynamodbav:"message"`
	Code       string                 `json:"code" dynamodbav:"code"`
	Function   string                 `json:"function,omitempty" dynamodbav:"function,omitempty"`
	Stage      string                 `json:"stage,omitempty" dynamodbav:"stage,omitempty"`
	StatusCode int                    `json:"statusCode,omitempty" dynamodbav:"status_code,omitempty"`
	Timestamp  time.Time              `json:"timestamp" dynamodbav:"timestamp"`
	Details    map[string]interface{} `json:"details,omitempty" dynamodbav:"details,omitempty"`

	cause error
}

// Error implements the error interface
func (e *InvocationError) Error() string {
	switch {
	case e.Stage != "":
		return fmt.Sprintf("[%s] %s (stage: %s)", e.Code, e.Message, e.Stage)
	case e.Function != "":
		return fmt.Sprintf("[%s] %s (function: %s)", e.Code, e.Message, e.Function)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying cause, if any
func (e *InvocationError) Unwrap() error {
	return e.cause
}

// NewInvocationError creates a new invocation error
func NewInvocationError(code, message string) *InvocationError {
	return &InvocationError{
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

// WrapInvocationError creates an invocation error that keeps err as its cause
func WrapInvocationError(code string, err error) *InvocationError {
	e := NewInvocationError(code, err.Error())
	e.cause = err
	return e
}

// Clone returns a shallow copy of e that can be annotated without affecting e
func (e *InvocationError) Clone() *InvocationError {
	c := *e
	return &c
}

// WithFunction sets the function the error relates to
func (e *InvocationError) WithFunction(function string) *InvocationError {
	e.Function = function
	return e
}

// WithStage sets the stage the error relates to
func (e *InvocationError) WithStage(stage string) *InvocationError {
	e.Stage = stage
	return e
}

// WithStatusCode records the transport status that caused the error
func (e *InvocationError) WithStatusCode(code int) *InvocationError {
	e.StatusCode = code
	return e
}

// WithDetails adds details to the error
func (e *InvocationError) WithDetails(details map[string]interface{}) *InvocationError {
	e.Details = details
	return e
}

// ToInvocationError converts any error into an InvocationError.
// Context errors map to TIMEOUT and CANCELLED, everything else to INTERNAL_ERROR.
func ToInvocationError(err error) *InvocationError {
	if err == nil {
		return nil
	}

	var ie *InvocationError
	if errors.As(err, &ie) {
		return ie
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return WrapInvocationError(ErrCodeTimeout, err)
	case errors.Is(err, context.Canceled):
		return WrapInvocationError(ErrCodeCancelled, err)
	default:
		return WrapInvocationError(ErrCodeInternalError, err)
	}
}

// ErrorCode returns the code carried by err, or "" when err is nil
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	return ToInvocationError(err).Code
}

// IsTimeoutError checks if an error is a timeout error
func IsTimeoutError(err error) bool {
	return ErrorCode(err) == ErrCodeTimeout
}

// IsValidationError checks if an error is an input validation error
func IsValidationError(err error) bool {
	return ErrorCode(err) == ErrCodeValidation
}

// IsNotFoundError checks if an error reports an unknown function, stage or run
func IsNotFoundError(err error) bool {
	return ErrorCode(err) == ErrCodeNotFound
}
