package batch

import (
	"errors"
	"fmt"
)

// ErrorCode identifies well-known failure categories of the batch executor.
type ErrorCode string

const (
	ErrCodeConfiguration   ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeStartFailure    ErrorCode = "START_FAILURE"
	ErrCodeTimeout         ErrorCode = "TIMEOUT"
	ErrCodeNonZeroExit     ErrorCode = "NON_ZERO_EXIT"
	ErrCodeArtifactMissing ErrorCode = "ARTIFACT_MISSING"
	ErrCodeCancelled       ErrorCode = "CANCELLED"
	ErrCodeInvalidState    ErrorCode = "INVALID_STATE"
)

// DomainError represents a typed error enriched with contextual data while
// remaining free from infrastructure dependencies.
type DomainError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As usage.
func (e *DomainError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is allows errors.Is comparisons against other DomainError values.
func (e *DomainError) Is(target error) bool {
	var domainErr *DomainError
	if !errors.As(target, &domainErr) {
		return false
	}
	return e.Code == domainErr.Code && e.Message == domainErr.Message
}

// WithContext clones the error with additional contextual metadata.
func (e *DomainError) WithContext(ctx map[string]interface{}) *DomainError {
	if e == nil {
		return nil
	}
	merged := make(map[string]interface{}, len(e.Context)+len(ctx))
	for k, v := range e.Context {
		merged[k] = v
	}
	for k, v := range ctx {
		merged[k] = v
	}
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Cause:   e.Cause,
		Context: merged,
	}
}

// NewError constructs a DomainError with the supplied code and message.
func NewError(code ErrorCode, message string, cause error, context map[string]interface{}) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: context,
	}
}

// NewConfigurationError reports input that is rejected before any execution.
func NewConfigurationError(message string, context map[string]interface{}) *DomainError {
	return NewError(ErrCodeConfiguration, message, nil, context)
}

// WrapConfigurationError wraps a lower level failure (parse, validation,
// resolution) as a configuration error.
func WrapConfigurationError(message string, cause error, context map[string]interface{}) *DomainError {
	return NewError(ErrCodeConfiguration, message, cause, context)
}

// NewInvalidStateError reports a control operation issued in the wrong state.
func NewInvalidStateError(op string, state State) *DomainError {
	return NewError(ErrCodeInvalidState, "operation not allowed in current state", nil, map[string]interface{}{
		"operation": op,
		"state":     string(state),
	})
}

// CodeOf returns the code of the first DomainError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) && domainErr != nil {
		return domainErr.Code
	}
	return ""
}

// IsConfigurationError reports whether err carries CONFIGURATION_ERROR.
func IsConfigurationError(err error) bool {
	return CodeOf(err) == ErrCodeConfiguration
}
