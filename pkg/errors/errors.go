package errors

import (
	"fmt"
)

// ParseError represents a pipeline file syntax failure with optional line
// metadata.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

// NewParseErrorAt constructs a ParseError carrying a column as well.
func NewParseErrorAt(path string, line, column int, err error) error {
	parseErr := NewParseError(path, line, err).(*ParseError)
	parseErr.Column = column
	return parseErr
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("parse error: %s: %s", e.Location(), e.Message)
}

// Location renders path, line and column as far as they are known, in the
// path:line:column form editors understand.
func (e *ParseError) Location() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Line > 0 && e.Column > 0:
		return fmt.Sprintf("%s:%d:%d", e.Path, e.Line, e.Column)
	case e.Line > 0:
		return fmt.Sprintf("%s:%d", e.Path, e.Line)
	default:
		return e.Path
	}
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures pipeline schema validation issues. Field is a
// path in the file's own key names, e.g. "steps[1].command".
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
