package services

import (
	"errors"
	"fmt"
)

// ErrorType categorizes pipeline failures.
type ErrorType string

const (
	ErrorTypeUnsupportedType     ErrorType = "unsupported_type"
	ErrorTypeExtraction          ErrorType = "extraction"
	ErrorTypeEmptyContent        ErrorType = "empty_content"
	ErrorTypeIndexWrite          ErrorType = "index_write"
	ErrorTypeProviderUnavailable ErrorType = "provider_unavailable"
)

// PipelineError is a categorized failure. Message is meant for end users; Err
// keeps the underlying cause for logs.
type PipelineError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Is matches on type so errors.Is(err, ErrExtraction) works for any extraction
// failure regardless of message.
func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

func NewPipelineError(errType ErrorType, message string, err error) *PipelineError {
	return &PipelineError{Type: errType, Message: message, Err: err}
}

var (
	ErrUnsupportedType     = NewPipelineError(ErrorTypeUnsupportedType, "unsupported file type", nil)
	ErrExtraction          = NewPipelineError(ErrorTypeExtraction, "could not extract text", nil)
	ErrEmptyContent        = NewPipelineError(ErrorTypeEmptyContent, "no valid text content", nil)
	ErrIndexWrite          = NewPipelineError(ErrorTypeIndexWrite, "no chunks could be indexed", nil)
	ErrProviderUnavailable = NewPipelineError(ErrorTypeProviderUnavailable, "provider unavailable", nil)

	// ErrIndexNotConfigured is returned by every vector index operation that
	// needs a backend when initialization failed or was never possible.
	ErrIndexNotConfigured = NewPipelineError(ErrorTypeProviderUnavailable, "vector index not configured", nil)
)

// UserMessage returns the user-facing message of a PipelineError, or the raw
// error text for anything else.
func UserMessage(err error) string {
	var pErr *PipelineError
	if errors.As(err, &pErr) {
		return pErr.Message
	}
	return err.Error()
}

func IsUnsupportedTypeError(err error) bool {
	return hasType(err, ErrorTypeUnsupportedType)
}

func IsProviderUnavailableError(err error) bool {
	return hasType(err, ErrorTypeProviderUnavailable)
}

func hasType(err error, t ErrorType) bool {
	var pErr *PipelineError
	if errors.As(err, &pErr) {
		return pErr.Type == t
	}
	return false
}
