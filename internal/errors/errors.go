package errors

import (
	"fmt"
	"net/http"
)

// Codes carried in the error_code extension of handler-level problems
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeValidationFailed = "VALIDATION_FAILED"
)

// APIError is raised by HTTP handlers when a request is rejected before it
// reaches a service (bad multipart body, malformed run id, bad query).
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

// ValidationError names a single rejected request field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewWithDetails builds an APIError; details are rendered verbatim
func NewWithDetails(statusCode int, code, message string, details any) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: code, Message: message, Details: details}
}

// InvalidRequestWithError rejects a body that could not be decoded
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format", err.Error())
}

// ErrValidation rejects one field of an otherwise well-formed request
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeValidationFailed, "Request validation failed",
		ValidationError{Field: field, Message: message})
}

// ErrorType classifies service-layer failures
type ErrorType string

const (
	ErrTypeParsing  ErrorType = "PARSING"  // instrument export could not be read
	ErrTypeStorage  ErrorType = "STORAGE"  // results store failure
	ErrTypeConfig   ErrorType = "CONFIG"   // chemistry or application config rejected
	ErrTypeAnalysis ErrorType = "ANALYSIS" // engine failed on a loaded experiment
)

// AppError wraps a service failure with its type and optional key/value
// context (experiment name, directory, dsn). The wrapped cause stays
// reachable through errors.Is and errors.As.
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("[%s] %s", e.Type, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithContext records key=value on the error and returns it for chaining
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = map[string]any{}
	}
	e.Context[key] = value
	return e
}

func newAppError(t ErrorType, message string, cause error) *AppError {
	return &AppError{Type: t, Message: message, Cause: cause}
}

func NewParsingError(message string, cause error) *AppError {
	return newAppError(ErrTypeParsing, message, cause)
}

func NewStorageError(message string, cause error) *AppError {
	return newAppError(ErrTypeStorage, message, cause)
}

func NewConfigError(message string, cause error) *AppError {
	return newAppError(ErrTypeConfig, message, cause)
}

func NewAnalysisError(message string, cause error) *AppError {
	return newAppError(ErrTypeAnalysis, message, cause)
}
