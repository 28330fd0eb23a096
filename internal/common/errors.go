package common

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error kinds. Every AppError built by the constructors below wraps exactly one of them.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation failed")
	ErrParse         = errors.New("parse error")
	ErrTransport     = errors.New("transport error")

	ErrNotFound     = errors.New("resource not found")
	ErrCorrupted    = errors.New("corrupted data")
	ErrUnavailable  = errors.New("store unavailable")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
)

const (
	CodeConfiguration = "CONFIG_ERROR"
	CodeValidation    = "VALIDATION_ERROR"
	CodeParse         = "PARSE_ERROR"
	CodeTransport     = "TRANSPORT_ERROR"
	CodeTooLarge      = "PAYLOAD_TOO_LARGE"
)

// NewAppError builds an AppError.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// kindError joins a sentinel kind with an optional underlying cause so that
// errors.Is matches both.
type kindError struct {
	kind  error
	cause error
}

func (k *kindError) Error() string {
	if k.cause == nil {
		return k.kind.Error()
	}
	return k.kind.Error() + ": " + k.cause.Error()
}

func (k *kindError) Unwrap() []error {
	if k.cause == nil {
		return []error{k.kind}
	}
	return []error{k.kind, k.cause}
}

func newKind(code string, kind error, message string, cause error) *AppError {
	return NewAppError(code, message, &kindError{kind: kind, cause: cause})
}

// ConfigurationError marks missing or malformed provider/store settings. Never retried.
func ConfigurationError(message string, cause error) *AppError {
	return newKind(CodeConfiguration, ErrConfiguration, message, cause)
}

// ValidationError marks rejected input (file rules, word counts, request fields).
func ValidationError(message string, cause error) *AppError {
	return newKind(CodeValidation, ErrValidation, message, cause)
}

// TooLargeError is a validation failure for an oversized payload.
func TooLargeError(message string) *AppError {
	return newKind(CodeTooLarge, ErrValidation, message, nil)
}

// ParseError marks a model response that no recovery tier could decode.
func ParseError(message string, cause error) *AppError {
	return newKind(CodeParse, ErrParse, message, cause)
}

// TransportError marks a failed call to the model provider.
func TransportError(message string, cause error) *AppError {
	return newKind(CodeTransport, ErrTransport, message, cause)
}

// WrapError prefixes err with message, keeping it matchable with errors.Is. nil stays nil.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus maps an error onto the status code the HTTP layer answers with.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code == CodeTooLarge {
		return http.StatusRequestEntityTooLarge
	}
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrParse), errors.Is(err, ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, ErrInternal):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the human-readable text safe to return to callers.
func PublicMessage(err error) string {
	if errors.Is(err, ErrConfiguration) {
		return "API key configuration error"
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal error"
}
