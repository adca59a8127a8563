// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
// Code carries the business-error kind so clients can branch without parsing
// Detail, which is display text and may be localized.
type APIError struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// NewWithCode attaches a machine-readable code to the envelope.
func NewWithCode(code, msg string) *APIError {
	return &APIError{Detail: msg, Code: code}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}
