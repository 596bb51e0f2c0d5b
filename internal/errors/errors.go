// Package errors implements the structured error taxonomy used across the
// bill-verification backbone. Every error kind the core can raise (see
// spec.md §7) maps to an ErrorType with a fixed HTTP status code, so
// collaborators (HTTP surface, CLI) never need to pattern-match on error
// strings.
package errors

import "fmt"

// ErrorType classifies an AppError for status-code mapping and IsType checks.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeNotReady   ErrorType = "not_ready"
	ErrorTypeCatalog    ErrorType = "catalog_load"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeStore      ErrorType = "store_unavailable"
	ErrorTypeOcr        ErrorType = "ocr_failure"
	ErrorTypeInternal   ErrorType = "internal"
)

var statusCodes = map[ErrorType]int{
	ErrorTypeValidation: 400,
	ErrorTypeNotFound:   404,
	ErrorTypeConflict:   409,
	ErrorTypeNotReady:   409,
	ErrorTypeCatalog:    500,
	ErrorTypeTimeout:    408,
	ErrorTypeStore:      503,
	ErrorTypeOcr:        502,
	ErrorTypeInternal:   500,
}

// AppError is the single error type the core returns. It satisfies the
// standard error interface and unwraps to Cause when one is set.
type AppError struct {
	Type       ErrorType
	Message    string
	Details    string
	Cause      error
	StatusCode int
}

func New(t ErrorType, message string) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		StatusCode: statusCodeFor(t),
	}
}

func Newf(t ErrorType, format string, args ...interface{}) *AppError {
	return New(t, fmt.Sprintf(format, args...))
}

func Wrap(cause error, t ErrorType, message string) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		Cause:      cause,
		StatusCode: statusCodeFor(t),
	}
}

func Wrapf(cause error, t ErrorType, format string, args ...interface{}) *AppError {
	return Wrap(cause, t, fmt.Sprintf(format, args...))
}

func statusCodeFor(t ErrorType) int {
	if code, ok := statusCodes[t]; ok {
		return code
	}
	return 500
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithDetailsf(format string, args ...interface{}) *AppError {
	e.Details = fmt.Sprintf(format, args...)
	return e
}

// IsType reports whether err is an *AppError of the given type.
func IsType(err error, t ErrorType) bool {
	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}
	return appErr.Type == t
}

// Predefined constructors mirroring the caller-facing error kinds of spec.md §7.

func NewInvalidInput(message string) *AppError {
	return New(ErrorTypeValidation, message)
}

func NewNotFound(resource string) *AppError {
	return Newf(ErrorTypeNotFound, "%s not found", resource)
}

func NewNotReady(resource string) *AppError {
	return Newf(ErrorTypeNotReady, "%s not ready", resource)
}

func NewAlreadyDeleted(resource string) *AppError {
	return Newf(ErrorTypeConflict, "%s already deleted", resource)
}

func NewNotDeleted(resource string) *AppError {
	return Newf(ErrorTypeConflict, "%s not deleted", resource)
}

func NewCatalogLoad(cause error, message string) *AppError {
	return Wrap(cause, ErrorTypeCatalog, message)
}

func NewHospitalNotFound(hospitalName string) *AppError {
	return Newf(ErrorTypeNotFound, "hospital not found: %s", hospitalName).WithDetails(hospitalName)
}

func NewOcrFailure(cause error, pageCount int) *AppError {
	return Wrapf(cause, ErrorTypeOcr, "ocr failed on all %d pages", pageCount)
}

func NewStoreUnavailable(cause error, operation string) *AppError {
	return Wrapf(cause, ErrorTypeStore, "store unavailable: %s", operation)
}
