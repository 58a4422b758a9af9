// File: internal/common/errors.go
package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// APIError represents a standard structure for API errors.
type APIError struct {
	StatusCode int         `json:"-"`
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`

	cause error
}

func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("APIError: StatusCode=%d, Code=%s, Message=%s: %v", e.StatusCode, e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("APIError: StatusCode=%d, Code=%s, Message=%s", e.StatusCode, e.Code, e.Message)
}

// Is matches any APIError carrying the same code, so errors.Is(err, ErrNotFound)
// holds for values derived through WithDetails.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *APIError) Unwrap() error {
	return e.cause
}

func NewAPIError(statusCode int, code, message string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Message: message}
}

// WithDetails returns a copy of the error with details attached. Sentinels stay untouched.
func (e *APIError) WithDetails(details interface{}) *APIError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithCause returns a copy of the error wrapping cause.
func (e *APIError) WithCause(cause error) *APIError {
	cp := *e
	cp.cause = cause
	return &cp
}

var (
	ErrBadRequest          = NewAPIError(http.StatusBadRequest, "BAD_REQUEST", "The request is invalid.")
	ErrUnauthorized        = NewAPIError(http.StatusUnauthorized, "UNAUTHORIZED", "Authentication is required and has failed or has not yet been provided.")
	ErrForbidden           = NewAPIError(http.StatusForbidden, "FORBIDDEN", "You do not have permission to access this resource.")
	ErrNotFound            = NewAPIError(http.StatusNotFound, "NOT_FOUND", "The requested resource could not be found.")
	ErrConflict            = NewAPIError(http.StatusConflict, "CONFLICT", "A conflict occurred with the current state of the resource.")
	ErrUnprocessableEntity = NewAPIError(http.StatusUnprocessableEntity, "UNPROCESSABLE_ENTITY", "The request was well-formed but was unable to be followed due to semantic errors.")
	ErrTooManyRequests     = NewAPIError(http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "Too many requests, slow down.")
	ErrInternalServer      = NewAPIError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An unexpected error occurred on the server.")
	ErrServiceUnavailable  = NewAPIError(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "The server is currently unable to handle the request.")

	// Booking lifecycle taxonomy.
	ErrValidation        = NewAPIError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Input validation failed.")
	ErrNotEligible       = NewAPIError(http.StatusConflict, "NOT_ELIGIBLE", "The provider is not eligible for this booking.")
	ErrInvalidTransition = NewAPIError(http.StatusConflict, "INVALID_TRANSITION", "The requested status change is not allowed from the current status.")
	ErrRemoteFailure     = NewAPIError(http.StatusBadGateway, "REMOTE_FAILURE", "A backend call failed.")
)

func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func NewValidationAPIError(details interface{}) *APIError {
	return ErrValidation.WithDetails(details)
}

// FieldValidationError builds a ValidationError for a single field.
func FieldValidationError(field, message string) *APIError {
	return NewValidationAPIError(map[string]string{field: message})
}

// RemoteFailure wraps an error returned by the document store or identity provider.
// The backend's message is carried in Details; APIErrors pass through unchanged.
func RemoteFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := IsAPIError(err); ok {
		return err
	}
	return ErrRemoteFailure.WithDetails(fmt.Sprintf("%s: %s", op, err.Error())).WithCause(err)
}

// MalformedDocument reports a stored document that does not match the expected shape.
func MalformedDocument(collection, id, reason string) error {
	return ErrRemoteFailure.WithDetails(fmt.Sprintf("malformed document %s/%s: %s", collection, id, reason))
}

// FormatValidationErrors converts validator.ValidationErrors into a map.
func FormatValidationErrors(errs validator.ValidationErrors) map[string]string {
	errorMap := make(map[string]string)
	for _, e := range errs {
		field := e.Field()
		var message string
		switch e.Tag() {
		case "required":
			message = fmt.Sprintf("The %s field is required.", strings.ToLower(field))
		case "email":
			message = fmt.Sprintf("The %s field must be a valid email address.", strings.ToLower(field))
		case "min":
			message = fmt.Sprintf("The %s field must be at least %s.", strings.ToLower(field), e.Param())
		case "max":
			message = fmt.Sprintf("The %s field may not be greater than %s.", strings.ToLower(field), e.Param())
		case "gte":
			message = fmt.Sprintf("The %s field must be greater than or equal to %s.", strings.ToLower(field), e.Param())
		case "lte":
			message = fmt.Sprintf("The %s field must be less than or equal to %s.", strings.ToLower(field), e.Param())
		case "oneof":
			message = fmt.Sprintf("The %s field must be one of the following values: %s.", strings.ToLower(field), e.Param())
		case "required_if":
			message = fmt.Sprintf("The %s field is required when %s.", strings.ToLower(field), e.Param())
		default:
			message = fmt.Sprintf("Field validation for '%s' failed on the '%s' tag.", field, e.Tag())
		}
		errorMap[field] = message
	}
	return errorMap
}

// ValidateStruct runs validator tags on v and converts failures into a ValidationError.
func ValidateStruct(v *validator.Validate, s interface{}) error {
	if err := v.Struct(s); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return NewValidationAPIError(FormatValidationErrors(ve))
		}
		return ErrValidation.WithDetails(err.Error())
	}
	return nil
}
