package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure by who is responsible for it.
type Kind string

const (
	// KindValidation is a client mistake: bad shape, missing or invalid field.
	KindValidation Kind = "VALIDATION"

	// KindExternal is a failure of a remote dependency such as the geocoder.
	KindExternal Kind = "EXTERNAL"

	// KindInternal is a failure inside the service (scaler, model, storage).
	KindInternal Kind = "INTERNAL"
)

// AppError carries a Kind alongside the client-facing message.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the kind onto a response status code.
func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

func Validationf(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewExternalError(message string, err error) *AppError {
	return &AppError{Kind: KindExternal, Message: message, Err: err}
}

func NewInternalError(message string, err error) *AppError {
	return &AppError{Kind: KindInternal, Message: message, Err: err}
}

// KindOf reports the kind of err. Unclassified errors are internal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// StatusOf returns the HTTP status for err.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}
