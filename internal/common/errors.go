package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared by the client packages and the reference gateway.
const (
	CodeParse        = "PARSE_ERROR"
	CodeUpload       = "UPLOAD_ERROR"
	CodeQuery        = "QUERY_ERROR"
	CodeControl      = "CONTROL_ERROR"
	CodeNotification = "NOTIFICATION_WARNING"
	CodeOutreach     = "OUTREACH_ERROR"
	CodeConfig       = "CONFIG_ERROR"
	CodeUnknownKind  = "UNKNOWN_KIND"
	CodeInvalidInput = "INVALID_INPUT"
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

// Is matches any *AppError carrying the same code, so errors.Is(err, ErrQuery) works
// regardless of message or cause.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Error kinds surfaced to callers. Compare with errors.Is.
var (
	ErrParse        = &AppError{Code: CodeParse, Message: "malformed or empty spreadsheet"}
	ErrUpload       = &AppError{Code: CodeUpload, Message: "upload failed"}
	ErrQuery        = &AppError{Code: CodeQuery, Message: "query failed"}
	ErrControl      = &AppError{Code: CodeControl, Message: "control command failed"}
	ErrNotification = &AppError{Code: CodeNotification, Message: "completion notification not confirmed"}
	ErrOutreach     = &AppError{Code: CodeOutreach, Message: "outreach provider call failed"}
	ErrConfig       = &AppError{Code: CodeConfig, Message: "invalid configuration"}
	ErrUnknownKind  = &AppError{Code: CodeUnknownKind, Message: "unknown automation kind"}
)

// Store errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus maps an error to the status the reference gateway answers with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrParse), errors.Is(err, ErrUnknownKind):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
