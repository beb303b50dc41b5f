package common

import (
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/go-errors/errors"
)

type Code string

const (
	CodeValidation           Code = "validation_error"
	CodeInvalidID            Code = "invalid_id"
	CodeNotFound             Code = "not_found"
	CodeJobNotFound          Code = "job_not_found"
	CodeApplicationNotFound  Code = "application_not_found"
	CodeDuplicateApplication Code = "duplicate_application"
	CodeUploadFailed         Code = "upload_failed"
	CodeUnauthorized         Code = "unauthorized"
	CodeForbidden            Code = "forbidden"
	CodeInternal             Code = "internal"
)

// Error is the single error type that crosses the service boundary. Status
// overrides the status derived from Code when set.
type Error struct {
	Code    Code
	Message string
	Fields  map[string]string
	Status  int
	Err     error
	Stack   []byte
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err, Stack: captureStack(message, err)}
}

func NewValidationError(message string, fields map[string]string) *Error {
	e := NewError(CodeValidation, message, nil)
	e.Fields = fields
	return e
}

// NewUploadError reports a failed resume upload. status is 400 for policy
// violations and 500 when the sink could not be reached.
func NewUploadError(status int, message string, err error) *Error {
	e := NewError(CodeUploadFailed, message, err)
	e.Status = status
	return e
}

func captureStack(message string, err error) []byte {
	if err == nil {
		return goerrors.New(message).Stack()
	}
	var stackErr *goerrors.Error
	if errors.As(err, &stackErr) {
		return stackErr.Stack()
	}
	return goerrors.Wrap(err, 2).Stack()
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

func Is(err error, code Code) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// IsNotFound matches the generic and the entity specific not-found codes.
func IsNotFound(err error) bool {
	appErr, ok := As(err)
	if !ok {
		return false
	}
	switch appErr.Code {
	case CodeNotFound, CodeJobNotFound, CodeApplicationNotFound:
		return true
	}
	return false
}

func HTTPStatus(err error) int {
	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if appErr.Status != 0 {
		return appErr.Status
	}
	switch appErr.Code {
	case CodeValidation, CodeInvalidID, CodeUploadFailed:
		return http.StatusBadRequest
	case CodeNotFound, CodeJobNotFound, CodeApplicationNotFound:
		return http.StatusNotFound
	case CodeDuplicateApplication:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
