package appErrors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies an error class in API responses.
type ErrorCode string

// AppError is the application error carried through handlers and services.
type AppError struct {
	Code     ErrorCode   `json:"code"`
	Message  string      `json:"message"`
	Details  interface{} `json:"details,omitempty"`
	Err      error       `json:"-"`
	HTTPCode int         `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, message string, httpCode int) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		HTTPCode: httpCode,
	}
}

// Wrap keeps the originating error in the chain.
func Wrap(err error, code ErrorCode, message string, httpCode int) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Err:      err,
		HTTPCode: httpCode,
	}
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

func (e *AppError) WithError(err error) *AppError {
	clone := *e
	clone.Err = err
	return &clone
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	type alias struct {
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}
	return json.Marshal(&alias{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}

// Is wraps the standard errors.Is.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As wraps the standard errors.As.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Predeclared errors
var (
	ErrSessionNotFound = New(CodeSessionNotFound, "Upload session not found", http.StatusNotFound)
	ErrGroupNotFound   = New(CodeGroupNotFound, "Upload group not found", http.StatusNotFound)

	ErrNotMultipart = New(CodeNotMultipart, "Session is not a multipart upload", http.StatusBadRequest)

	ErrWebhookAuthFailed = New(CodeWebhookAuthFailed, "Webhook authentication failed", http.StatusUnauthorized)
)

// ValidationError builds a 400 with a caller-facing reason.
func ValidationError(message string) *AppError {
	return New(CodeValidationFailed, message, http.StatusBadRequest)
}

// StorageError wraps a storage-provider failure with the failed operation.
func StorageError(op string, err error) *AppError {
	return Wrap(err, CodeStorageError, fmt.Sprintf("Storage operation %s failed", op), http.StatusBadGateway)
}

// DatabaseError wraps a persistence failure.
func DatabaseError(err error) *AppError {
	return Wrap(err, CodeDatabaseError, "Database operation failed", http.StatusInternalServerError)
}

// InternalError wraps anything unexpected.
func InternalError(err error) *AppError {
	return Wrap(err, CodeInternalError, "Internal server error", http.StatusInternalServerError)
}
