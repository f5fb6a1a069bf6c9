package models

import (
	"errors"
	"fmt"
)

// Error codes used across the client layer.
const (
	CodeRemoteCall   = "REMOTE_CALL_ERROR"
	CodeValidation   = "VALIDATION_ERROR"
	CodeConversion   = "CONVERSION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeInternal     = "INTERNAL_ERROR"
)

// AppError represents a custom application error
type AppError struct {
	Code    string
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

// Predefined error constructors

// NewRemoteCallError wraps a backend call failure. The message is what the
// backend reported and is what ends up in the user-facing alert.
func NewRemoteCallError(op, message string, err error) *AppError {
	return &AppError{
		Code:    CodeRemoteCall,
		Message: fmt.Sprintf("%s: %s", op, message),
		Err:     err,
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

// NewConversionError reports a malformed binary payload during asset conversion.
func NewConversionError(err error) *AppError {
	return &AppError{
		Code:    CodeConversion,
		Message: "unable to convert binary payload",
		Err:     err,
	}
}

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %v not found", resource, id),
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "internal error",
		Err:     err,
	}
}

// CodeOf returns the AppError code for err, or empty when err is not an AppError.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsValidation reports whether err is a local pre-flight validation failure.
// Validation failures are shown inline and never reach the alert channel.
func IsValidation(err error) bool {
	return CodeOf(err) == CodeValidation
}

// IsRemoteCall reports whether err came back from the backend boundary.
func IsRemoteCall(err error) bool {
	return CodeOf(err) == CodeRemoteCall
}
