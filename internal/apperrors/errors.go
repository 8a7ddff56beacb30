package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates a transient concurrency failure (lock timeout, deadlock,
// serialization failure). The operation had no effect and may be retried.
var ErrConflict = errors.New("concurrent update conflict")

// ErrConfiguration indicates a deployment or configuration problem, such as a
// company without a default currency or an invalid rounding policy.
var ErrConfiguration = errors.New("configuration error")

// ErrInternal indicates an unexpected failure.
var ErrInternal = errors.New("internal error")

// AppError carries a sentinel kind, a human readable message and the underlying cause.
type AppError struct {
	Kind    error
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause.
func (e *AppError) Unwrap() error { return e.Err }

// Is lets errors.Is match the sentinel kind as well as the cause chain.
func (e *AppError) Is(target error) bool {
	return e.Kind != nil && e.Kind == target
}

// NewAppError wraps err with a kind and message. A nil kind defaults to ErrInternal.
func NewAppError(kind error, message string, err error) *AppError {
	if kind == nil {
		kind = ErrInternal
	}
	return &AppError{Kind: kind, Message: message, Err: err}
}

func NewValidationError(message string) *AppError {
	return &AppError{Kind: ErrValidation, Message: message}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: ErrNotFound, Message: message}
}

func NewConfigurationError(message string) *AppError {
	return &AppError{Kind: ErrConfiguration, Message: message}
}

func NewConflictError(message string, err error) *AppError {
	return &AppError{Kind: ErrConflict, Message: message, Err: err}
}
