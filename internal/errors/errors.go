package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Authentication
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"

	// Validation
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeInvalidEmail  ErrorCode = "INVALID_EMAIL"
	ErrCodeTopicTooShort ErrorCode = "TOPIC_TOO_SHORT"
	ErrCodeTopicTooLong  ErrorCode = "TOPIC_TOO_LONG"

	// Resource
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeAccountNotFound ErrorCode = "ACCOUNT_NOT_FOUND"
	ErrCodeAlreadyExists   ErrorCode = "ALREADY_EXISTS"
	ErrCodeConflict        ErrorCode = "CONFLICT"

	// Linking
	ErrCodeEmailAlreadyLinked ErrorCode = "EMAIL_ALREADY_LINKED"
	ErrCodeInvalidOTP         ErrorCode = "INVALID_OTP"
	ErrCodeOTPExpired         ErrorCode = "OTP_EXPIRED"
	ErrCodeNotifyFailed       ErrorCode = "NOTIFY_FAILED"
	// A merge target bound somewhere it should not be. Never resolved by
	// overwriting credits; always surfaced.
	ErrCodeInconsistentState ErrorCode = "INCONSISTENT_STATE"

	// Credits
	ErrCodeNoCredits ErrorCode = "NO_CREDITS"

	// Rate Limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
	ErrCodeExternal ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message)
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func AccountNotFound() *AppError {
	return New(ErrCodeAccountNotFound, "Account not found")
}

func AlreadyExists(resource string) *AppError {
	return New(ErrCodeAlreadyExists, fmt.Sprintf("%s already exists", resource))
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %s", field, reason))
}

func InvalidEmail() *AppError {
	return New(ErrCodeInvalidEmail, "Not a valid email address")
}

func TopicTooShort(min int) *AppError {
	return New(ErrCodeTopicTooShort, fmt.Sprintf("That topic is too short. Give me at least %d characters.", min))
}

func TopicTooLong(max int) *AppError {
	return New(ErrCodeTopicTooLong, fmt.Sprintf("That topic is too long. Keep it under %d characters.", max))
}

func EmailAlreadyLinked() *AppError {
	return New(ErrCodeEmailAlreadyLinked, "Email is already linked to another chat account")
}

func InvalidOTP() *AppError {
	return New(ErrCodeInvalidOTP, "Invalid or already used passcode")
}

func OTPExpired() *AppError {
	return New(ErrCodeOTPExpired, "Passcode has expired")
}

func NotifyFailed(cause error) *AppError {
	return Wrap(ErrCodeNotifyFailed, "Failed to send passcode email", cause)
}

func InconsistentState(message string) *AppError {
	return New(ErrCodeInconsistentState, message)
}

func NoCredits() *AppError {
	return New(ErrCodeNoCredits, "No credits remaining")
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Database error", cause)
}

func External(service string, cause error) *AppError {
	return Wrap(ErrCodeExternal, fmt.Sprintf("External service error: %s", service), cause)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}
