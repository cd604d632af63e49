package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for the different failure categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"

	// Configuration errors
	ErrConfigMissing ErrorCode = "CONFIG_MISSING"
	ErrConfigParse   ErrorCode = "CONFIG_PARSE"
	ErrDataErr       ErrorCode = "DATA_ERR"
	ErrUsage         ErrorCode = "USAGE"

	// Packaging errors
	ErrNotFound          ErrorCode = "NOT_FOUND"
	ErrUnavailable       ErrorCode = "UNAVAILABLE"
	ErrUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"

	// External tool errors
	ErrSubprocess ErrorCode = "SUBPROCESS"

	// Git sync errors
	ErrGitAuth  ErrorCode = "GIT_AUTH"
	ErrGitClone ErrorCode = "GIT_CLONE"
	ErrGitFetch ErrorCode = "GIT_FETCH"
	ErrGitPush  ErrorCode = "GIT_PUSH"
)

// POSIX sysexits used to communicate the outcome class to calling scripts.
const (
	ExOK          = 0
	ExUsage       = 64
	ExDataErr     = 65
	ExNoInput     = 66
	ExUnavailable = 69
	ExSoftware    = 70
)

// RelpackError represents a structured error with code and details
type RelpackError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *RelpackError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *RelpackError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *RelpackError) Is(target error) bool {
	var targetErr *RelpackError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new RelpackError with the given code and message
func New(code ErrorCode, message string) *RelpackError {
	return &RelpackError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new RelpackError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *RelpackError {
	return &RelpackError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a RelpackError
func Wrap(err error, code ErrorCode, message string) *RelpackError {
	if err == nil {
		return nil
	}
	return &RelpackError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *RelpackError {
	if err == nil {
		return nil
	}
	return &RelpackError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *RelpackError) WithDetail(key string, value interface{}) *RelpackError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// GetCode extracts the ErrorCode from an error, returning ErrUnknown for
// errors that did not originate in this package.
func GetCode(err error) ErrorCode {
	var re *RelpackError
	if errors.As(err, &re) {
		return re.Code
	}
	return ErrUnknown
}

// ExitCode maps an error to the POSIX exit code the CLI should terminate with.
func ExitCode(err error) int {
	if err == nil {
		return ExOK
	}
	switch GetCode(err) {
	case ErrUsage:
		return ExUsage
	case ErrDataErr, ErrConfigParse, ErrUnsupportedFormat:
		return ExDataErr
	case ErrNotFound, ErrConfigMissing:
		return ExNoInput
	case ErrUnavailable:
		return ExUnavailable
	case ErrSubprocess:
		// Surface the external tool's own exit code when it was recorded.
		var re *RelpackError
		if errors.As(err, &re) {
			if code, ok := re.Details["exitCode"].(int); ok && code != 0 {
				return code
			}
		}
		return ExSoftware
	default:
		return ExSoftware
	}
}
