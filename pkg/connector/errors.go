package connector

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode classifies a TranslatorError.
type ErrorCode string

// Error codes.
const (
	CodeExecution         ErrorCode = "execution"
	CodeCancelled         ErrorCode = "cancelled"
	CodeTimeout           ErrorCode = "timeout"
	CodeContractViolation ErrorCode = "contract_violation"
	CodeConversion        ErrorCode = "conversion"
	CodeTransaction       ErrorCode = "transaction"
	CodeCapabilities      ErrorCode = "capabilities"
)

// TranslatorError is the only error type the engine returns for connector
// work. Adapter errors are kept as the wrapped cause. Message is the full
// description; when empty the cause's text is used.
type TranslatorError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *TranslatorError) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the cause.
func (e *TranslatorError) Unwrap() error {
	return e.Err
}

// Errorf creates a TranslatorError with a formatted message. A %w verb in
// format sets the cause.
func Errorf(code ErrorCode, format string, args ...any) *TranslatorError {
	wrapped := fmt.Errorf(format, args...)
	return &TranslatorError{Code: code, Message: wrapped.Error(), Err: errors.Unwrap(wrapped)}
}

// Wrap returns err as a TranslatorError. An existing TranslatorError in the
// chain is returned unchanged.
func Wrap(code ErrorCode, err error) *TranslatorError {
	if err == nil {
		return nil
	}
	var te *TranslatorError
	if errors.As(err, &te) {
		return te
	}
	return &TranslatorError{Code: code, Err: err}
}

// HasCode reports whether err is a TranslatorError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var te *TranslatorError
	return errors.As(err, &te) && te.Code == code
}

// NoPolling as a retry delay means the execution will signal readiness
// itself and the caller should not poll on a timer.
const NoPolling time.Duration = -1

// DataNotAvailableError tells the caller that no row is ready yet. It is
// not a failure: the caller should retry after RetryDelay.
type DataNotAvailableError struct {
	RetryDelay time.Duration
	// Strict requests that the caller wait the full delay.
	Strict bool
}

// NewDataNotAvailable creates a DataNotAvailableError.
func NewDataNotAvailable(delay time.Duration) *DataNotAvailableError {
	return &DataNotAvailableError{RetryDelay: delay}
}

func (e *DataNotAvailableError) Error() string {
	if e.RetryDelay == NoPolling {
		return "data not available"
	}
	return fmt.Sprintf("data not available, retry after %s", e.RetryDelay)
}

// AsDataNotAvailable extracts a DataNotAvailableError from err.
func AsDataNotAvailable(err error) (*DataNotAvailableError, bool) {
	var dna *DataNotAvailableError
	if errors.As(err, &dna) {
		return dna, true
	}
	return nil, false
}
