package ir

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes propagation failures.
type ErrorCode string

const (
	// ErrCodeNullArgument indicates a required parameter was absent.
	ErrCodeNullArgument ErrorCode = "NULL_ARGUMENT"

	// ErrCodeDisposed indicates an operation on a disposed proxy.
	ErrCodeDisposed ErrorCode = "DISPOSED"

	// ErrCodeCompleted indicates an operation after the transaction completed.
	ErrCodeCompleted ErrorCode = "COMPLETED"

	// ErrCodeNotSupported indicates promotion with no matching coordinator capability.
	ErrCodeNotSupported ErrorCode = "NOT_SUPPORTED"

	// ErrCodeInvalidFormat indicates a byte buffer shorter than its format minimum.
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"
)

// Error is the propagation error taxonomy.
//
// Codes are stable and survive transport: the gRPC layer carries Code
// in the status message so a remote failure still classifies with the
// IsXxx helpers below.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the failing operation ("export", "decode cookie", ...).
	Op string

	// TxID identifies the affected transaction when known.
	TxID TxID

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Op != "" && !e.TxID.IsZero():
		return fmt.Sprintf("%s: %s: %s (tx=%s)", e.Code, e.Op, msg, e.TxID)
	case e.Op != "":
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, msg)
	default:
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the taxonomy code of err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNullArgument returns true if err is a NULL_ARGUMENT error.
func IsNullArgument(err error) bool { return CodeOf(err) == ErrCodeNullArgument }

// IsDisposed returns true if err is a DISPOSED error.
func IsDisposed(err error) bool { return CodeOf(err) == ErrCodeDisposed }

// IsCompleted returns true if err is a COMPLETED error.
func IsCompleted(err error) bool { return CodeOf(err) == ErrCodeCompleted }

// IsNotSupported returns true if err is a NOT_SUPPORTED error.
func IsNotSupported(err error) bool { return CodeOf(err) == ErrCodeNotSupported }

// IsInvalidFormat returns true if err is an INVALID_FORMAT error.
func IsInvalidFormat(err error) bool { return CodeOf(err) == ErrCodeInvalidFormat }

// NewNullArgumentError reports a missing required argument.
func NewNullArgumentError(op, arg string) *Error {
	return &Error{
		Code:    ErrCodeNullArgument,
		Op:      op,
		Message: fmt.Sprintf("%s is required", arg),
	}
}

// NewDisposedError reports use of a disposed proxy.
func NewDisposedError(op string, id TxID) *Error {
	return &Error{
		Code:    ErrCodeDisposed,
		Op:      op,
		TxID:    id,
		Message: "transaction has been disposed",
	}
}

// NewCompletedError reports use of a completed transaction.
func NewCompletedError(op string, id TxID) *Error {
	return &Error{
		Code:    ErrCodeCompleted,
		Op:      op,
		TxID:    id,
		Message: "transaction has already completed",
	}
}

// NewNotSupportedError reports that no coordinator capability can serve the request.
func NewNotSupportedError(op string, id TxID, reason string) *Error {
	return &Error{
		Code:    ErrCodeNotSupported,
		Op:      op,
		TxID:    id,
		Message: reason,
	}
}

// NewInvalidFormatError reports an undersized buffer.
func NewInvalidFormatError(op string, got, minLen int) *Error {
	return &Error{
		Code:    ErrCodeInvalidFormat,
		Op:      op,
		Message: fmt.Sprintf("buffer has %d bytes, minimum is %d", got, minLen),
	}
}

// ParseErrorCode maps a code string back to an ErrorCode.
// Returns false for unknown codes.
func ParseErrorCode(s string) (ErrorCode, bool) {
	switch c := ErrorCode(s); c {
	case ErrCodeNullArgument, ErrCodeDisposed, ErrCodeCompleted, ErrCodeNotSupported, ErrCodeInvalidFormat:
		return c, true
	default:
		return "", false
	}
}
