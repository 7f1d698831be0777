package common

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode),
// an error message and optionally the error that caused it.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
	Err  error   // The underlying error (may be nil)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("EnvError (code %s): %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("EnvError (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
// This allows errors.Is(err, common.NewError(common.RetCTruncated, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// Errorf creates a new Error with the given code and a formatted message.
func Errorf(code RetCode, format string, args ...interface{}) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// WrapError creates a new Error with the given code and message that wraps err.
func WrapError(code RetCode, err error, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  err,
	}
}

// CodeOf returns the code of the first *Error in err's chain.
// RetCSuccess is returned for a nil error and RetCInternalError for
// errors that are not of type *Error.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return RetCInternalError
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code RetCode) bool {
	return err != nil && CodeOf(err) == code
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Operation executed successfully.
	RetCInternalError                       // 1: Operation failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by the backend.
	RetCChecksumMismatch                    // 3: Stored checksum does not match the payload.
	RetCTruncated                           // 4: Payload ends without a terminator.
	RetCMalformed                           // 5: Payload record is not a valid name=value pair.
	RetCEncodeTooLarge                      // 6: Encoded table exceeds the payload capacity.
	RetCBackendUnsupported                  // 7: No driver is registered for the location.
	RetCBackendIoFailure                    // 8: A driver call failed.
	RetCNoValidCopy                         // 9: No valid copy was found, defaults are in use.
	RetCInvalidName                         // 10: Variable name or value violates the format.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCChecksumMismatch:
		return "ChecksumMismatch"
	case RetCTruncated:
		return "Truncated"
	case RetCMalformed:
		return "Malformed"
	case RetCEncodeTooLarge:
		return "EncodeTooLarge"
	case RetCBackendUnsupported:
		return "BackendUnsupported"
	case RetCBackendIoFailure:
		return "BackendIoFailure"
	case RetCNoValidCopy:
		return "NoValidCopy"
	case RetCInvalidName:
		return "InvalidName"
	default:
		return "Unknown"
	}
}
