package connector

import (
	"errors"
	"fmt"
)

// ErrorCode classifies connector failures.
type ErrorCode string

const (
	// ErrCodeAlreadyExists means the remote rejected a create because the
	// username is taken.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// ErrCodeInvalidNewPassword means the set-password call failed and
	// password errors are not being ignored.
	ErrCodeInvalidNewPassword ErrorCode = "INVALID_NEW_PASSWORD"

	// ErrCodeUnsupportedObject means the object type does not allow the
	// operation according to its describe metadata.
	ErrCodeUnsupportedObject ErrorCode = "UNSUPPORTED_OBJECT"

	// ErrCodeInvalidAttributes means the caller's attributes cannot be
	// mapped to a request body.
	ErrCodeInvalidAttributes ErrorCode = "INVALID_ATTRIBUTES"

	// ErrCodeOperationFailed is any other failed operation.
	ErrCodeOperationFailed ErrorCode = "OPERATION_FAILED"
)

// duplicateUsername is the remote error code for a taken username.
const duplicateUsername = "DUPLICATE_USERNAME"

// Error is returned by connector operations.
type Error struct {
	Code ErrorCode
	Op   string

	// Message and RemoteCode carry the first remote error, if any.
	Message    string
	RemoteCode string

	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Op)
	if e.RemoteCode != "" {
		msg += ": " + e.RemoteCode
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil && e.RemoteCode == "" && e.Message == "" {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsAlreadyExists reports whether err is an ALREADY_EXISTS error.
func IsAlreadyExists(err error) bool { return hasCode(err, ErrCodeAlreadyExists) }

// IsInvalidNewPassword reports whether err is an INVALID_NEW_PASSWORD error.
func IsInvalidNewPassword(err error) bool { return hasCode(err, ErrCodeInvalidNewPassword) }

// IsUnsupportedObject reports whether err is an UNSUPPORTED_OBJECT error.
func IsUnsupportedObject(err error) bool { return hasCode(err, ErrCodeUnsupportedObject) }

// IsInvalidAttributes reports whether err is an INVALID_ATTRIBUTES error.
func IsInvalidAttributes(err error) bool { return hasCode(err, ErrCodeInvalidAttributes) }

// IsOperationFailed reports whether err is an OPERATION_FAILED error.
func IsOperationFailed(err error) bool { return hasCode(err, ErrCodeOperationFailed) }
