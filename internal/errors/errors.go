// Package errors wraps pkg/errors and adds error codes so callers can branch on
// the kind of failure (structural, classification, data integrity) without
// matching on message text.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code identifies a class of failure. See Is.
type Code string

const (
	ErrUncoded Code = "Uncoded"

	// Structural: the run cannot continue.
	ErrInputRootNotFound Code = "InputRootNotFound"
	ErrNoInputFiles      Code = "NoInputFiles"
	ErrNoNodeFiles       Code = "NoNodeFiles"
	ErrUnreadableFile    Code = "UnreadableFile"
	ErrStorageFailure    Code = "StorageFailure"
	ErrInvalidConfig     Code = "InvalidConfig"

	// Classification: the file is skipped.
	ErrNotEdgeHeader      Code = "NotEdgeHeader"
	ErrUnresolvedEndpoint Code = "UnresolvedEndpoint"

	// Data integrity: the table is rejected.
	ErrNullIdentifier    Code = "NullIdentifier"
	ErrMissingIdentifier Code = "MissingIdentifier"
	ErrTypeMismatch      Code = "TypeMismatch"
	ErrMalformedRow      Code = "MalformedRow"
	ErrSchemaConflict    Code = "SchemaConflict"
	ErrEmptyLabel        Code = "EmptyLabel"
)

var integrityCodes = []Code{
	ErrNullIdentifier,
	ErrMissingIdentifier,
	ErrTypeMismatch,
	ErrMalformedRow,
	ErrSchemaConflict,
}

// New returns a coded error carrying a stack trace.
func New(code Code, message string) error {
	return errors.WithStack(codedError{
		Code:    code,
		Message: message,
	})
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...interface{}) error {
	return New(code, fmt.Sprintf(format, args...))
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func Cause(err error) error {
	return errors.Cause(err)
}

func Errorf(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}

// Is reports whether any error in err's chain carries the given code.
func Is(err error, target Code) bool {
	match := codedError{
		Code: target,
	}
	return errors.Is(err, match)
}

// IsDataIntegrity reports whether err is one of the data-integrity failures
// (null or missing identifier, type mismatch, malformed row, schema conflict).
func IsDataIntegrity(err error) bool {
	for _, c := range integrityCodes {
		if Is(err, c) {
			return true
		}
	}
	return false
}

// CodeOf returns the code of the first coded error in err's chain, or
// ErrUncoded.
func CodeOf(err error) Code {
	var ce codedError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrUncoded
}

func Unwrap(err error) error {
	return errors.Unwrap(err)
}

func WithMessage(err error, message string) error {
	return errors.WithMessage(err, message)
}

func WithMessagef(err error, format string, args ...interface{}) error {
	return errors.WithMessagef(err, format, args...)
}

func WithStack(err error) error {
	return errors.WithStack(err)
}

func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

func Wrapf(err error, fmt string, args ...interface{}) error {
	return errors.Wrapf(err, fmt, args...)
}

type codedError struct {
	Code    Code
	Message string
}

func (ce codedError) Error() string {
	return ce.Message
}

func (ce codedError) Is(err error) bool {
	if e, ok := err.(codedError); ok && ce.Code == e.Code {
		return true
	}
	return false
}
