// Package secapi implements the core of a software-only Secure Processor
// API: a key-store subsystem and opaque-key pipeline that simulates the
// contracts a hardware security module provides, without ever handing
// callers plaintext key material.
package secapi

import (
	"errors"
	"fmt"
)

// Result is the taxonomy of outcomes every public operation returns.
type Result string

const (
	Success                 Result = "SUCCESS"
	Failure                 Result = "FAILURE"
	InvalidHandle           Result = "INVALID_HANDLE"
	InvalidParameters       Result = "INVALID_PARAMETERS"
	InvalidInputSize        Result = "INVALID_INPUT_SIZE"
	InvalidPadding          Result = "INVALID_PADDING"
	BufferTooSmall          Result = "BUFFER_TOO_SMALL"
	VerificationFailed      Result = "VERIFICATION_FAILED"
	NoSuchItem              Result = "NO_SUCH_ITEM"
	ItemAlreadyProvisioned  Result = "ITEM_ALREADY_PROVISIONED"
	ItemNonRemovable        Result = "ITEM_NON_REMOVABLE"
	UnimplementedFeature    Result = "UNIMPLEMENTED_FEATURE"
)

// Error is a structured error carrying a Result code, grounded on the
// teacher's infrastructure/errors.ServiceError shape (code + message +
// wrapped cause), minus the HTTP-status field this is a library, not a
// service.
type Error struct {
	Code    Result
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("secapi: %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("secapi: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, secapi.New(secapi.Failure, "")) style
// comparisons: any *Error target with the same Code matches.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// New creates an *Error with no wrapped cause.
func New(code Result, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an *Error that wraps an underlying cause.
func Wrap(code Result, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the Result code from an error, defaulting to Failure
// for any error that did not originate from this package.
func CodeOf(err error) Result {
	if err == nil {
		return Success
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return Failure
}

// Convenience constructors, one per taxonomy bucket used across the
// core packages.

func ErrInvalidHandle(what string) *Error {
	return New(InvalidHandle, "invalid handle: "+what)
}

func ErrInvalidParameters(reason string) *Error {
	return New(InvalidParameters, reason)
}

func ErrInvalidInputSize(reason string) *Error {
	return New(InvalidInputSize, reason)
}

func ErrInvalidPadding() *Error {
	return New(InvalidPadding, "invalid PKCS7 padding")
}

func ErrBufferTooSmall() *Error {
	return New(BufferTooSmall, "output buffer too small")
}

func ErrVerificationFailed(reason string, err error) *Error {
	return Wrap(VerificationFailed, reason, err)
}

func ErrNoSuchItem(id ObjectID) *Error {
	return New(NoSuchItem, fmt.Sprintf("no such item: %d", uint64(id)))
}

func ErrItemAlreadyProvisioned(id ObjectID) *Error {
	return New(ItemAlreadyProvisioned, fmt.Sprintf("item already provisioned: %d", uint64(id)))
}

func ErrItemNonRemovable(id ObjectID) *Error {
	return New(ItemNonRemovable, fmt.Sprintf("item not removable: %d", uint64(id)))
}

func ErrUnimplemented(feature string) *Error {
	return New(UnimplementedFeature, "unimplemented: "+feature)
}

func ErrFailure(reason string, err error) *Error {
	return Wrap(Failure, reason, err)
}
