// Package errs defines the error-code taxonomy surfaced to callers of the
// reservation engine (spec §7) and the small set of sentinel errors the
// core components use to distinguish terminal domain failures from
// transient infrastructure failures.
package errs

import (
	"errors"
	"fmt"
)

// Code is one of the outcome codes in the reject-cache entry and the
// taxonomy in spec §6.
type Code string

const (
	Success                  Code = "SUCCESS"
	OutOfStock               Code = "OUT_OF_STOCK"
	UserAlreadyPurchased     Code = "USER_ALREADY_PURCHASED"
	UserHasActiveReservation Code = "USER_HAS_ACTIVE_RESERVATION"
	DuplicateRequest         Code = "DUPLICATE_REQUEST"
	InvalidRequest           Code = "INVALID_REQUEST"
	ProcessingError          Code = "PROCESSING_ERROR"
	Timeout                  Code = "TIMEOUT"
	CannotConfirm            Code = "CANNOT_CONFIRM"
)

// DomainError is a user-visible rejection: it carries no reservation row
// and is safe to hand straight back to the caller. It is never retried
// automatically.
type DomainError struct {
	Code    Code
	Message string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code Code, msg string) *DomainError {
	return &DomainError{Code: code, Message: msg}
}

func Newf(code Code, format string, args ...any) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsDomainError unwraps err looking for a *DomainError, the same way
// callers would use errors.As directly; it exists so call sites read as
// a single check rather than declaring the target variable inline.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	ok := errors.As(err, &de)
	return de, ok
}

// Transient marks an infrastructure failure (log publish, cache
// unreachable, DB unavailable) that callers may retry with backoff. It is
// distinct from DomainError: a transient error says nothing about whether
// the underlying operation will ultimately succeed or fail.
type Transient struct {
	Op  string
	Err error
}

func (e *Transient) Error() string {
	return fmt.Sprintf("transient error during %s: %v", e.Op, e.Err)
}

func (e *Transient) Unwrap() error {
	return e.Err
}

func Transientf(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Transient{Op: op, Err: err}
}
