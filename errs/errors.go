// Package errs defines the error taxonomy shared by the block resolver and
// the chain client. Every failure surfaces as exactly one kind so callers can
// branch on the outcome instead of parsing messages.
package errs

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	// KindConnection: the underlying chain call failed. Never retried here.
	KindConnection Kind = iota + 1
	// KindNotFound: the requested block does not exist (beyond head, or the
	// hash lookup returned nothing).
	KindNotFound
	// KindTooFar: the requested number is further behind head than the
	// traversal budget allows; use the hash-based lookup instead.
	KindTooFar
	// KindInvalidInput: malformed caller input, e.g. a hash that is not
	// 32 hex-encoded bytes.
	KindInvalidInput
	// KindCancelled: the caller's context expired before the call finished.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindNotFound:
		return "not found"
	case KindTooFar:
		return "too far"
	case KindInvalidInput:
		return "invalid input"
	case KindCancelled:
		return "cancelled"
	}
	return "unknown"
}

type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

func (e *Error) Kind() Kind { return e.kind }

func (e *Error) Unwrap() error { return e.err }

func newError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

func Connection(err error, format string, args ...interface{}) *Error {
	return newError(KindConnection, err, format, args...)
}

func NotFound(err error, format string, args ...interface{}) *Error {
	return newError(KindNotFound, err, format, args...)
}

func TooFar(err error, format string, args ...interface{}) *Error {
	return newError(KindTooFar, err, format, args...)
}

func InvalidInput(err error, format string, args ...interface{}) *Error {
	return newError(KindInvalidInput, err, format, args...)
}

func Cancelled(err error, format string, args ...interface{}) *Error {
	return newError(KindCancelled, err, format, args...)
}

// IsKind reports whether any error in err's chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.kind == kind
}
