// Package domain defines the data model shared by every seed package: the
// event envelope, task and actor records, and the closed error taxonomy.
package domain

import "errors"

// Kind is the closed set of error categories the system produces. Every
// error returned across a package boundary wraps one of these via %w so
// callers can test with errors.Is.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindPathEscape  Kind = "path_escape"
	KindInvalidPath Kind = "invalid_path"
	KindConflict    Kind = "conflict"
	KindLockTimeout Kind = "lock_timeout"
	KindAborted     Kind = "aborted"
	KindTimeout     Kind = "timeout"
	KindTransport   Kind = "transport"
)

var (
	ErrValidation  = &Error{Kind: KindValidation, msg: "validation failed"}
	ErrNotFound    = &Error{Kind: KindNotFound, msg: "not found"}
	ErrPathEscape  = &Error{Kind: KindPathEscape, msg: "path escapes scope root"}
	ErrInvalidPath = &Error{Kind: KindInvalidPath, msg: "invalid path"}
	ErrConflict    = &Error{Kind: KindConflict, msg: "conflict"}
	ErrLockTimeout = &Error{Kind: KindLockTimeout, msg: "lock acquisition timed out"}
	ErrAborted     = &Error{Kind: KindAborted, msg: "aborted"}
	ErrTimeout     = &Error{Kind: KindTimeout, msg: "timed out"}
	ErrTransport   = &Error{Kind: KindTransport, msg: "transport error"}
)

// Error is a kind-tagged error. Wrap a sentinel with context via Wrap, or
// compare with errors.Is against the package-level Err* sentinels.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// Is makes every *Error with the same Kind match the bare sentinel, so
// errors.Is(wrapped, domain.ErrNotFound) works regardless of message/cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Wrap builds a new *Error of the given sentinel's kind, carrying msg and
// wrapping cause (which may be nil).
func Wrap(sentinel *Error, msg string, cause error) *Error {
	return &Error{Kind: sentinel.Kind, msg: msg, err: cause}
}

// KindOf extracts the Kind from err, walking the unwrap chain. Returns ""
// if err does not wrap a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
