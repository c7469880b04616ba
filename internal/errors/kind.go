package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a failure so callers can decide how to surface it
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation covers weak credentials and missing required fields
	KindValidation
	// KindConflict covers a username that is already taken
	KindConflict
	// KindAuth covers invalid credentials and invalid sessions
	KindAuth
	// KindStorage covers I/O failures reading or writing persisted documents
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuth:
		return "auth"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error is a classified error. Msg is safe to show to the user; Err, when
// set, carries the underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Msg
	case e.Msg == "":
		return e.Err.Error()
	default:
		return e.Msg + ": " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrInvalidCredentials is returned for both unknown users and wrong
// passwords so the message never reveals which one it was.
var ErrInvalidCredentials = &Error{Kind: KindAuth, Msg: "invalid username or password"}

// Validation returns a validation error with the given message
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Msg: msg}
}

// Validationf returns a validation error with a formatted message
func Validationf(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Conflict returns a conflict error with the given message
func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Msg: msg}
}

// Auth returns an authentication error with the given message
func Auth(msg string) error {
	return &Error{Kind: KindAuth, Msg: msg}
}

// Storage wraps an I/O failure. A nil err yields nil.
func Storage(msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindStorage, Msg: msg, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsConflict(err error) bool   { return KindOf(err) == KindConflict }
func IsAuth(err error) bool       { return KindOf(err) == KindAuth }
func IsStorage(err error) bool    { return KindOf(err) == KindStorage }
