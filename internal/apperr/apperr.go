// Package apperr classifies failures so callers can tell a missing task from
// an unreachable calendar, a failed write or a missing credential.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the class of an error
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindExternalService
	KindPersistence
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindExternalService:
		return "external service error"
	case KindPersistence:
		return "persistence error"
	case KindConfiguration:
		return "configuration error"
	default:
		return "unknown error"
	}
}

// Sentinels for errors.Is
var (
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrExternalService = &Error{Kind: KindExternalService}
	ErrPersistence     = &Error{Kind: KindPersistence}
	ErrConfiguration   = &Error{Kind: KindConfiguration}
)

// Error is a classified error. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrPersistence) works
// on wrapped values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// NotFound wraps err as a not-found error for op
func NotFound(op string, err error) error { return &Error{Kind: KindNotFound, Op: op, Err: err} }

// External wraps err as a calendar/upstream failure for op
func External(op string, err error) error {
	return &Error{Kind: KindExternalService, Op: op, Err: err}
}

// Persistence wraps err as a store failure for op
func Persistence(op string, err error) error {
	return &Error{Kind: KindPersistence, Op: op, Err: err}
}

// Configuration wraps err as a missing or invalid setting for op
func Configuration(op string, err error) error {
	return &Error{Kind: KindConfiguration, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or 0
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
