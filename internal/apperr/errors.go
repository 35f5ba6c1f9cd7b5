// Package apperr classifies errors so transports can map them to
// status codes without knowing the app that produced them.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for broad classification.
var (
	ErrEmptyInput  = errors.New("input is empty")
	ErrNotFound    = errors.New("not found")
	ErrUnsupported = errors.New("unsupported file type")
	ErrTooLarge    = errors.New("input too large")
)

// Kind is a coarse-grained categorization for errors.
type Kind string

const (
	KindInvalid     Kind = "invalid"
	KindNotFound    Kind = "not_found"
	KindUnsupported Kind = "unsupported"
	KindTooLarge    Kind = "too_large"
	KindUpstream    Kind = "upstream"
	KindInternal    Kind = "internal"
)

// Error wraps an underlying error with operation context and a kind.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// E builds an *Error.
func E(op string, kind Kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Invalid is shorthand for a validation failure with a message.
func Invalid(op, format string, args ...any) error {
	return &Error{Op: op, Kind: KindInvalid, Err: fmt.Errorf(format, args...)}
}

// Upstream wraps a failure of an external service or binary.
func Upstream(op string, err error) error {
	return &Error{Op: op, Kind: KindUpstream, Err: err}
}

// KindOf returns the kind of the outermost *Error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Status maps an error to the HTTP status a handler should answer with.
func Status(err error) int {
	switch KindOf(err) {
	case KindInvalid, KindUnsupported:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the innermost meaningful message for user display.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return err.Error()
}
