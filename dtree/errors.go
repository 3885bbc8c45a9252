package dtree

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies scheduler failures.
type ErrorKind int

const (
	// NoError is the kind of a nil error.
	NoError ErrorKind = iota

	// ConfigurationError reports invalid creation arguments. Nothing is left
	// allocated when it is returned.
	ConfigurationError

	// TransportError reports a failed send or receive. It is fatal to the run.
	TransportError

	// LogicError reports calls made out of lifecycle order.
	LogicError

	// UnknownError is the kind of errors that did not come from this package.
	UnknownError
)

func (k ErrorKind) String() string {
	switch k {
	case NoError:
		return "none"
	case ConfigurationError:
		return "configuration error"
	case TransportError:
		return "transport error"
	case LogicError:
		return "logic error"
	case UnknownError:
		return "unknown error"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a scheduler failure of a given kind.
type Error struct {
	kind ErrorKind
	error
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{kind, errors.Errorf(format, args...)}
}

func wrapError(kind ErrorKind, err error, format string, args ...interface{}) *Error {
	return &Error{kind, errors.Wrapf(err, format, args...)}
}

// Kind of the failure.
func (e *Error) Kind() ErrorKind {
	if e == nil {
		return NoError
	}
	return e.kind
}

func (e *Error) Error() string {
	return e.kind.String() + ": " + e.error.Error()
}

// Cause returns the underlying error so errors.Cause can reach the root.
func (e *Error) Cause() error {
	return e.error
}

// KindOf returns the kind of err, looking through wrapping.
func KindOf(err error) ErrorKind {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.kind
		}
		c, ok := err.(interface{ Cause() error })
		if !ok {
			break
		}
		err = c.Cause()
	}
	if err == nil {
		return NoError
	}
	return UnknownError
}

var (
	errDestroyed = newError(LogicError, "tree used after Destroy")
	errShutdown  = newError(LogicError, "session used after Shutdown")
)
