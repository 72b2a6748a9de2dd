package dino

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies failures raised inside the adapter
type ErrorKind int

const (
	KindTransientStateUnavailable ErrorKind = iota
	KindSessionStale
	KindIllegalAction
	KindTransportUnavailable
	KindMalformedTelemetry
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransientStateUnavailable:
		return "transient_state_unavailable"
	case KindSessionStale:
		return "session_stale"
	case KindIllegalAction:
		return "illegal_action"
	case KindTransportUnavailable:
		return "transport_unavailable"
	case KindMalformedTelemetry:
		return "malformed_telemetry"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error carries the kind of failure along with the operation that produced it.
// Two errors match with errors.Is when their kinds are equal.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrTransientStateUnavailable = &Error{Kind: KindTransientStateUnavailable}
	ErrSessionStale              = &Error{Kind: KindSessionStale}
	ErrTransportUnavailable      = &Error{Kind: KindTransportUnavailable}

	// ErrClosed is returned by any Env call after Close
	ErrClosed = errors.New("environment closed")
)

func newError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// IsTransportUnavailable reports whether err is fatal for the environment
func IsTransportUnavailable(err error) bool {
	return errors.Is(err, ErrTransportUnavailable)
}
