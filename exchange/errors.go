package exchange

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an exchange failure.
type ErrorKind int

const (
	// KindNullParameter indicates a required argument was missing. The
	// transport is never touched.
	KindNullParameter ErrorKind = iota + 1
	// KindConnectFailure indicates the session could not be established.
	KindConnectFailure
	// KindSendFailure indicates the transport rejected header or body bytes.
	KindSendFailure
	// KindReceiveFailure indicates the transport failed while reading the
	// response. It is the only retryable kind.
	KindReceiveFailure
	// KindProtocolFailure covers malformed, unsupported or truncated responses.
	KindProtocolFailure
	// KindFormatFailure indicates the request header could not be built.
	KindFormatFailure
)

// String returns a short name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNullParameter:
		return "null parameter"
	case KindConnectFailure:
		return "connect failure"
	case KindSendFailure:
		return "send failure"
	case KindReceiveFailure:
		return "receive failure"
	case KindProtocolFailure:
		return "protocol failure"
	case KindFormatFailure:
		return "format failure"
	default:
		return "unknown"
	}
}

// Error is the error type returned by Query.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

var _ error = (*Error)(nil)

func (e *Error) Error() string {
	msg := "exchange " + e.Kind.String()
	if e.Op != "" {
		msg += " (" + e.Op + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the exchange may be attempted again.
func (e *Error) Retryable() bool {
	return e.Kind == KindReceiveFailure
}

// NewNullParameterError reports a missing argument by name.
func NewNullParameterError(param string) *Error {
	return &Error{Kind: KindNullParameter, Op: "query", Err: fmt.Errorf("%s is required", param)}
}

// NewConnectError wraps a session setup failure.
func NewConnectError(err error) *Error {
	return &Error{Kind: KindConnectFailure, Op: "connect", Err: err}
}

// NewSendError wraps a transport write failure. op names the part being
// written ("header" or "body").
func NewSendError(op string, err error) *Error {
	return &Error{Kind: KindSendFailure, Op: op, Err: err}
}

// NewReceiveError wraps a transport read failure.
func NewReceiveError(err error) *Error {
	return &Error{Kind: KindReceiveFailure, Op: "receive", Err: err}
}

// NewProtocolError reports a response the client cannot accept.
func NewProtocolError(message string, err error) *Error {
	if err == nil {
		return &Error{Kind: KindProtocolFailure, Op: "parse", Err: errors.New(message)}
	}
	return &Error{Kind: KindProtocolFailure, Op: "parse", Err: fmt.Errorf("%s: %w", message, err)}
}

// NewFormatError reports a request header that cannot be produced.
func NewFormatError(message string) *Error {
	return &Error{Kind: KindFormatFailure, Op: "header", Err: errors.New(message)}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRetryable reports whether err belongs to the retryable receive-failure class.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return false
}
