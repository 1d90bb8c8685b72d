package transport

import (
	"errors"
	"fmt"
)

// ErrorKind classifies transport failures.
type ErrorKind int

const (
	DNSFailure ErrorKind = iota + 1
	ConnectFailure
	HandshakeFailure
	CertificateFailure
	WriteFailure
	ReadFailure
	ConnectionClosed
	CloseFailure
	InitFailure
)

func (k ErrorKind) String() string {
	switch k {
	case DNSFailure:
		return "dns lookup failed"
	case ConnectFailure:
		return "connect failed"
	case HandshakeFailure:
		return "tls handshake failed"
	case CertificateFailure:
		return "invalid ca certificate"
	case WriteFailure:
		return "write failed"
	case ReadFailure:
		return "read failed"
	case ConnectionClosed:
		return "connection closed"
	case CloseFailure:
		return "close failed"
	case InitFailure:
		return "initialization failed"
	default:
		return fmt.Sprintf("unknown transport error %d", int(k))
	}
}

// ErrNotConnected is returned by Send and Receive on a session that is not connected.
var ErrNotConnected = errors.New("not connected")

// Error is a classified transport failure.
type Error struct {
	Kind ErrorKind
	Addr string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Addr != "" && e.Err != nil:
		return fmt.Sprintf("transport error: %s (%s): %v", e.Kind, e.Addr, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("transport error: %s: %v", e.Kind, e.Err)
	case e.Addr != "":
		return fmt.Sprintf("transport error: %s (%s)", e.Kind, e.Addr)
	default:
		return "transport error: " + e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, addr string, err error) *Error {
	return &Error{Kind: kind, Addr: addr, Err: err}
}

// KindOf returns the kind of the first transport Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return 0
}
