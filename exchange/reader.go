package exchange

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/gaborage/nodeclient/httpparse"
	"github.com/gaborage/nodeclient/transport"
)

// DefaultReceiveWindow is the largest chunk requested from the transport per
// Receive call.
const DefaultReceiveWindow = 4096

// Status is the terminal state of a response read.
type Status int

const (
	StatusInProgress Status = iota
	StatusDone
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusInProgress:
		return "in_progress"
	case StatusDone:
		return "done"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

var errUnsupportedLength = errors.New("response is not length-delimited")

// responseContext is the mutable state shared by the parser callbacks of one
// read. Done and Error are terminal.
type responseContext struct {
	buf     *Buffer
	maxBody int
	status  Status
	cause   error
}

func (rc *responseContext) fail(err error) error {
	rc.status = StatusError
	rc.cause = err
	return err
}

func (rc *responseContext) onHeadersComplete(p *httpparse.Parser) error {
	rc.buf.statusCode = p.StatusCode()

	length := p.ContentLength()
	if length == httpparse.UnknownLength {
		return rc.fail(errUnsupportedLength)
	}
	if length > math.MaxInt32 {
		return rc.fail(fmt.Errorf("content length %d is too large", length))
	}
	if err := rc.buf.allocate(int(length), rc.maxBody); err != nil {
		return rc.fail(err)
	}
	return nil
}

func (rc *responseContext) onBody(chunk []byte) error {
	if err := rc.buf.append(chunk); err != nil {
		return rc.fail(err)
	}
	return nil
}

func (rc *responseContext) onMessageComplete() error {
	if rc.status == StatusInProgress {
		rc.status = StatusDone
	}
	return nil
}

// readResponse receives and parses one response into buf. It returns as soon
// as the message is complete without waiting for the peer to close.
func readResponse(sess transport.Session, buf *Buffer, window, maxBody int) (Status, error) {
	if window <= 0 {
		window = DefaultReceiveWindow
	}
	rc := &responseContext{buf: buf, maxBody: maxBody}
	parser := httpparse.New(httpparse.Callbacks{
		OnHeadersComplete: rc.onHeadersComplete,
		OnBody:            rc.onBody,
		OnMessageComplete: rc.onMessageComplete,
	})

	chunk := make([]byte, window)
	for {
		n, err := sess.Receive(chunk)
		if n > 0 {
			consumed, perr := parser.Execute(chunk[:n])
			switch {
			case rc.status == StatusError:
				return rc.status, NewProtocolError("rejected response", rc.cause)
			case perr != nil:
				rc.status = StatusError
				return rc.status, NewProtocolError("malformed response", perr)
			case consumed < n:
				rc.status = StatusError
				return rc.status, NewProtocolError(fmt.Sprintf("parser consumed %d of %d bytes", consumed, n), nil)
			case rc.status == StatusDone:
				return rc.status, nil
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return rc.status, NewProtocolError("connection closed before response completed", io.ErrUnexpectedEOF)
			}
			return rc.status, NewReceiveError(err)
		}
		if n == 0 {
			return rc.status, NewProtocolError("transport returned no data", nil)
		}
	}
}
