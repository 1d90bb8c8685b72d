package exchange

import (
	"io"

	"github.com/gaborage/nodeclient/transport"
)

// writeHeader sends the header block with a single Send. A short write without
// error is accepted.
func writeHeader(sess transport.Session, header []byte) error {
	if _, err := sess.Send(header); err != nil {
		return NewSendError("header", err)
	}
	return nil
}

// writeBody sends body in full, re-sending the unsent suffix after each
// partial write.
func writeBody(sess transport.Session, body []byte) error {
	for sent := 0; sent < len(body); {
		n, err := sess.Send(body[sent:])
		if err != nil {
			return NewSendError("body", err)
		}
		if n <= 0 {
			return NewSendError("body", io.ErrNoProgress)
		}
		sent += n
	}
	return nil
}
