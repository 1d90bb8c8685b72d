// Package httpparse provides an incremental HTTP/1.1 response parser.
// The parser consumes arbitrarily sized byte chunks and reports structural
// events (headers complete, body data, message complete) through callbacks,
// so a response never has to be held in memory as a whole.
package httpparse

import (
	"bytes"
	"errors"
	"math"
	"net/textproto"
	"strconv"
	"strings"
)

const (
	// UnknownLength is reported by ContentLength when the response is not
	// length-delimited (chunked encoding or no Content-Length header).
	UnknownLength uint64 = math.MaxUint64

	// MaxHeaderSize caps the status line plus header block, in bytes.
	MaxHeaderSize = 80 * 1024
)

// Parse errors. Execute wraps callback errors unchanged.
var (
	ErrInvalidStatusLine    = errors.New("httpparse: invalid status line")
	ErrInvalidHeader        = errors.New("httpparse: invalid header line")
	ErrInvalidContentLength = errors.New("httpparse: invalid content length")
	ErrHeaderTooLarge       = errors.New("httpparse: header block too large")
	ErrTrailingData         = errors.New("httpparse: data after message complete")
	ErrIncomplete           = errors.New("httpparse: message incomplete")
)

// Callbacks receives parser events. Any non-nil error returned by a callback
// aborts parsing; Execute then reports that error.
type Callbacks struct {
	// OnHeadersComplete fires once the header block has been read.
	// ContentLength, StatusCode and Header are valid from this point on.
	OnHeadersComplete func(p *Parser) error
	// OnBody receives body bytes. The slice aliases the caller's input and
	// must be copied if retained.
	OnBody func(chunk []byte) error
	// OnMessageComplete fires once the full body has been delivered.
	OnMessageComplete func() error
}

type state int

const (
	stateStatusLine state = iota
	stateHeaders
	stateBody
	stateBodyUntilClose
	stateDone
	stateFailed
)

// Parser is a single-use incremental response parser. It is not safe for
// concurrent use.
type Parser struct {
	cb    Callbacks
	state state
	err   error

	line        []byte
	headerBytes int

	proto      string
	statusCode int
	reason     string
	header     textproto.MIMEHeader

	contentLength uint64
	hasLength     bool
	chunked       bool
	remaining     uint64
}

// New returns a parser ready to consume the first byte of a response.
func New(cb Callbacks) *Parser {
	return &Parser{
		cb:            cb,
		header:        make(textproto.MIMEHeader),
		contentLength: UnknownLength,
	}
}

// StatusCode returns the parsed response status code (0 before the status line).
func (p *Parser) StatusCode() int { return p.statusCode }

// Reason returns the status line reason phrase.
func (p *Parser) Reason() string { return p.reason }

// Proto returns the protocol version from the status line, e.g. "HTTP/1.1".
func (p *Parser) Proto() string { return p.proto }

// Header returns the first value of the named response header.
func (p *Parser) Header(name string) string { return p.header.Get(name) }

// ContentLength returns the declared body length, or UnknownLength when the
// body is chunked or not length-delimited.
func (p *Parser) ContentLength() uint64 {
	if p.chunked || !p.hasLength {
		return UnknownLength
	}
	return p.contentLength
}

// Complete reports whether the message-complete event has fired.
func (p *Parser) Complete() bool { return p.state == stateDone }

// Execute feeds data into the parser and returns the number of bytes consumed.
// On error the returned count is the offset at which parsing stopped, so it is
// always less than len(data) unless the error came from a callback fired at
// the very end of the input.
func (p *Parser) Execute(data []byte) (int, error) {
	if p.state == stateFailed {
		return 0, p.err
	}

	i := 0
	for i < len(data) {
		switch p.state {
		case stateStatusLine, stateHeaders:
			n, err := p.consumeLine(data[i:])
			if err != nil {
				return i, err
			}
			i += n

		case stateBody:
			n := uint64(len(data) - i)
			if n > p.remaining {
				n = p.remaining
			}
			chunk := data[i : i+int(n)]
			if err := p.emitBody(chunk); err != nil {
				return i, err
			}
			i += int(n)
			p.remaining -= n
			if p.remaining == 0 {
				if err := p.complete(); err != nil {
					return i, err
				}
			}

		case stateBodyUntilClose:
			if err := p.emitBody(data[i:]); err != nil {
				return i, err
			}
			i = len(data)

		case stateDone:
			return i, ErrTrailingData
		}
	}
	return i, nil
}

// Finish signals end of input. A body delimited by connection close completes
// here; any other unfinished message yields ErrIncomplete.
func (p *Parser) Finish() error {
	switch p.state {
	case stateDone:
		return nil
	case stateBodyUntilClose:
		return p.complete()
	case stateFailed:
		return p.err
	default:
		return p.fail(ErrIncomplete)
	}
}

// consumeLine reads at most one CRLF-terminated line from data. It returns the
// number of bytes taken; partial lines are buffered.
func (p *Parser) consumeLine(data []byte) (int, error) {
	idx := bytes.IndexByte(data, '\n')
	if idx < 0 {
		if p.headerBytes+len(data) > MaxHeaderSize {
			return 0, p.fail(ErrHeaderTooLarge)
		}
		p.line = append(p.line, data...)
		p.headerBytes += len(data)
		return len(data), nil
	}

	seg := data[:idx+1]
	if p.headerBytes+len(seg) > MaxHeaderSize {
		return 0, p.fail(ErrHeaderTooLarge)
	}
	p.headerBytes += len(seg)

	line := seg
	if len(p.line) > 0 {
		p.line = append(p.line, seg...)
		line = p.line
	}
	text := string(bytes.TrimRight(line, "\r\n"))
	p.line = p.line[:0]

	var err error
	if p.state == stateStatusLine {
		err = p.parseStatusLine(text)
	} else {
		err = p.parseHeaderLine(text)
	}
	if err != nil {
		return 0, err
	}
	return len(seg), nil
}

func (p *Parser) parseStatusLine(line string) error {
	proto, rest, ok := strings.Cut(line, " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/1.") || len(proto) != len("HTTP/1.1") {
		return p.fail(ErrInvalidStatusLine)
	}
	code, reason, _ := strings.Cut(rest, " ")
	if len(code) != 3 {
		return p.fail(ErrInvalidStatusLine)
	}
	status, err := strconv.Atoi(code)
	if err != nil || status < 100 {
		return p.fail(ErrInvalidStatusLine)
	}

	p.proto = proto
	p.statusCode = status
	p.reason = reason
	p.state = stateHeaders
	return nil
}

func (p *Parser) parseHeaderLine(line string) error {
	if line == "" {
		return p.headersComplete()
	}
	// obsolete line folding is rejected, as RFC 9112 allows for clients
	if line[0] == ' ' || line[0] == '\t' {
		return p.fail(ErrInvalidHeader)
	}
	name, value, ok := strings.Cut(line, ":")
	if !ok || name == "" || strings.ContainsAny(name, " \t") {
		return p.fail(ErrInvalidHeader)
	}
	value = strings.TrimSpace(value)
	key := textproto.CanonicalMIMEHeaderKey(name)
	p.header.Add(key, value)

	switch key {
	case "Content-Length":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil || n == UnknownLength {
			return p.fail(ErrInvalidContentLength)
		}
		if p.hasLength && n != p.contentLength {
			return p.fail(ErrInvalidContentLength)
		}
		p.contentLength = n
		p.hasLength = true
	case "Transfer-Encoding":
		for _, coding := range strings.Split(value, ",") {
			if strings.EqualFold(strings.TrimSpace(coding), "chunked") {
				p.chunked = true
			}
		}
	}
	return nil
}

func (p *Parser) headersComplete() error {
	length := p.ContentLength()

	if p.cb.OnHeadersComplete != nil {
		if err := p.cb.OnHeadersComplete(p); err != nil {
			return p.fail(err)
		}
	}

	switch {
	case length == UnknownLength:
		p.state = stateBodyUntilClose
	case length == 0:
		return p.complete()
	default:
		p.remaining = length
		p.state = stateBody
	}
	return nil
}

func (p *Parser) emitBody(chunk []byte) error {
	if p.cb.OnBody == nil || len(chunk) == 0 {
		return nil
	}
	if err := p.cb.OnBody(chunk); err != nil {
		return p.fail(err)
	}
	return nil
}

func (p *Parser) complete() error {
	p.state = stateDone
	if p.cb.OnMessageComplete != nil {
		if err := p.cb.OnMessageComplete(); err != nil {
			return p.fail(err)
		}
	}
	return nil
}

func (p *Parser) fail(err error) error {
	p.state = stateFailed
	p.err = err
	return err
}
