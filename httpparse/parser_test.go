package httpparse

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okResponse = "HTTP/1.1 200 OK\r\nContent-Type: application/json\r\nContent-Length: 13\r\n\r\n{\"ok\":\"yes\"}\n"

// recorder captures parser events for assertions
type recorder struct {
	headersCalls  int
	contentLength uint64
	status        int
	body          []byte
	completed     int
	headersErr    error
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnHeadersComplete: func(p *Parser) error {
			r.headersCalls++
			r.contentLength = p.ContentLength()
			r.status = p.StatusCode()
			return r.headersErr
		},
		OnBody: func(chunk []byte) error {
			r.body = append(r.body, chunk...)
			return nil
		},
		OnMessageComplete: func() error {
			r.completed++
			return nil
		},
	}
}

func TestParserSingleChunk(t *testing.T) {
	rec := &recorder{}
	p := New(rec.callbacks())

	n, err := p.Execute([]byte(okResponse))
	require.NoError(t, err)
	assert.Equal(t, len(okResponse), n)
	assert.Equal(t, 1, rec.headersCalls)
	assert.Equal(t, uint64(13), rec.contentLength)
	assert.Equal(t, 200, rec.status)
	assert.Equal(t, "{\"ok\":\"yes\"}\n", string(rec.body))
	assert.Equal(t, 1, rec.completed)
	assert.True(t, p.Complete())
	assert.Equal(t, "application/json", p.Header("content-type"))
	assert.Equal(t, "HTTP/1.1", p.Proto())
	assert.Equal(t, "OK", p.Reason())
}

func TestParserArbitraryFragmentation(t *testing.T) {
	for _, size := range []int{1, 2, 3, 7, 16, 64} {
		t.Run(fmt.Sprintf("chunk_%d", size), func(t *testing.T) {
			rec := &recorder{}
			p := New(rec.callbacks())

			data := []byte(okResponse)
			for off := 0; off < len(data); off += size {
				end := min(off+size, len(data))
				n, err := p.Execute(data[off:end])
				require.NoError(t, err)
				require.Equal(t, end-off, n)
			}
			assert.Equal(t, "{\"ok\":\"yes\"}\n", string(rec.body))
			assert.Equal(t, 1, rec.completed)
		})
	}
}

func TestParserZeroLengthBody(t *testing.T) {
	rec := &recorder{}
	p := New(rec.callbacks())

	n, err := p.Execute([]byte("HTTP/1.1 204 No Content\r\nContent-Length: 0\r\n\r\n"))
	require.NoError(t, err)
	assert.Greater(t, n, 0)
	assert.Equal(t, 1, rec.completed)
	assert.Empty(t, rec.body)
}

func TestParserUnknownLength(t *testing.T) {
	tests := []struct {
		name    string
		headers string
	}{
		{name: "chunked", headers: "Transfer-Encoding: chunked\r\n"},
		{name: "chunked with other codings", headers: "Transfer-Encoding: gzip, Chunked\r\n"},
		{name: "chunked wins over length", headers: "Content-Length: 5\r\nTransfer-Encoding: chunked\r\n"},
		{name: "no length header", headers: "Content-Type: text/plain\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rejected := errors.New("unsupported")
			rec := &recorder{headersErr: rejected}
			p := New(rec.callbacks())

			input := "HTTP/1.1 200 OK\r\n" + tt.headers + "\r\n"
			_, err := p.Execute([]byte(input))
			assert.ErrorIs(t, err, rejected)
			assert.Equal(t, UnknownLength, rec.contentLength)
			assert.Empty(t, rec.body)
			assert.Zero(t, rec.completed)

			// the parser stays failed
			_, err = p.Execute([]byte("more"))
			assert.ErrorIs(t, err, rejected)
		})
	}
}

func TestParserBodyUntilClose(t *testing.T) {
	rec := &recorder{}
	p := New(rec.callbacks())

	_, err := p.Execute([]byte("HTTP/1.0 200 OK\r\n\r\nhello "))
	require.NoError(t, err)
	_, err = p.Execute([]byte("world"))
	require.NoError(t, err)
	assert.Zero(t, rec.completed)

	require.NoError(t, p.Finish())
	assert.Equal(t, "hello world", string(rec.body))
	assert.Equal(t, 1, rec.completed)
}

func TestParserFinishIncomplete(t *testing.T) {
	p := New(Callbacks{})
	_, err := p.Execute([]byte("HTTP/1.1 200 OK\r\nContent-Le"))
	require.NoError(t, err)
	assert.ErrorIs(t, p.Finish(), ErrIncomplete)
}

func TestParserMalformedInput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected error
	}{
		{name: "not http", input: "SSH-2.0-OpenSSH\r\n", expected: ErrInvalidStatusLine},
		{name: "http2 preface", input: "HTTP/2 200\r\n", expected: ErrInvalidStatusLine},
		{name: "short status", input: "HTTP/1.1 20 OK\r\n", expected: ErrInvalidStatusLine},
		{name: "non numeric status", input: "HTTP/1.1 abc OK\r\n", expected: ErrInvalidStatusLine},
		{name: "header without colon", input: "HTTP/1.1 200 OK\r\nbroken\r\n", expected: ErrInvalidHeader},
		{name: "folded header", input: "HTTP/1.1 200 OK\r\nA: b\r\n c\r\n", expected: ErrInvalidHeader},
		{name: "space in name", input: "HTTP/1.1 200 OK\r\nBad Name: v\r\n", expected: ErrInvalidHeader},
		{name: "negative length", input: "HTTP/1.1 200 OK\r\nContent-Length: -1\r\n", expected: ErrInvalidContentLength},
		{name: "conflicting lengths", input: "HTTP/1.1 200 OK\r\nContent-Length: 2\r\nContent-Length: 3\r\n", expected: ErrInvalidContentLength},
		{name: "length overflow", input: "HTTP/1.1 200 OK\r\nContent-Length: 99999999999999999999999\r\n", expected: ErrInvalidContentLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(Callbacks{})
			n, err := p.Execute([]byte(tt.input))
			assert.ErrorIs(t, err, tt.expected)
			assert.Less(t, n, len(tt.input))
		})
	}
}

func TestParserDuplicateEqualLengths(t *testing.T) {
	rec := &recorder{}
	p := New(rec.callbacks())
	_, err := p.Execute([]byte("HTTP/1.1 200 OK\r\nContent-Length: 2\r\nContent-Length: 2\r\n\r\n{}"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(rec.body))
}

func TestParserHeaderTooLarge(t *testing.T) {
	p := New(Callbacks{})
	_, err := p.Execute([]byte("HTTP/1.1 200 OK\r\n"))
	require.NoError(t, err)

	big := "X-Padding: " + strings.Repeat("a", MaxHeaderSize) + "\r\n"
	n, err := p.Execute([]byte(big))
	assert.ErrorIs(t, err, ErrHeaderTooLarge)
	assert.Zero(t, n)
}

func TestParserTrailingData(t *testing.T) {
	rec := &recorder{}
	p := New(rec.callbacks())

	input := "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\n{}extra"
	n, err := p.Execute([]byte(input))
	assert.ErrorIs(t, err, ErrTrailingData)
	assert.Equal(t, len(input)-len("extra"), n)
	assert.Equal(t, 1, rec.completed)
}

func TestParserCallbackAbortsBody(t *testing.T) {
	stop := errors.New("stop")
	p := New(Callbacks{
		OnBody: func([]byte) error { return stop },
	})

	input := "HTTP/1.1 200 OK\r\nContent-Length: 4\r\n\r\nbody"
	n, err := p.Execute([]byte(input))
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, len(input)-4, n)
}
