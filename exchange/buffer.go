package exchange

import (
	"errors"
	"fmt"
)

// Buffer accumulates a response body. Its capacity is fixed once per attempt
// from the declared Content-Length and writes never exceed it.
//
// A Buffer is not safe for concurrent use; give each Query its own.
type Buffer struct {
	data       []byte
	offset     int
	allocated  bool
	statusCode int
}

// Bytes returns the body received so far. The slice aliases the buffer and is
// valid until the next Reset or Query.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.offset]
}

// String returns the body received so far as a string.
func (b *Buffer) String() string {
	return string(b.Bytes())
}

// Len returns the number of body bytes written.
func (b *Buffer) Len() int {
	return b.offset
}

// Cap returns the allocated body capacity, 0 before allocation.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Allocated reports whether the body capacity has been fixed.
func (b *Buffer) Allocated() bool {
	return b.allocated
}

// StatusCode returns the HTTP status code of the last parsed response, 0 if
// no status line was read.
func (b *Buffer) StatusCode() int {
	return b.statusCode
}

// Reset discards the body and releases its storage.
func (b *Buffer) Reset() {
	b.data = nil
	b.offset = 0
	b.allocated = false
	b.statusCode = 0
}

func (b *Buffer) allocate(n, limit int) error {
	if b.allocated {
		return fmt.Errorf("body already allocated with %d bytes", len(b.data))
	}
	if n < 0 || (limit > 0 && n > limit) {
		return fmt.Errorf("content length %d exceeds limit %d", n, limit)
	}
	b.data = make([]byte, n)
	b.offset = 0
	b.allocated = true
	return nil
}

func (b *Buffer) append(p []byte) error {
	if !b.allocated {
		return errors.New("body received before allocation")
	}
	if len(p) > len(b.data)-b.offset {
		return fmt.Errorf("body overflow: %d bytes into %d remaining", len(p), len(b.data)-b.offset)
	}
	b.offset += copy(b.data[b.offset:], p)
	return nil
}
