package exchange

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"sync"

	"github.com/gaborage/nodeclient/transport"
)

// step is one scripted Receive result. data larger than the caller's buffer is
// handed out over several calls; err is returned with the last piece.
type step struct {
	data []byte
	err  error
}

// scriptedSession is an in-memory transport.Session driven by a receive script.
type scriptedSession struct {
	connectErr error

	// sendLimit caps the bytes accepted per Send; 0 accepts everything.
	sendLimit int
	// sendErrAt makes the n-th Send call (1-based) fail with sendErr.
	sendErrAt int
	sendErr   error
	// zeroSendAt makes the n-th Send call accept nothing without error.
	zeroSendAt int

	steps []step

	sent        bytes.Buffer
	sendCalls   int
	recvCalls   int
	recvSizes   []int
	connects    int
	closes      int
	connectedTo string
}

var _ transport.Session = (*scriptedSession)(nil)

func (s *scriptedSession) Connect(_ context.Context, host string, _ int, _ []byte) error {
	s.connects++
	s.connectedTo = host
	return s.connectErr
}

func (s *scriptedSession) Send(p []byte) (int, error) {
	s.sendCalls++
	if s.sendErrAt == s.sendCalls {
		return 0, s.sendErr
	}
	if s.zeroSendAt == s.sendCalls {
		return 0, nil
	}
	n := len(p)
	if s.sendLimit > 0 && n > s.sendLimit {
		n = s.sendLimit
	}
	s.sent.Write(p[:n])
	return n, nil
}

func (s *scriptedSession) Receive(p []byte) (int, error) {
	s.recvCalls++
	s.recvSizes = append(s.recvSizes, len(p))
	if len(s.steps) == 0 {
		return 0, io.EOF
	}
	st := &s.steps[0]
	n := copy(p, st.data)
	st.data = st.data[n:]
	if len(st.data) > 0 {
		return n, nil
	}
	err := st.err
	s.steps = s.steps[1:]
	return n, err
}

func (s *scriptedSession) Close() error {
	s.closes++
	return nil
}

// fragment splits msg into Receive steps of at most size bytes.
func fragment(msg []byte, size int) []step {
	steps := make([]step, 0, len(msg)/size+1)
	for len(msg) > 0 {
		n := min(size, len(msg))
		steps = append(steps, step{data: msg[:n]})
		msg = msg[n:]
	}
	return steps
}

// sessionFactory hands out a fresh session per attempt, built by newSession,
// and remembers all of them.
type sessionFactory struct {
	mu         sync.Mutex
	newSession func(n int) *scriptedSession
	sessions   []*scriptedSession
}

func (f *sessionFactory) dial() transport.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.newSession(len(f.sessions) + 1)
	f.sessions = append(f.sessions, s)
	return s
}

func (f *sessionFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

func okResponse(body string) []byte {
	return []byte("HTTP/1.1 200 OK\r\nContent-Type: application/json\r\nContent-Length: " +
		strconv.Itoa(len(body)) + "\r\n\r\n" + body)
}
