package testutil

import (
	"bufio"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// NodeServer is a loopback listener that hands every accepted connection to a
// scripted handler. It stands in for a node API endpoint in tests.
type NodeServer struct {
	Port int

	listener    net.Listener
	connections atomic.Int32
	wg          sync.WaitGroup
}

// StartNodeServer listens on 127.0.0.1 with TLS when tlsCfg is non-nil and
// serves until the test ends.
func StartNodeServer(t *testing.T, tlsCfg *tls.Config, handle func(conn net.Conn)) *NodeServer {
	t.Helper()

	var (
		ln  net.Listener
		err error
	)
	if tlsCfg != nil {
		ln, err = tls.Listen("tcp", TestHost+":0", tlsCfg)
	} else {
		ln, err = net.Listen("tcp", TestHost+":0")
	}
	require.NoError(t, err, "failed to listen")

	s := &NodeServer{
		Port:     ln.Addr().(*net.TCPAddr).Port,
		listener: ln,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.connections.Add(1)
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				defer conn.Close()
				handle(conn)
			}()
		}
	}()

	t.Cleanup(func() {
		_ = ln.Close()
		s.wg.Wait()
	})
	return s
}

// Connections returns the number of accepted connections so far.
func (s *NodeServer) Connections() int {
	return int(s.connections.Load())
}

// ReceivedRequest is a request read back from the wire by ReadRequest.
type ReceivedRequest struct {
	*http.Request
	Body []byte
}

// ReadRequest parses one HTTP/1.1 request from conn with net/http, which
// checks the client's framing independently of the client's own code.
func ReadRequest(conn net.Conn) (*ReceivedRequest, error) {
	req, err := http.ReadRequest(bufio.NewReader(conn))
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(req.Body)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &ReceivedRequest{Request: req, Body: body}, nil
}
