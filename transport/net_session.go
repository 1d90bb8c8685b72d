package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"strconv"
	"syscall"
	"time"
)

// NetSession implements Session over TCP, optionally wrapped in TLS.
type NetSession struct {
	cfg  Config
	conn net.Conn
	addr string
}

var _ Session = (*NetSession)(nil)

// NewNetSession creates an unconnected session.
func NewNetSession(cfg Config) *NetSession {
	return &NetSession{cfg: cfg}
}

// Connect dials the node and, when TLS is enabled, completes the handshake
// verifying the server against caPEM (or the system roots when caPEM is empty).
func (s *NetSession) Connect(ctx context.Context, host string, port int, caPEM []byte) error {
	if s.conn != nil {
		return newError(InitFailure, s.addr, errors.New("already connected"))
	}
	s.addr = net.JoinHostPort(host, strconv.Itoa(port))

	var tlsCfg *tls.Config
	if s.cfg.TLS {
		var err error
		if tlsCfg, err = s.tlsConfig(host, caPEM); err != nil {
			return err
		}
	}

	d := net.Dialer{Timeout: s.cfg.DialTimeout, KeepAlive: s.cfg.KeepAlive}
	conn, err := d.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return classifyDialError(s.addr, err)
	}

	// Disable Nagle: the header and body are written separately
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			_ = conn.Close()
			return newError(InitFailure, s.addr, err)
		}
	}

	if tlsCfg != nil {
		tlsConn := tls.Client(conn, tlsCfg)
		hctx := ctx
		if s.cfg.DialTimeout > 0 {
			var cancel context.CancelFunc
			hctx, cancel = context.WithTimeout(ctx, s.cfg.DialTimeout)
			defer cancel()
		}
		if err := tlsConn.HandshakeContext(hctx); err != nil {
			_ = conn.Close()
			return newError(HandshakeFailure, s.addr, err)
		}
		conn = tlsConn
	}

	s.conn = conn
	return nil
}

func (s *NetSession) tlsConfig(host string, caPEM []byte) (*tls.Config, error) {
	minVersion := s.cfg.MinTLSVersion
	if minVersion < tls.VersionTLS12 {
		minVersion = tls.VersionTLS12
	}
	cfg := &tls.Config{
		ServerName: host,
		MinVersion: minVersion,
	}
	if len(caPEM) > 0 {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, newError(CertificateFailure, s.addr, errors.New("no certificates found in PEM data"))
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

// Send writes p to the connection.
func (s *NetSession) Send(p []byte) (int, error) {
	if s.conn == nil {
		return 0, newError(WriteFailure, s.addr, ErrNotConnected)
	}
	if s.cfg.WriteTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			return 0, newError(WriteFailure, s.addr, err)
		}
	}

	n, err := s.conn.Write(p)
	if err != nil {
		if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
			return n, newError(ConnectionClosed, s.addr, err)
		}
		return n, newError(WriteFailure, s.addr, err)
	}
	return n, nil
}

// Receive reads into p. A clean close is returned as a bare io.EOF.
func (s *NetSession) Receive(p []byte) (int, error) {
	if s.conn == nil {
		return 0, newError(ReadFailure, s.addr, ErrNotConnected)
	}
	if s.cfg.ReadTimeout > 0 {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			return 0, newError(ReadFailure, s.addr, err)
		}
	}

	n, err := s.conn.Read(p)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return n, io.EOF
		}
		if errors.Is(err, syscall.ECONNRESET) {
			return n, newError(ConnectionClosed, s.addr, err)
		}
		return n, newError(ReadFailure, s.addr, err)
	}
	return n, nil
}

// Close closes the connection. Calling Close on a closed or never-connected
// session returns nil.
func (s *NetSession) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return newError(CloseFailure, s.addr, err)
	}
	return nil
}

func classifyDialError(addr string, err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return newError(DNSFailure, addr, err)
	}
	return newError(ConnectFailure, addr, err)
}
