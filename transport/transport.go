// Package transport provides the session abstraction used to exchange bytes
// with a node: connect (optionally over TLS with CA verification), blocking
// send, blocking receive, and close.
package transport

import (
	"context"
	"crypto/tls"
	"time"
)

// Session is a single point-to-point connection. A Session is used for one
// exchange attempt and is not safe for concurrent use.
type Session interface {
	// Connect dials host:port. caPEM, when non-empty, replaces the system
	// roots for server certificate verification.
	Connect(ctx context.Context, host string, port int, caPEM []byte) error

	// Send writes p and returns the number of bytes accepted.
	Send(p []byte) (int, error)

	// Receive reads at most len(p) bytes. A clean close by the peer is
	// reported as io.EOF.
	Receive(p []byte) (int, error)

	// Close releases the connection. It is idempotent.
	Close() error
}

// Dialer returns a fresh, unconnected Session.
type Dialer func() Session

// Config holds connection settings shared by all sessions a Dialer creates.
// Zero timeouts mean "no deadline"; liveness then depends on the peer and on
// TCP keepalive.
type Config struct {
	TLS           bool
	MinTLSVersion uint16
	DialTimeout   time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	KeepAlive     time.Duration
}

// DefaultConfig returns TLS-enabled settings with conservative timeouts.
func DefaultConfig() Config {
	return Config{
		TLS:           true,
		MinTLSVersion: tls.VersionTLS12,
		DialTimeout:   10 * time.Second,
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  30 * time.Second,
		KeepAlive:     30 * time.Second,
	}
}

// NewDialer returns a Dialer producing NetSessions configured by cfg.
func NewDialer(cfg Config) Dialer {
	return func() Session {
		return NewNetSession(cfg)
	}
}
