package mocks

import (
	"context"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/gaborage/nodeclient/transport"
)

// MockSession provides a testify-based mock implementation of transport.Session.
// The Expect helpers cover the common scripts; On can be used directly for anything else.
//
// Example usage:
//
//	sess := mocks.NewMockSession()
//	sess.ExpectConnect(nil)
//	sess.On("Send", mock.Anything).Return(0, errors.New("broken pipe")).Once()
//	sess.ExpectClose()
type MockSession struct {
	mock.Mock

	dials atomic.Int32
}

// NewMockSession creates a new mock session
func NewMockSession() *MockSession {
	return &MockSession{}
}

var _ transport.Session = (*MockSession)(nil)

// Connect implements transport.Session
func (m *MockSession) Connect(ctx context.Context, host string, port int, caPEM []byte) error {
	arguments := m.Called(ctx, host, port, caPEM)
	return arguments.Error(0)
}

// Send implements transport.Session
func (m *MockSession) Send(p []byte) (int, error) {
	arguments := m.Called(p)
	if fn, ok := arguments.Get(0).(func([]byte) int); ok {
		return fn(p), arguments.Error(1)
	}
	return arguments.Int(0), arguments.Error(1)
}

// Receive implements transport.Session
func (m *MockSession) Receive(p []byte) (int, error) {
	arguments := m.Called(p)
	if fn, ok := arguments.Get(0).(func([]byte) int); ok {
		return fn(p), arguments.Error(1)
	}
	return arguments.Int(0), arguments.Error(1)
}

// Close implements transport.Session
func (m *MockSession) Close() error {
	arguments := m.Called()
	return arguments.Error(0)
}

// Dialer returns a transport.Dialer that hands out this session on every call.
func (m *MockSession) Dialer() transport.Dialer {
	return func() transport.Session {
		m.dials.Add(1)
		return m
	}
}

// Dials returns how many times the Dialer was invoked.
func (m *MockSession) Dials() int {
	return int(m.dials.Load())
}

// ExpectConnect expects any number of Connect calls returning err.
func (m *MockSession) ExpectConnect(err error) *mock.Call {
	return m.On("Connect", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(err)
}

// ExpectSendAll expects any number of Send calls, each accepting the whole buffer.
func (m *MockSession) ExpectSendAll() *mock.Call {
	return m.On("Send", mock.Anything).Return(func(p []byte) int { return len(p) }, nil)
}

// ExpectReceive expects one Receive call that delivers data. data must fit
// into the caller's buffer; split larger responses across several calls.
func (m *MockSession) ExpectReceive(data []byte) *mock.Call {
	return m.On("Receive", mock.Anything).Return(func(p []byte) int { return copy(p, data) }, nil).Once()
}

// ExpectReceiveError expects one Receive call failing with err.
func (m *MockSession) ExpectReceiveError(err error) *mock.Call {
	return m.On("Receive", mock.Anything).Return(0, err).Once()
}

// ExpectClose expects any number of Close calls returning nil.
func (m *MockSession) ExpectClose() *mock.Call {
	return m.On("Close").Return(nil)
}
