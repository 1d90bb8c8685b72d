// Package testing provides testing utilities for nodeclient.
//
// The mocks subpackage provides a testify-based transport.Session so exchange
// behavior can be scripted byte by byte without a network:
//
//	sess := mocks.NewMockSession()
//	sess.ExpectConnect(nil)
//	sess.ExpectSendAll()
//	sess.ExpectReceive([]byte("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\n{}"))
//	sess.ExpectClose()
//
//	client, _ := exchange.NewClient(cfg, exchange.WithDialer(sess.Dialer()))
//
// In-memory OpenTelemetry providers live in observability/testing.
package testing
