// Package testutil provides shared constants and helpers for testing across nodeclient.
// These constants eliminate repeated string literals in test files and ensure consistency.
package testutil

// Test Node Configuration
//
// These constants define the node endpoint used by configuration and exchange tests.

const (
	// TestHost is the loopback address test servers listen on.
	TestHost = "127.0.0.1"

	// TestPath is the node API path used in request header tests.
	TestPath = "/"

	// TestAPIVersion is the API version sent in the version header.
	TestAPIVersion = 1
)

// Test Payloads
//
// These constants define the node commands used as request bodies.

const (
	// TestGetNodeInfo is the getNodeInfo command body.
	TestGetNodeInfo = `{"command":"getNodeInfo"}`

	// TestEmptyJSON is the smallest valid JSON response body.
	TestEmptyJSON = `{}`
)

// Test Error Messages

const (
	// TestError is a generic error message for test error scenarios.
	TestError = "test error"

	// TestConnectionRefused is the common network error message for connection failures.
	TestConnectionRefused = "connection refused"
)
