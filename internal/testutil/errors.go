// Package testutil provides mock errors shared across this module's test
// files, so a simulated failure reads the same way no matter which
// package's tests raise it.
//
// It should only be imported by test files (*_test.go).
package testutil

import "errors"

// Mock errors for simulating failure scenarios in tests.
var (
	// ErrMockHandlerLoad simulates a Loader failing to resolve a handler id.
	ErrMockHandlerLoad = errors.New("mock handler load failure")

	// ErrMockStoreUnavailable simulates a backend connectivity failure.
	ErrMockStoreUnavailable = errors.New("mock store unavailable")
)
