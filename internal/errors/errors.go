// Package errors provides the centralized error taxonomy for taskgraph (§7).
//
// Sentinel errors are checked with errors.Is; all error messages are
// lowercase per Go convention. This package MUST NOT import any other
// internal package.
package errors

import "errors"

// Sentinel errors, one per kind in the §7 taxonomy.
var (
	// ErrValidation indicates malformed input: a missing name, an unknown
	// operator, an invalid log level, or a structurally invalid instance.
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates a requested definition or instance does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStore indicates a persistence backend I/O or connectivity failure.
	ErrStore = errors.New("store error")

	// ErrHandlerLoad indicates a task's handler identifier could not be
	// resolved to a callable handler.
	ErrHandlerLoad = errors.New("handler load error")

	// ErrHandlerReported indicates a handler returned a non-nil error.
	// Downgraded to success when the task sets ignoreError.
	ErrHandlerReported = errors.New("handler reported error")

	// ErrAlreadyCompleted indicates an update targeted an instance whose
	// status is already completed.
	ErrAlreadyCompleted = errors.New("instance already completed")

	// ErrCapability indicates the operation is unsupported by the active
	// store backend (e.g. list on the file backend).
	ErrCapability = errors.New("capability not supported")
)
