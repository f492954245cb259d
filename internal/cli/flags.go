// Package cli provides the command-line interface for taskgraph.
package cli

// Exit codes for the CLI (§6: "0 success, 1 any validation or runtime
// failure" — a flat two-code surface, unlike the teacher's three-tier
// ExitInvalidInput split).
const (
	ExitSuccess = 0
	ExitError   = 1
)

// Flags holds the full §6 flag surface. It is intentionally flat: this
// CLI has no subcommands, only a single invocation shape dispatched on
// which flags are set.
type Flags struct {
	// Log is the §4.G log level (default "info").
	Log string
	// File is a path to a workflow definition (new execution) or, when
	// ID is also set, a path to a task-injection bundle (update).
	File string
	// ID is an instance id; required together with File when updating.
	ID string
	// Rewind retrieves a historical save point for ID (0 = current).
	Rewind int
	// Delete removes the single instance named by this id.
	Delete string
	// DeleteAll removes every instance.
	DeleteAll bool
}

// ExitCodeForError maps err onto the §6 exit code surface: every failure,
// validation or runtime, is ExitError. There is no separate
// invalid-input tier — the spec defines exactly two codes.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}
	return ExitError
}
