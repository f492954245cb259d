// Package domain provides the shared task-tree types for taskgraph: the
// typed representation of a running workflow instance and the reusable
// definitions it is built from (§3). All JSON field names use the
// lower-camel-case spelling used by the reference syntax in §4.B/§6
// ("$[tasks.a.parameters.x]"), so field and JSON tag names match.
//
// This package follows the teacher's import discipline:
//   - CAN import: internal/constants, internal/errors, standard library
//   - MUST NOT import: internal/engine, internal/store, internal/handler
package domain

import "time"

// Task is a single node in a workflow instance's tree (§3).
type Task struct {
	// Status is the task's current lifecycle state.
	Status string `json:"status,omitempty" yaml:"status,omitempty"`

	// Handler is the opaque identifier resolved by the Handler Invoker
	// (§4.D). A task with no handler is a pure container/gate.
	Handler string `json:"handler,omitempty" yaml:"handler,omitempty"`

	// Parameters is the arbitrary value tree passed to, and possibly
	// mutated by, the handler.
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`

	// Tasks holds this task's children, in the same shape as the parent.
	Tasks *TaskMap `json:"tasks,omitempty" yaml:"tasks,omitempty"`

	// Blocking controls whether later siblings open in the same pass
	// (§4.E). Coerced from bool, string, or number at decode time.
	Blocking Blocking `json:"blocking,omitempty" yaml:"blocking,omitempty"`

	// SkipIf, evaluated just before dispatch, skips the handler while
	// still completing the task.
	SkipIf bool `json:"skipIf,omitempty" yaml:"skipIf,omitempty"`

	// ErrorIf, evaluated just before dispatch, skips the handler and
	// fails the task.
	ErrorIf bool `json:"errorIf,omitempty" yaml:"errorIf,omitempty"`

	// IgnoreError converts a handler-reported error into a successful
	// completion.
	IgnoreError bool `json:"ignoreError,omitempty" yaml:"ignoreError,omitempty"`

	// TimeOpened, TimeStarted and TimeCompleted are timestamps stamped by
	// the scheduler as the task moves through its lifecycle.
	TimeOpened    *time.Time `json:"timeOpened,omitempty" yaml:"timeOpened,omitempty"`
	TimeStarted   *time.Time `json:"timeStarted,omitempty" yaml:"timeStarted,omitempty"`
	TimeCompleted *time.Time `json:"timeCompleted,omitempty" yaml:"timeCompleted,omitempty"`

	// HandlerDuration and TotalDuration record timing in milliseconds.
	HandlerDuration int64 `json:"handlerDuration,omitempty" yaml:"handlerDuration,omitempty"`
	TotalDuration   int64 `json:"totalDuration,omitempty" yaml:"totalDuration,omitempty"`

	// HandlerExecuted is true iff the handler actually ran (as opposed to
	// being skipped by skipIf/errorIf/absence).
	HandlerExecuted bool `json:"handlerExecuted,omitempty" yaml:"handlerExecuted,omitempty"`

	// ErrorMsg is populated when the task transitions to the error status.
	ErrorMsg string `json:"errorMsg,omitempty" yaml:"errorMsg,omitempty"`
}

// Clone returns a deep copy of t, including its children. Used by the
// Execution Driver (§4.F) to guarantee no shared mutation with the
// caller's instance and by the Reference Resolver when it needs a
// read-only snapshot.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	out := *t
	out.Parameters = cloneParameters(t.Parameters)
	out.Tasks = t.Tasks.Clone()
	if t.TimeOpened != nil {
		v := *t.TimeOpened
		out.TimeOpened = &v
	}
	if t.TimeStarted != nil {
		v := *t.TimeStarted
		out.TimeStarted = &v
	}
	if t.TimeCompleted != nil {
		v := *t.TimeCompleted
		out.TimeCompleted = &v
	}
	return &out
}

// cloneParameters deep-copies a parameters map, preserving nil vs empty.
func cloneParameters(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue deep-copies a JSON-shaped value tree (map[string]any,
// []any, or a scalar) so handlers and reference resolution never share
// storage with a previous snapshot.
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if val == nil {
			return nil
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}
