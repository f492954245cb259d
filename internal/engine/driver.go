package engine

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mrz1836/taskgraph/internal/constants"
	"github.com/mrz1836/taskgraph/internal/domain"
	tgerrors "github.com/mrz1836/taskgraph/internal/errors"
	"github.com/mrz1836/taskgraph/internal/store"
)

// Driver is the Execution Driver (§4.F): it owns clone/validate/id
// assignment around one Scheduler, and the injection-merge logic that
// lets a paused instance resume via Update.
type Driver struct {
	store     store.Store
	scheduler *Scheduler
}

// NewDriver returns a Driver backed by st and scheduler.
func NewDriver(st store.Store, scheduler *Scheduler) *Driver {
	return &Driver{store: st, scheduler: scheduler}
}

// Execute runs inst to completion, pause, or error (§4.F):
//  1. deep-clone so the caller never shares mutable state with the run,
//  2. snapshot the process environment and assign an id, both exactly
//     once per instance lifetime,
//  3. default every unset task status to waiting,
//  4. run pre workflow (if present), then the main tree, then post
//     workflow — post still runs when the main tree ends in error, just
//     not when persistence itself failed.
func (d *Driver) Execute(ctx context.Context, inst *domain.WorkflowInstance) (*domain.WorkflowInstance, error) {
	root := inst.Clone()
	if root.Environment == nil {
		root.Environment = snapshotEnvironment()
	}
	if root.ID == "" {
		root.ID = uuid.NewString()
	}
	validateDefaultStatuses(root)

	if err := d.scheduler.runHook(ctx, root, root.PreWorkflow, "pre workflow"); err != nil {
		if errors.Is(err, errHookPaused) {
			return root, nil
		}
		return root, err
	}

	root, runErr := d.scheduler.RunPass(ctx, root)
	if runErr != nil && errors.Is(runErr, tgerrors.ErrStore) {
		return root, runErr
	}

	if hookErr := d.scheduler.runHook(ctx, root, root.PostWorkflow, "post workflow"); hookErr != nil {
		if errors.Is(hookErr, errHookPaused) {
			return root, nil
		}
		if runErr != nil {
			return root, runErr
		}
		return root, hookErr
	}

	return root, runErr
}

// Update implements §4.F's update(id, tasks): load the current instance,
// reject it if already completed, merge each named injection into the
// first matching task found by a depth-first insertion-order scan
// (names not found are silently ignored), and re-enter Execute so a
// paused task resumes.
func (d *Driver) Update(ctx context.Context, id string, updates *domain.TaskMap) (*domain.WorkflowInstance, error) {
	current, err := d.store.LoadInstance(ctx, id, 0)
	if err != nil {
		return nil, err
	}

	if current.Status == constants.InstanceStatusCompleted.String() {
		return current, tgerrors.Wrap(tgerrors.ErrAlreadyCompleted, "instance "+id)
	}

	updates.Range(func(name string, injected *domain.Task) bool {
		if target, ok := domain.Find(current.Tasks, name); ok {
			mergeInjectedTask(target, injected)
		}
		return true
	})

	return d.Execute(ctx, current)
}

// mergeInjectedTask replaces exactly the fields §4.F.2 names (parameters,
// status, errorIf, skipIf, child tasks) and stamps timeCompleted /
// totalDuration on the merge itself, as specified; the scheduler
// overwrites these timing fields again once the resumed task actually
// finishes.
func mergeInjectedTask(target, injected *domain.Task) {
	target.Parameters = injected.Parameters
	target.Status = injected.Status
	target.ErrorIf = injected.ErrorIf
	target.SkipIf = injected.SkipIf
	target.Tasks = injected.Tasks

	now := time.Now().UTC()
	target.TimeCompleted = &now
	if target.TimeStarted != nil {
		target.TotalDuration = now.Sub(*target.TimeStarted).Milliseconds()
	}
}

// snapshotEnvironment captures the process environment as a plain map,
// addressable via "$[environment.NAME]" (§4.B).
func snapshotEnvironment() map[string]string {
	entries := os.Environ()
	out := make(map[string]string, len(entries))
	for _, kv := range entries {
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			out[kv[:idx]] = kv[idx+1:]
		}
	}
	return out
}

// validateDefaultStatuses assigns status=waiting to any task lacking a
// status, across the main tree and both workflow hooks (§4.F.4).
func validateDefaultStatuses(root *domain.WorkflowInstance) {
	assignSubtreeDefaults(root.PreWorkflow)
	domain.Walk(root.Tasks, true, func(_ []string, t *domain.Task) bool {
		assignDefaultStatus(t)
		return true
	})
	assignSubtreeDefaults(root.PostWorkflow)
}

func assignSubtreeDefaults(t *domain.Task) {
	if t == nil {
		return
	}
	assignDefaultStatus(t)
	domain.Walk(t.Tasks, true, func(_ []string, child *domain.Task) bool {
		assignDefaultStatus(child)
		return true
	})
}

func assignDefaultStatus(t *domain.Task) {
	if t != nil && t.Status == "" {
		t.Status = constants.TaskStatusWaiting.String()
	}
}
