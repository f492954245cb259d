// Package engine implements the Scheduler (§4.E) and Execution Driver
// (§4.F): the state machine that walks a workflow instance's task tree to
// completion across pause/resume cycles. Grounded on the teacher's
// task/engine.go (runSteps' persist-dispatch-checkpoint loop) and
// task/step_runner.go's executeParallelGroup (errgroup-based parallel
// dispatch with a mutex-guarded results slice), generalized from a flat
// step list to a recursively nested task tree.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/taskgraph/internal/constants"
	"github.com/mrz1836/taskgraph/internal/ctxutil"
	"github.com/mrz1836/taskgraph/internal/domain"
	tgerrors "github.com/mrz1836/taskgraph/internal/errors"
	"github.com/mrz1836/taskgraph/internal/handler"
	"github.com/mrz1836/taskgraph/internal/reference"
	"github.com/mrz1836/taskgraph/internal/store"
)

// errHookPaused signals that a pre/post workflow hook subtree paused
// mid-execution (§9: a blocking task that pauses keeps siblings closed
// until resume). It never escapes the package; callers translate it into
// a plain (instance, nil) return, the same way the main pass's step 2
// returns the instance as-is on a paused task.
var errHookPaused = errors.New("engine: hook paused")

// Scheduler drives one workflow instance's task tree through repeated
// passes until it pauses, errors, or completes (§4.E).
type Scheduler struct {
	store       store.Store
	invoker     *handler.Invoker
	logger      zerolog.Logger
	concurrency int
}

// NewScheduler returns a Scheduler backed by st for persistence and
// invoker for handler dispatch. concurrency bounds how many runnable
// tasks are dispatched in parallel within one batch; a non-positive
// value falls back to constants.DefaultBatchConcurrency.
func NewScheduler(st store.Store, invoker *handler.Invoker, logger zerolog.Logger, concurrency int) *Scheduler {
	if concurrency <= 0 {
		concurrency = constants.DefaultBatchConcurrency
	}
	return &Scheduler{store: st, invoker: invoker, logger: logger, concurrency: concurrency}
}

// runnable is one open task ready for dispatch: its full path from the
// instance root (for reference-resolution warnings) and its local name
// (the last path segment, passed to the Handler Invoker as taskName).
type runnable struct {
	path []string
	name string
	task *domain.Task
}

// RunPass repeatedly executes steps 1-7 of §4.E against root until the
// instance pauses, a batch fails, or every top-level task completes. It
// mutates root in place and also returns it for convenience.
func (s *Scheduler) RunPass(ctx context.Context, root *domain.WorkflowInstance) (*domain.WorkflowInstance, error) {
	// Idempotence of resume (§8): an instance whose every top-level task
	// is already completed is a no-op — no new history, no status change.
	if allTopLevelCompleted(root.Tasks) {
		root.Status = constants.InstanceStatusCompleted.String()
		return root, nil
	}

	cache, _ := lru.New[string, any](1)

	for {
		if err := ctxutil.Canceled(ctx); err != nil {
			return root, err
		}

		// Step 1: persist (save point A).
		if err := s.store.SaveInstance(ctx, root); err != nil {
			return root, tgerrors.Store("save point A: %v", err)
		}

		// Step 2: paused check.
		if anyPaused(root.Tasks) {
			root.Status = constants.InstanceStatusOpen.String()
			return root, nil
		}

		// Step 3: open the frontier.
		openFrontier(root.Tasks, time.Now().UTC())

		// Step 4: collect runnables.
		runnables := collectRunnables(root.Tasks)

		if len(runnables) == 0 {
			if allTopLevelCompleted(root.Tasks) {
				root.Status = constants.InstanceStatusCompleted.String()
			} else {
				root.Status = constants.InstanceStatusOpen.String()
			}
			if err := s.store.SaveInstance(ctx, root); err != nil {
				return root, tgerrors.Store("save point C: %v", err)
			}
			return root, nil
		}

		// Steps 5-6: prepare, dispatch, collect results.
		cache.Purge()
		if batchFailed := s.runBatch(ctx, root, runnables, cache); batchFailed {
			// Step 7, failure branch.
			root.Status = constants.InstanceStatusError.String()
			if err := s.store.SaveInstance(ctx, root); err != nil {
				return root, tgerrors.Store("save point B: %v", err)
			}
			return root, tgerrors.HandlerReported("workflow %q: batch failed", root.Name)
		}

		// Step 7, progress branch: at least one task was dispatched or
		// skipped this batch, so loop back to step 1.
	}
}

// runHook drives task (root.PreWorkflow or root.PostWorkflow, either of
// which may itself have children) through the same scheduling rules as
// any task in the main tree (§4.F: "under the same dispatch rules as a
// leaf task"), without disturbing root.Tasks. It wraps task in a
// single-entry TaskMap so it can reuse openFrontier/collectRunnables/
// runBatch unchanged.
func (s *Scheduler) runHook(ctx context.Context, root *domain.WorkflowInstance, task *domain.Task, name string) error {
	if task == nil || task.Status == constants.TaskStatusCompleted.String() {
		return nil
	}

	wrapper := domain.NewTaskMap()
	wrapper.Set(name, task)

	cache, _ := lru.New[string, any](1)

	for {
		if err := ctxutil.Canceled(ctx); err != nil {
			return err
		}

		if err := s.store.SaveInstance(ctx, root); err != nil {
			return tgerrors.Store("save point A (%s): %v", name, err)
		}

		if anyPaused(wrapper) {
			root.Status = constants.InstanceStatusOpen.String()
			return errHookPaused
		}

		openFrontier(wrapper, time.Now().UTC())

		runnables := collectRunnables(wrapper)
		if len(runnables) == 0 {
			return nil
		}

		cache.Purge()
		if batchFailed := s.runBatch(ctx, root, runnables, cache); batchFailed {
			root.Status = constants.InstanceStatusError.String()
			if err := s.store.SaveInstance(ctx, root); err != nil {
				return tgerrors.Store("save point B (%s): %v", name, err)
			}
			return tgerrors.HandlerReported("%s: batch failed", name)
		}
	}
}

// runBatch implements steps 5 and 6 for one collected set of runnables:
// resolve references, evaluate the skipIf/errorIf/absent-handler gates,
// dispatch the rest in parallel, and fold every outcome back into task
// state. It reports whether any task in the batch ended in error.
func (s *Scheduler) runBatch(ctx context.Context, root *domain.WorkflowInstance, runnables []runnable, cache *lru.Cache[string, any]) bool {
	now := time.Now().UTC()
	batchFailed := false
	toDispatch := make([]runnable, 0, len(runnables))

	for _, r := range runnables {
		warnings := reference.Resolve(root, r.path, r.task, cache)
		reference.LogWarnings(s.logger, root.ID, warnings)

		r.task.Status = constants.TaskStatusExecuting.String()
		stamp := now
		r.task.TimeStarted = &stamp

		switch {
		case r.task.ErrorIf:
			// errorIf is a deliberate failure gate, distinct from a
			// handler-reported error, so ignoreError does not apply to it.
			finishError(r.task, now, "errorIf gate triggered")
			batchFailed = true
		case r.task.SkipIf || r.task.Handler == "":
			completeTask(r.task, now, false)
		default:
			toDispatch = append(toDispatch, r)
		}
	}

	if len(toDispatch) > 0 {
		errs := s.dispatchParallel(ctx, root.ID, toDispatch)
		completedAt := time.Now().UTC()

		for i, r := range toDispatch {
			err := errs[i]
			switch {
			case err == nil:
				if r.task.Status == constants.TaskStatusPaused.String() {
					r.task.HandlerExecuted = true
				} else {
					completeTask(r.task, completedAt, true)
				}
			case errors.Is(err, tgerrors.ErrHandlerReported) && r.task.IgnoreError:
				completeTask(r.task, completedAt, true)
			default:
				finishError(r.task, completedAt, err.Error())
				batchFailed = true
			}
		}
	}

	return batchFailed
}

// dispatchParallel invokes every runnable's handler concurrently, one
// goroutine per task, collecting results into a pre-sized slice under a
// mutex — the same shape as the teacher's executeParallelGroup. Unlike
// that method, a handler error here does not cancel its siblings: the
// batch always runs to completion so every dispatched task's outcome is
// recorded before step 6 decides whether the batch failed.
func (s *Scheduler) dispatchParallel(ctx context.Context, workflowID string, items []runnable) []error {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	errs := make([]error, len(items))
	var mu sync.Mutex

	for i, r := range items {
		g.Go(func() error {
			start := time.Now()
			invokeErr := s.invoker.Invoke(ctx, workflowID, r.name, r.task)
			duration := time.Since(start)

			mu.Lock()
			errs[i] = invokeErr
			r.task.HandlerDuration = duration.Milliseconds()
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return errs
}

// openFrontier implements step 3: walk tasks in insertion order, opening
// waiting tasks (and recursing into their children to open those too),
// recursing into already-open tasks' children, and stopping the scan of
// later siblings at this level the moment a blocking task is handled.
func openFrontier(tasks *domain.TaskMap, now time.Time) {
	if tasks == nil {
		return
	}
	tasks.Range(func(_ string, t *domain.Task) bool {
		switch t.Status {
		case constants.TaskStatusWaiting.String():
			t.Status = constants.TaskStatusOpen.String()
			stamp := now
			t.TimeOpened = &stamp
			openFrontier(t.Tasks, now)
		case constants.TaskStatusOpen.String():
			openFrontier(t.Tasks, now)
		}
		// Blocking only closes later siblings while the task itself is
		// not yet completed; once it completes, a later pass opens them
		// (§4.E: "once the blocking task completes, subsequent passes
		// open its successors").
		if t.Blocking.Bool() && t.Status != constants.TaskStatusCompleted.String() {
			return false
		}
		return true
	})
}

// collectRunnables implements step 4: a deep, depth-first, insertion-order
// scan collecting every task ready for (re-)dispatch whose descendants (if
// any) are all completed — leaf-first completion driving parent readiness.
// A task qualifies either by being open (the normal first-dispatch case) or
// by having been injected back to executing via update() (§9 decision 3:
// paused tasks re-enter executing via injection and must be redispatched).
func collectRunnables(tasks *domain.TaskMap) []runnable {
	var out []runnable
	domain.Walk(tasks, true, func(path []string, t *domain.Task) bool {
		if isDispatchReady(t.Status) && allChildrenCompleted(t.Tasks) {
			out = append(out, runnable{
				path: append([]string(nil), path...),
				name: path[len(path)-1],
				task: t,
			})
		}
		return true
	})
	return out
}

// isDispatchReady reports whether status makes a task eligible for
// collection in step 4: open (normal) or executing (resumed via an
// injected update after a pause).
func isDispatchReady(status string) bool {
	return status == constants.TaskStatusOpen.String() || status == constants.TaskStatusExecuting.String()
}

// allChildrenCompleted reports whether every task in tasks (non-deep) is
// completed; an empty or nil mapping vacuously qualifies, matching §4.E.4
// ("runnable iff either it has no children, or every descendant is
// completed").
func allChildrenCompleted(tasks *domain.TaskMap) bool {
	ok := true
	tasks.Range(func(_ string, t *domain.Task) bool {
		if t.Status != constants.TaskStatusCompleted.String() {
			ok = false
			return false
		}
		return true
	})
	return ok
}

// allTopLevelCompleted reports whether every task directly in tasks is
// completed (§3 invariant 5: the instance completes iff every top-level
// task is completed).
func allTopLevelCompleted(tasks *domain.TaskMap) bool {
	return allChildrenCompleted(tasks)
}

// anyPaused reports whether any task reachable under tasks has status
// paused (§4.E step 2).
func anyPaused(tasks *domain.TaskMap) bool {
	paused := false
	domain.Walk(tasks, true, func(_ []string, t *domain.Task) bool {
		if t.Status == constants.TaskStatusPaused.String() {
			paused = true
			return false
		}
		return true
	})
	return paused
}

// completeTask transitions t to completed, stamping timeCompleted and
// recomputing totalDuration from timeStarted (§3, §4.E.6).
func completeTask(t *domain.Task, now time.Time, handlerExecuted bool) {
	t.Status = constants.TaskStatusCompleted.String()
	stamp := now
	t.TimeCompleted = &stamp
	t.HandlerExecuted = handlerExecuted
	if t.TimeStarted != nil {
		t.TotalDuration = stamp.Sub(*t.TimeStarted).Milliseconds()
	}
}

// finishError transitions t to error, recording errorMsg and the same
// timing fields completeTask would have stamped on success.
func finishError(t *domain.Task, now time.Time, msg string) {
	t.Status = constants.TaskStatusError.String()
	t.ErrorMsg = msg
	stamp := now
	t.TimeCompleted = &stamp
	if t.TimeStarted != nil {
		t.TotalDuration = stamp.Sub(*t.TimeStarted).Milliseconds()
	}
}
