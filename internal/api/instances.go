package api

import (
	"context"

	"github.com/mrz1836/taskgraph/internal/domain"
	"github.com/mrz1836/taskgraph/internal/engine"
	"github.com/mrz1836/taskgraph/internal/store"
)

// activeDriver returns the current Driver under a read lock, so a
// concurrent SetLogLevel's rebuild never races a call in flight.
func (a *API) activeDriver() *engine.Driver {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.driver
}

// Execute runs inst through the Execution Driver to completion, pause, or
// error (§4.F), synchronously.
func (a *API) Execute(ctx context.Context, inst *domain.WorkflowInstance) (*domain.WorkflowInstance, error) {
	return a.activeDriver().Execute(ctx, inst)
}

// ExecuteAsync runs Execute in a goroutine, delivering the outcome on the
// returned channel exactly once.
func (a *API) ExecuteAsync(ctx context.Context, inst *domain.WorkflowInstance) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		result, err := a.Execute(ctx, inst)
		out <- Result{Instance: result, Err: err}
		close(out)
	}()
	return out
}

// Update applies the named task injections in updates to the instance id
// and re-enters Execute (§4.F's update(id, tasks)), synchronously.
func (a *API) Update(ctx context.Context, id string, updates *domain.TaskMap) (*domain.WorkflowInstance, error) {
	return a.activeDriver().Update(ctx, id, updates)
}

// UpdateAsync runs Update in a goroutine, delivering the outcome on the
// returned channel exactly once.
func (a *API) UpdateAsync(ctx context.Context, id string, updates *domain.TaskMap) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		result, err := a.Update(ctx, id, updates)
		out <- Result{Instance: result, Err: err}
		close(out)
	}()
	return out
}

// Get returns the instance record for id. rewind==0 returns the current
// record; rewind>0 returns a historical record per store.Store.LoadInstance.
func (a *API) Get(ctx context.Context, id string, rewind int) (*domain.WorkflowInstance, error) {
	return a.st.LoadInstance(ctx, id, rewind)
}

// List returns instances matching query (ErrCapability on backends that
// cannot support ad-hoc queries, e.g. the file backend).
func (a *API) List(ctx context.Context, query store.Query) ([]*domain.WorkflowInstance, error) {
	return a.st.GetWorkflows(ctx, query)
}

// Delete removes the current record and all history for id.
func (a *API) Delete(ctx context.Context, id string) error {
	return a.st.DeleteInstance(ctx, id)
}

// DeleteAll removes every instance and its history, leaving definitions
// untouched (§6 --deleteALL).
func (a *API) DeleteAll(ctx context.Context) error {
	return a.st.DeleteAll(ctx)
}
