// Package handler implements the Handler Invoker (§4.D): loading a task
// handler by its opaque string identifier and invoking it under the
// handler contract. Grounded on the teacher's
// internal/template/steps.ExecutorRegistry (a string/type-keyed,
// concurrency-safe registry with deferred-first-use lookup).
package handler

import (
	"context"
	"sync"

	"github.com/mrz1836/taskgraph/internal/domain"
	tgerrors "github.com/mrz1836/taskgraph/internal/errors"
)

// Handler is a unit addressable by the opaque string in task.Handler
// (§4.D). Handle runs the handler's logic against task, which it may
// mutate in place (parameters, nested children); the scheduler observes
// those mutations for subsequent reference resolution. A non-nil error
// marks the task failed unless ignoreError is set; the handler may also
// set task.Status to "paused" itself to request a pause instead of
// completion.
type Handler interface {
	Handle(ctx context.Context, workflowID, taskName string, task *domain.Task) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, workflowID, taskName string, task *domain.Task) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, workflowID, taskName string, task *domain.Task) error {
	return f(ctx, workflowID, taskName, task)
}

// Loader resolves a handler identifier to a Handler on first use. This
// indirection is what lets out-of-process or plugin-based loading be
// swapped in later without touching the engine or the Registry itself.
type Loader func(id string) (Handler, error)

// Registry is a lazily-loaded, cached, concurrency-safe map from handler
// identifier to Handler, mirroring the teacher's ExecutorRegistry but
// keyed by the spec's opaque string identifier rather than a closed enum
// of step types.
type Registry struct {
	mu       sync.RWMutex
	loader   Loader
	cache    map[string]Handler
	builtins map[string]Handler
}

// NewRegistry returns a Registry that falls back to loader for any
// identifier not already registered as a builtin.
func NewRegistry(loader Loader) *Registry {
	return &Registry{
		loader:   loader,
		cache:    make(map[string]Handler),
		builtins: builtinHandlers(),
	}
}

// Register adds or replaces a handler under id, bypassing the loader.
// Used to install builtins and for tests to inject fakes.
func (r *Registry) Register(id string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[id] = h
}

// Get resolves id to a Handler, checking builtins, then the cache, then
// falling back to the loader (caching its result). A missing or
// non-callable handler surfaces as ErrHandlerLoad (§4.D: "a missing or
// non-function handler surfaces as a task error with a distinguishing
// message").
func (r *Registry) Get(id string) (Handler, error) {
	if id == "" {
		return nil, tgerrors.HandlerLoad("handler identifier is empty")
	}

	if h, ok := r.builtins[id]; ok {
		return h, nil
	}

	r.mu.RLock()
	h, ok := r.cache[id]
	r.mu.RUnlock()
	if ok {
		return h, nil
	}

	if r.loader == nil {
		return nil, tgerrors.HandlerLoad("no loader configured for handler %q", id)
	}

	loaded, err := r.loader(id)
	if err != nil {
		return nil, tgerrors.HandlerLoad("load handler %q: %v", id, err)
	}
	if loaded == nil {
		return nil, tgerrors.HandlerLoad("handler %q resolved to nil", id)
	}

	r.mu.Lock()
	r.cache[id] = loaded
	r.mu.Unlock()

	return loaded, nil
}

// Invoker is what the Scheduler calls to dispatch a task to its handler
// (§4.D). It wraps Registry lookup and invocation, translating a lookup
// failure into the same HandlerReported/HandlerLoad error shape the
// caller already handles.
type Invoker struct {
	registry *Registry
}

// NewInvoker returns an Invoker backed by registry.
func NewInvoker(registry *Registry) *Invoker {
	return &Invoker{registry: registry}
}

// Invoke resolves task.Handler and runs it. A task with no handler is a
// pure container/gate and Invoke is not expected to be called for it;
// callers filter those out before dispatch (§4.E).
func (inv *Invoker) Invoke(ctx context.Context, workflowID, taskName string, task *domain.Task) error {
	h, err := inv.registry.Get(task.Handler)
	if err != nil {
		return err
	}
	if err := h.Handle(ctx, workflowID, taskName, task); err != nil {
		return tgerrors.HandlerReported("%s: %v", taskName, err)
	}
	return nil
}
