// Package api implements the Public API facade (§4.G): the single entry
// point embedding applications use instead of reaching into
// internal/engine, internal/store, or internal/handler directly.
// Grounded on the shape of the teacher's internal/task.Engine public
// methods (Start/Resume/...), generalized to the store-backed, tree-wide
// operations this spec names.
package api

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mrz1836/taskgraph/internal/config"
	"github.com/mrz1836/taskgraph/internal/constants"
	"github.com/mrz1836/taskgraph/internal/domain"
	"github.com/mrz1836/taskgraph/internal/engine"
	"github.com/mrz1836/taskgraph/internal/handler"
	"github.com/mrz1836/taskgraph/internal/logging"
	"github.com/mrz1836/taskgraph/internal/store"
)

// Result is what the *Async methods deliver once the underlying
// synchronous call completes (§9's "channel-or-join" note on async
// variants).
type Result struct {
	Instance *domain.WorkflowInstance
	Err      error
}

// API is the engine's single embeddable entry point: one Store, one
// Handler Invoker, and the Scheduler/Driver pair built from them, plus
// the logger those components share.
type API struct {
	mu sync.RWMutex

	cfg       *config.Config
	st        store.Store
	invoker   *handler.Invoker
	logger    zerolog.Logger
	logCloser io.Closer
	driver    *engine.Driver
}

// Init builds an API from cfg: opens the configured store backend,
// initializes it, sets up logging, and wires the Handler Invoker and
// Scheduler/Driver. Callers must defer Close.
func Init(ctx context.Context, cfg *config.Config) (*API, error) {
	if cfg == nil {
		return nil, fmt.Errorf("api: nil config")
	}

	logger, logCloser, err := logging.Init(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("api: init logging: %w", err)
	}

	st, err := store.Open(storeConfigFrom(cfg.DB))
	if err != nil {
		_ = logCloser.Close()
		return nil, fmt.Errorf("api: open store: %w", err)
	}
	if err := st.InitStore(ctx); err != nil {
		_ = logCloser.Close()
		return nil, fmt.Errorf("api: init store: %w", err)
	}

	registry := handler.NewRegistry(nil)
	invoker := handler.NewInvoker(registry)

	a := &API{
		cfg:       cfg,
		st:        st,
		invoker:   invoker,
		logger:    logger,
		logCloser: logCloser,
	}
	a.rebuildDriver()
	return a, nil
}

// storeConfigFrom maps the §6 DB_TYPE/DB_DIR/DB_HOST/DB_PORT config
// surface onto store.Config, honoring Type explicitly rather than
// inferring the backend from whether Host happens to be set.
func storeConfigFrom(db config.DBConfig) store.Config {
	if constants.DBType(db.Type) == constants.DBTypeDocumentStore {
		return store.Config{
			Host:     db.Host,
			Port:     db.Port,
			User:     db.User,
			Password: db.Password,
			Database: db.Name,
			SSLMode:  db.SSLMode,
		}
	}
	return store.Config{Dir: db.Dir}
}

// rebuildDriver constructs a.driver from the current logger and engine
// config. Called at Init and again whenever SetLogLevel changes the
// logger, since the Scheduler holds its own zerolog.Logger value rather
// than a mutable reference.
func (a *API) rebuildDriver() {
	sched := engine.NewScheduler(a.st, a.invoker, a.logger, a.cfg.Engine.BatchConcurrency)
	a.driver = engine.NewDriver(a.st, sched)
}

// Close releases every resource Init opened: the store backend and the
// log file sink (if any).
func (a *API) Close(ctx context.Context) error {
	var firstErr error
	if err := a.st.ExitStore(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.logCloser.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Logger returns the API's current logger, reflecting the most recent
// SetLogLevel call.
func (a *API) Logger() zerolog.Logger {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.logger
}
