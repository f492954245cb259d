package api_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/taskgraph/internal/api"
	"github.com/mrz1836/taskgraph/internal/config"
	"github.com/mrz1836/taskgraph/internal/constants"
	"github.com/mrz1836/taskgraph/internal/domain"
	"github.com/mrz1836/taskgraph/internal/store"
)

func newTestAPI(t *testing.T) *api.API {
	t.Helper()
	cfg := &config.Config{
		DB:      config.DBConfig{Type: "file", Dir: t.TempDir()},
		Logging: config.LoggingConfig{Level: "info"},
		Engine:  config.EngineConfig{BatchConcurrency: 4, SaveTimeout: 0},
	}

	a, err := api.Init(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = a.Close(context.Background())
	})
	return a
}

func taskMap(entries map[string]*domain.Task) *domain.TaskMap {
	m := domain.NewTaskMap()
	for name, task := range entries {
		m.Set(name, task)
	}
	return m
}

func TestAPIExecuteCompletesASingleTaskInstance(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)

	inst := &domain.WorkflowInstance{
		Name:  "smoke",
		Tasks: taskMap(map[string]*domain.Task{"t1": {Handler: "noop"}}),
	}

	out, err := a.Execute(context.Background(), inst)
	require.NoError(t, err)
	assert.Equal(t, constants.InstanceStatusCompleted.String(), out.Status)
}

func TestAPIExecuteAsyncDeliversOnChannel(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)

	inst := &domain.WorkflowInstance{
		Name:  "async",
		Tasks: taskMap(map[string]*domain.Task{"t1": {Handler: "noop"}}),
	}

	result := <-a.ExecuteAsync(context.Background(), inst)
	require.NoError(t, result.Err)
	assert.Equal(t, constants.InstanceStatusCompleted.String(), result.Instance.Status)
}

func TestAPIGetReturnsPersistedInstance(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)
	ctx := context.Background()

	inst := &domain.WorkflowInstance{
		Name:  "persisted",
		Tasks: taskMap(map[string]*domain.Task{"t1": {Handler: "noop"}}),
	}
	out, err := a.Execute(ctx, inst)
	require.NoError(t, err)

	loaded, err := a.Get(ctx, out.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, out.ID, loaded.ID)
}

func TestAPIDeleteRemovesInstance(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)
	ctx := context.Background()

	inst := &domain.WorkflowInstance{
		Name:  "deleteme",
		Tasks: taskMap(map[string]*domain.Task{"t1": {Handler: "noop"}}),
	}
	out, err := a.Execute(ctx, inst)
	require.NoError(t, err)

	require.NoError(t, a.Delete(ctx, out.ID))
	_, err = a.Get(ctx, out.ID, 0)
	assert.Error(t, err)
}

func TestAPISaveAndGetDefinition(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)
	ctx := context.Background()

	def := &domain.Definition{
		Name:  "deploy",
		Tasks: taskMap(map[string]*domain.Task{"t1": {Handler: "noop"}}),
	}
	require.NoError(t, a.SaveDefinition(ctx, def))

	loaded, err := a.GetDefinition(ctx, "deploy")
	require.NoError(t, err)
	assert.Equal(t, "deploy", loaded.Name)

	require.NoError(t, a.DeleteDefinition(ctx, "deploy"))
	_, err = a.GetDefinition(ctx, "deploy")
	assert.Error(t, err)
}

func TestAPISetLogLevelAcceptsValidLevels(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)

	a.SetLogLevel("debug")
	a.SetLogLevel("not-a-level")

	// A driver rebuild after SetLogLevel must still run instances correctly.
	inst := &domain.WorkflowInstance{
		Name:  "after-level-change",
		Tasks: taskMap(map[string]*domain.Task{"t1": {Handler: "noop"}}),
	}
	out, err := a.Execute(context.Background(), inst)
	require.NoError(t, err)
	assert.Equal(t, constants.InstanceStatusCompleted.String(), out.Status)
}

func TestAPIListUnsupportedOnFileBackendReturnsCapabilityError(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)

	_, err := a.List(context.Background(), store.Query{})
	assert.Error(t, err)
}

func TestAPIDeleteAllRemovesEveryInstance(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)
	ctx := context.Background()

	inst := &domain.WorkflowInstance{
		Name:  "bulk",
		Tasks: taskMap(map[string]*domain.Task{"t1": {Handler: "noop"}}),
	}
	out, err := a.Execute(ctx, inst)
	require.NoError(t, err)

	require.NoError(t, a.DeleteAll(ctx))
	_, err = a.Get(ctx, out.ID, 0)
	assert.Error(t, err)
}

func TestInitRejectsNilConfig(t *testing.T) {
	t.Parallel()
	_, err := api.Init(context.Background(), nil)
	assert.Error(t, err)
}

func TestInitOpensDocumentStoreBackendExplicitly(t *testing.T) {
	t.Parallel()
	// No live Postgres in this environment; only assert that Type
	// selection routes to the document-store branch (connection failure
	// at InitStore, not a misrouted file-backend open).
	cfg := &config.Config{
		DB:      config.DBConfig{Type: "document-store", Host: "127.0.0.1", Port: 1, Name: "taskgraph", SSLMode: "disable"},
		Logging: config.LoggingConfig{Level: "info"},
		Engine:  config.EngineConfig{BatchConcurrency: 1},
	}
	_, err := api.Init(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewTestAPIUsesTempDir(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)
	assert.NotNil(t, a)
	assert.DirExists(t, filepath.Dir(filepath.Join(t.TempDir(), "marker")))
}
