package handler_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/taskgraph/internal/constants"
	"github.com/mrz1836/taskgraph/internal/domain"
	tgerrors "github.com/mrz1836/taskgraph/internal/errors"
	"github.com/mrz1836/taskgraph/internal/handler"
	"github.com/mrz1836/taskgraph/internal/testutil"
)

func TestRegistryResolvesBuiltins(t *testing.T) {
	t.Parallel()
	reg := handler.NewRegistry(nil)

	h, err := reg.Get("noop")
	require.NoError(t, err)
	assert.NoError(t, h.Handle(context.Background(), "wf", "t", &domain.Task{}))
}

func TestRegistryMissingHandlerIsHandlerLoadError(t *testing.T) {
	t.Parallel()
	reg := handler.NewRegistry(nil)

	_, err := reg.Get("does-not-exist")
	assert.ErrorIs(t, err, tgerrors.ErrHandlerLoad)
}

func TestRegistryLoaderCachesResult(t *testing.T) {
	t.Parallel()
	calls := 0
	reg := handler.NewRegistry(func(id string) (handler.Handler, error) {
		calls++
		return handler.HandlerFunc(func(context.Context, string, string, *domain.Task) error { return nil }), nil
	})

	_, err := reg.Get("custom")
	require.NoError(t, err)
	_, err = reg.Get("custom")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestTestHandlerSetsErrorAndPaused(t *testing.T) {
	t.Parallel()
	reg := handler.NewRegistry(nil)
	h, err := reg.Get("test")
	require.NoError(t, err)

	failing := &domain.Task{Parameters: map[string]any{"error": "boom"}}
	assert.EqualError(t, h.Handle(context.Background(), "wf", "t", failing), "boom")

	pausing := &domain.Task{Parameters: map[string]any{"paused": true}}
	require.NoError(t, h.Handle(context.Background(), "wf", "t", pausing))
	assert.Equal(t, constants.TaskStatusPaused.String(), pausing.Status)
}

func TestRegistryLoaderFailureIsHandlerLoadError(t *testing.T) {
	t.Parallel()
	reg := handler.NewRegistry(func(string) (handler.Handler, error) {
		return nil, testutil.ErrMockHandlerLoad
	})

	_, err := reg.Get("unreachable")
	require.ErrorIs(t, err, tgerrors.ErrHandlerLoad)
	assert.Contains(t, err.Error(), testutil.ErrMockHandlerLoad.Error())
}

func TestInvokerWrapsHandlerError(t *testing.T) {
	t.Parallel()
	reg := handler.NewRegistry(nil)
	reg.Register("boom", handler.HandlerFunc(func(context.Context, string, string, *domain.Task) error {
		return assert.AnError
	}))
	inv := handler.NewInvoker(reg)

	err := inv.Invoke(context.Background(), "wf", "t", &domain.Task{Handler: "boom"})
	assert.ErrorIs(t, err, tgerrors.ErrHandlerReported)
}
