package errors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	taskgrapherrors "github.com/mrz1836/taskgraph/internal/errors"
	"github.com/mrz1836/taskgraph/internal/testutil"
)

func TestWrap(t *testing.T) {
	t.Parallel()

	t.Run("nil error returns nil", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, taskgrapherrors.Wrap(nil, "context"))
	})

	t.Run("wraps and preserves Is", func(t *testing.T) {
		t.Parallel()
		err := taskgrapherrors.Wrap(taskgrapherrors.ErrStore, "saveInstance failed")
		assert.ErrorIs(t, err, taskgrapherrors.ErrStore)
		assert.Contains(t, err.Error(), "saveInstance failed")
	})
}

func TestSentinelHelpers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		target error
	}{
		{"validation", taskgrapherrors.Validation("missing name"), taskgrapherrors.ErrValidation},
		{"not found", taskgrapherrors.NotFound("instance %q", "abc"), taskgrapherrors.ErrNotFound},
		{"store", taskgrapherrors.Store("write failed"), taskgrapherrors.ErrStore},
		{"handler load", taskgrapherrors.HandlerLoad("handler %q", "log"), taskgrapherrors.ErrHandlerLoad},
		{"handler reported", taskgrapherrors.HandlerReported("boom"), taskgrapherrors.ErrHandlerReported},
		{"capability", taskgrapherrors.Capability("list unsupported"), taskgrapherrors.ErrCapability},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.True(t, errors.Is(tc.err, tc.target))
		})
	}
}

func TestStoreWrapsUnderlyingCauseMessage(t *testing.T) {
	t.Parallel()

	err := taskgrapherrors.Store("open backend: %v", testutil.ErrMockStoreUnavailable)
	assert.ErrorIs(t, err, taskgrapherrors.ErrStore)
	assert.Contains(t, err.Error(), testutil.ErrMockStoreUnavailable.Error())
}
