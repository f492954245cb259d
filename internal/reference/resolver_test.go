package reference_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/taskgraph/internal/domain"
	"github.com/mrz1836/taskgraph/internal/reference"
)

func buildInstance() *domain.WorkflowInstance {
	inner := domain.NewTaskMap()
	inner.Set("b", &domain.Task{
		Status:     "completed",
		Parameters: map[string]any{"y": []any{"first", "second"}},
	})

	outer := domain.NewTaskMap()
	outer.Set("a", &domain.Task{
		Status:     "completed",
		Parameters: map[string]any{"x": "hello", "n": float64(3)},
		Tasks:      inner,
	})

	return &domain.WorkflowInstance{
		Name:        "demo",
		Environment: map[string]string{"HOME": "/home/demo"},
		Tasks:       outer,
	}
}

func TestResolveStandaloneTypedSubstitution(t *testing.T) {
	t.Parallel()

	inst := buildInstance()
	task := &domain.Task{Parameters: map[string]any{
		"value": "$[tasks.a.parameters.n]",
		"item":  "$[tasks.a.tasks.b.parameters.y[1]]",
	}}

	warnings := reference.Resolve(inst, []string{"target"}, task, nil)
	assert.Empty(t, warnings)
	assert.Equal(t, float64(3), task.Parameters["value"])
	assert.Equal(t, "second", task.Parameters["item"])
}

func TestResolveEmbeddedStringifiedSubstitution(t *testing.T) {
	t.Parallel()

	inst := buildInstance()
	task := &domain.Task{Parameters: map[string]any{
		"greeting": "hi $[tasks.a.parameters.x], home is $[environment.HOME]",
	}}

	warnings := reference.Resolve(inst, []string{"target"}, task, nil)
	assert.Empty(t, warnings)
	assert.Equal(t, "hi hello, home is /home/demo", task.Parameters["greeting"])
}

func TestResolveUnresolvedPathWarnsAndSubstitutesNull(t *testing.T) {
	t.Parallel()

	inst := buildInstance()
	task := &domain.Task{Parameters: map[string]any{
		"missing":  "$[tasks.nope.parameters.x]",
		"embedded": "value: $[tasks.nope.parameters.x]",
	}}

	warnings := reference.Resolve(inst, []string{"target"}, task, nil)
	require.Len(t, warnings, 2)
	assert.Nil(t, task.Parameters["missing"])
	assert.Equal(t, "value: null", task.Parameters["embedded"])
}

func TestResolveNestedMapsAndSlices(t *testing.T) {
	t.Parallel()

	inst := buildInstance()
	task := &domain.Task{Parameters: map[string]any{
		"nested": map[string]any{
			"inner": []any{"$[tasks.a.parameters.x]", "literal"},
		},
	}}

	warnings := reference.Resolve(inst, []string{"target"}, task, nil)
	assert.Empty(t, warnings)
	nested := task.Parameters["nested"].(map[string]any)
	inner := nested["inner"].([]any)
	assert.Equal(t, "hello", inner[0])
	assert.Equal(t, "literal", inner[1])
}

func TestResolveNoParametersIsNoop(t *testing.T) {
	t.Parallel()

	inst := buildInstance()
	task := &domain.Task{Handler: "log"}

	warnings := reference.Resolve(inst, []string{"target"}, task, nil)
	assert.Nil(t, warnings)
}
