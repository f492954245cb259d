package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/taskgraph/internal/domain"
)

func TestTaskMapOrderPreserved(t *testing.T) {
	t.Parallel()

	m := domain.NewTaskMap()
	m.Set("c1", &domain.Task{Handler: "log"})
	m.Set("a2", &domain.Task{Handler: "log"})
	m.Set("b3", &domain.Task{Handler: "log"})

	assert.Equal(t, []string{"c1", "a2", "b3"}, m.Keys())
}

func TestTaskMapJSONRoundTripPreservesOrder(t *testing.T) {
	t.Parallel()

	src := `{"zeta":{"handler":"log"},"alpha":{"handler":"log"},"mu":{"handler":"log"}}`
	m := domain.NewTaskMap()
	require.NoError(t, json.Unmarshal([]byte(src), m))
	assert.Equal(t, []string{"zeta", "alpha", "mu"}, m.Keys())

	out, err := json.Marshal(m)
	require.NoError(t, err)

	m2 := domain.NewTaskMap()
	require.NoError(t, json.Unmarshal(out, m2))
	assert.Equal(t, m.Keys(), m2.Keys())
}

func TestTaskMapYAMLRoundTripPreservesOrder(t *testing.T) {
	t.Parallel()

	src := "zeta:\n  handler: log\nalpha:\n  handler: log\nmu:\n  handler: log\n"
	m := domain.NewTaskMap()
	require.NoError(t, yaml.Unmarshal([]byte(src), m))
	assert.Equal(t, []string{"zeta", "alpha", "mu"}, m.Keys())
}

func TestBlockingCoercion(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		json string
		want bool
	}{
		{"bool true", `true`, true},
		{"bool false", `false`, false},
		{"string true", `"true"`, true},
		{"string TRUE", `"TRUE"`, true},
		{"string false", `"false"`, false},
		{"number nonzero", `1`, true},
		{"number zero", `0`, false},
		{"null", `null`, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var b domain.Blocking
			require.NoError(t, json.Unmarshal([]byte(tc.json), &b))
			assert.Equal(t, tc.want, b.Bool())
		})
	}
}

func TestWalkDeepPreOrderAndHalt(t *testing.T) {
	t.Parallel()

	children := domain.NewTaskMap()
	children.Set("c1", &domain.Task{Handler: "log"})
	children.Set("c2", &domain.Task{Handler: "log"})

	root := domain.NewTaskMap()
	root.Set("parent", &domain.Task{Tasks: children})
	root.Set("sibling", &domain.Task{Handler: "log"})

	var visited []string
	cont := domain.Walk(root, true, func(path []string, _ *domain.Task) bool {
		visited = append(visited, path[len(path)-1])
		return true
	})
	assert.True(t, cont)
	assert.Equal(t, []string{"parent", "c1", "c2", "sibling"}, visited)

	var stopVisited []string
	cont = domain.Walk(root, true, func(path []string, _ *domain.Task) bool {
		name := path[len(path)-1]
		stopVisited = append(stopVisited, name)
		return name != "c1"
	})
	assert.False(t, cont)
	assert.Equal(t, []string{"parent", "c1"}, stopVisited)
}

func TestFindDepthFirstInsertionOrder(t *testing.T) {
	t.Parallel()

	children := domain.NewTaskMap()
	target := &domain.Task{Handler: "log"}
	children.Set("target", target)

	root := domain.NewTaskMap()
	root.Set("parent", &domain.Task{Tasks: children})

	found, ok := domain.Find(root, "target")
	require.True(t, ok)
	assert.Same(t, target, found)

	_, ok = domain.Find(root, "missing")
	assert.False(t, ok)
}

func TestInstanceCloneIsIndependent(t *testing.T) {
	t.Parallel()

	tasks := domain.NewTaskMap()
	tasks.Set("t1", &domain.Task{Parameters: map[string]any{"log": "hi"}})
	inst := &domain.WorkflowInstance{Name: "A", Tasks: tasks, Environment: map[string]string{"HOME": "/tmp"}}

	clone := inst.Clone()
	clone.Environment["HOME"] = "/changed"
	t1, _ := clone.Tasks.Get("t1")
	t1.Parameters["log"] = "changed"

	origT1, _ := inst.Tasks.Get("t1")
	assert.Equal(t, "/tmp", inst.Environment["HOME"])
	assert.Equal(t, "hi", origT1.Parameters["log"])
}
