package reference

import "github.com/mrz1836/taskgraph/internal/domain"

// flattenInstance mirrors root into a generic map[string]any/[]any tree
// with the same shape a "tasks.a.tasks.b.parameters.y[0]"-style path
// expects to walk: "environment" as a flat string map, "tasks" as a
// nested map keyed by task name, each task exposing its own "parameters"
// and nested "tasks".
func flattenInstance(root *domain.WorkflowInstance) map[string]any {
	if root == nil {
		return map[string]any{}
	}

	env := make(map[string]any, len(root.Environment))
	for k, v := range root.Environment {
		env[k] = v
	}

	out := map[string]any{
		"id":          root.ID,
		"name":        root.Name,
		"status":      root.Status,
		"environment": env,
		"tasks":       flattenTasks(root.Tasks),
	}
	if root.PreWorkflow != nil {
		out["pre workflow"] = flattenTask(root.PreWorkflow)
	}
	if root.PostWorkflow != nil {
		out["post workflow"] = flattenTask(root.PostWorkflow)
	}
	return out
}

func flattenTasks(tasks *domain.TaskMap) map[string]any {
	out := map[string]any{}
	if tasks == nil {
		return out
	}
	tasks.Range(func(name string, t *domain.Task) bool {
		out[name] = flattenTask(t)
		return true
	})
	return out
}

func flattenTask(t *domain.Task) map[string]any {
	if t == nil {
		return map[string]any{}
	}
	return map[string]any{
		"status":          t.Status,
		"handler":         t.Handler,
		"parameters":      cloneGeneric(t.Parameters),
		"tasks":           flattenTasks(t.Tasks),
		"blocking":        t.Blocking.Bool(),
		"skipIf":          t.SkipIf,
		"errorIf":         t.ErrorIf,
		"ignoreError":     t.IgnoreError,
		"handlerExecuted": t.HandlerExecuted,
		"errorMsg":        t.ErrorMsg,
	}
}

// cloneGeneric deep-copies a parameters map so path lookups never hand out
// a reference an in-progress resolve could mutate concurrently.
func cloneGeneric(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneGeneric(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneGeneric(item)
		}
		return out
	default:
		return v
	}
}
