package domain

// Visitor is called once per task during a Walk. path is the sequence of
// task names from the root of the walk down to (and including) t's own
// name. Returning false halts the entire traversal — the false result
// propagates all the way back to the original Walk caller (§4.A).
type Visitor func(path []string, t *Task) bool

// Walk performs a depth-first, pre-order traversal of tasks in insertion
// order. When deep is true, Walk recurses into each task's own children
// before moving to the next sibling; when false, only the top level of
// tasks is visited. This single primitive underlies status queries,
// reference collection, merging, and scheduling (§4.A).
func Walk(tasks *TaskMap, deep bool, visit Visitor) bool {
	return walk(nil, tasks, deep, visit)
}

func walk(prefix []string, tasks *TaskMap, deep bool, visit Visitor) bool {
	if tasks == nil {
		return true
	}
	cont := true
	tasks.Range(func(name string, t *Task) bool {
		path := append(append([]string(nil), prefix...), name)
		if !visit(path, t) {
			cont = false
			return false
		}
		if deep && t != nil && t.Tasks.Len() > 0 {
			if !walk(path, t.Tasks, deep, visit) {
				cont = false
				return false
			}
		}
		return true
	})
	return cont
}

// Find returns the first task named name found via a deep, depth-first,
// insertion-order scan starting at tasks, matching the lookup rule used
// by update's injection merge (§4.F.2: "locate the first task of that
// name in the current tree, depth-first, insertion order").
func Find(tasks *TaskMap, name string) (*Task, bool) {
	var found *Task
	Walk(tasks, true, func(path []string, t *Task) bool {
		if len(path) > 0 && path[len(path)-1] == name {
			found = t
			return false
		}
		return true
	})
	return found, found != nil
}
