package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// TaskMap is an insertion-order-preserving mapping from task name to *Task.
// Go's built-in map has randomized iteration order, but §3 requires that
// "insertion order is preserved and is the deterministic scan order" for
// every tasks mapping in the tree. TaskMap keeps a parallel slice of keys
// alongside the lookup map so every traversal (§4.A) walks a fixed order.
type TaskMap struct {
	order []string
	tasks map[string]*Task
}

// NewTaskMap returns an empty, ready-to-use TaskMap.
func NewTaskMap() *TaskMap {
	return &TaskMap{tasks: make(map[string]*Task)}
}

// Len returns the number of tasks.
func (m *TaskMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// Keys returns the task names in insertion order. The returned slice must
// not be mutated by the caller.
func (m *TaskMap) Keys() []string {
	if m == nil {
		return nil
	}
	return m.order
}

// Get returns the task named name, or nil, false if absent.
func (m *TaskMap) Get(name string) (*Task, bool) {
	if m == nil {
		return nil, false
	}
	t, ok := m.tasks[name]
	return t, ok
}

// Set inserts or replaces the task named name. New keys are appended to the
// end of the insertion order; replacing an existing key does not move it.
func (m *TaskMap) Set(name string, t *Task) {
	if _, exists := m.tasks[name]; !exists {
		m.order = append(m.order, name)
	}
	m.tasks[name] = t
}

// Range calls visit for each task in insertion order, stopping and
// returning false the moment visit returns false — the same short-circuit
// contract the Task Tree Model walk (§4.A) relies on.
func (m *TaskMap) Range(visit func(name string, t *Task) bool) bool {
	if m == nil {
		return true
	}
	for _, name := range m.order {
		if !visit(name, m.tasks[name]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the map and every task it contains.
func (m *TaskMap) Clone() *TaskMap {
	if m == nil {
		return nil
	}
	out := &TaskMap{
		order: append([]string(nil), m.order...),
		tasks: make(map[string]*Task, len(m.tasks)),
	}
	for k, v := range m.tasks {
		out.tasks[k] = v.Clone()
	}
	return out
}

// MarshalJSON writes the map as a JSON object with keys in insertion order.
func (m *TaskMap) MarshalJSON() ([]byte, error) {
	if m == nil || len(m.order) == 0 {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range m.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(m.tasks[name])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object into the map, preserving the key order
// as it appears in the source document using token-based decoding (the
// standard map[string]any decode path discards this order).
func (m *TaskMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return fmt.Errorf("domain: expected JSON object for tasks, got %v", tok)
	}

	*m = TaskMap{tasks: make(map[string]*Task)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("domain: expected string task name, got %v", keyTok)
		}
		var t Task
		if err := dec.Decode(&t); err != nil {
			return fmt.Errorf("domain: decoding task %q: %w", name, err)
		}
		m.Set(name, &t)
	}
	// Consume the closing '}'.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// UnmarshalYAML reads a YAML mapping into the map, preserving key order via
// yaml.Node's Content slice (alternating key/value nodes in document order).
func (m *TaskMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("domain: expected YAML mapping for tasks, got kind %v", node.Kind)
	}
	*m = TaskMap{tasks: make(map[string]*Task)}
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		var t Task
		if err := node.Content[i+1].Decode(&t); err != nil {
			return fmt.Errorf("domain: decoding task %q: %w", name, err)
		}
		m.Set(name, &t)
	}
	return nil
}

// MarshalYAML renders the map as an ordered YAML mapping node.
func (m *TaskMap) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if m == nil {
		return node, nil
	}
	for _, name := range m.order {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: name}
		var valNode yaml.Node
		if err := valNode.Encode(m.tasks[name]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, keyNode, &valNode)
	}
	return node, nil
}
