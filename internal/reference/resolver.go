// Package reference implements the Reference Resolver (§4.B): expansion of
// "$[dotted.path]" templates inside a task's parameters against the live
// workflow instance, run just before a task is dispatched.
//
// The implementation follows the "serialize/replace/parse" strategy the
// spec explicitly sanctions: the instance is flattened once per resolve
// call into a generic map[string]any/[]any tree (the same shape
// encoding/json would produce), and every path lookup walks that tree.
// This mirrors the teacher's template/variables.go, which also expands
// placeholders by walking a generic config map rather than reflecting
// over typed structs.
package reference

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/mrz1836/taskgraph/internal/domain"
)

// pattern matches "$[path]" occurrences; path may not contain ']'.
var pattern = regexp.MustCompile(`\$\[([^\]]+)\]`)

// Warning describes an unresolved reference encountered during a Resolve
// call (§4.B: "substitute a null/absent marker and log a warning; do not
// fail the task for an unresolved reference").
type Warning struct {
	TaskPath []string
	Field    string
	RefPath  string
}

// Resolve scans every value in task.Parameters for "$[path]" references,
// replacing each with the resolved value from root. A reference that is
// the entire field value is replaced in place preserving its native type;
// a reference embedded in a larger string is stringified and spliced in.
// cache, if non-nil, memoizes path lookups for the lifetime of one
// scheduler batch (callers share one cache across every task dispatched
// in the same pass to avoid re-flattening the instance per task).
func Resolve(root *domain.WorkflowInstance, taskPath []string, task *domain.Task, cache *lru.Cache[string, any]) []Warning {
	if task == nil || len(task.Parameters) == 0 {
		return nil
	}

	tree := cachedFlatten(root, cache)

	var warnings []Warning
	resolved := make(map[string]any, len(task.Parameters))
	for field, v := range task.Parameters {
		resolved[field] = resolveValue(v, tree, taskPath, field, &warnings)
	}
	task.Parameters = resolved
	return warnings
}

// cachedFlatten returns the flattened generic tree for root, memoizing it
// under a stable cache key so every task in the same batch reuses one
// flattening pass instead of paying it per task.
func cachedFlatten(root *domain.WorkflowInstance, cache *lru.Cache[string, any]) map[string]any {
	const treeCacheKey = "__tree__"
	if cache != nil {
		if v, ok := cache.Get(treeCacheKey); ok {
			if tree, ok := v.(map[string]any); ok {
				return tree
			}
		}
	}
	tree := flattenInstance(root)
	if cache != nil {
		cache.Add(treeCacheKey, tree)
	}
	return tree
}

func resolveValue(v any, tree map[string]any, taskPath []string, field string, warnings *[]Warning) any {
	switch val := v.(type) {
	case string:
		return resolveString(val, tree, taskPath, field, warnings)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = resolveValue(item, tree, taskPath, field, warnings)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = resolveValue(item, tree, taskPath, field, warnings)
		}
		return out
	default:
		return v
	}
}

// resolveString implements the standalone-vs-embedded contract: a field
// value that is exactly one "$[path]" reference is replaced with the
// resolved value's native type; a reference inside a larger string is
// stringified and spliced in.
func resolveString(s string, tree map[string]any, taskPath []string, field string, warnings *[]Warning) any {
	if full := pattern.FindString(s); full == s && full != "" {
		path := pattern.FindStringSubmatch(s)[1]
		v, ok := lookup(tree, path)
		if !ok {
			*warnings = append(*warnings, Warning{TaskPath: taskPath, Field: field, RefPath: path})
			return nil
		}
		return v
	}

	return pattern.ReplaceAllStringFunc(s, func(match string) string {
		path := pattern.FindStringSubmatch(match)[1]
		v, ok := lookup(tree, path)
		if !ok {
			*warnings = append(*warnings, Warning{TaskPath: taskPath, Field: field, RefPath: path})
			return "null"
		}
		return stringify(v)
	})
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// segment is one "name" or "name[idx][idx]..." path component.
type segment struct {
	key     string
	indices []int
}

var segmentPattern = regexp.MustCompile(`^([A-Za-z0-9_]+)((?:\[\d+\])*)$`)
var indexPattern = regexp.MustCompile(`\[(\d+)\]`)

func parsePath(path string) ([]segment, error) {
	parts := strings.Split(path, ".")
	segments := make([]segment, 0, len(parts))
	for _, p := range parts {
		m := segmentPattern.FindStringSubmatch(p)
		if m == nil {
			return nil, fmt.Errorf("reference: invalid path segment %q", p)
		}
		seg := segment{key: m[1]}
		for _, idxMatch := range indexPattern.FindAllStringSubmatch(m[2], -1) {
			n, err := strconv.Atoi(idxMatch[1])
			if err != nil {
				return nil, fmt.Errorf("reference: invalid index in %q: %w", p, err)
			}
			seg.indices = append(seg.indices, n)
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// lookup resolves path against the flattened instance tree, returning
// ok=false when any segment does not resolve.
func lookup(tree map[string]any, path string) (any, bool) {
	segments, err := parsePath(path)
	if err != nil {
		return nil, false
	}

	var cur any = tree
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[seg.key]
		if !ok {
			return nil, false
		}
		cur = v
		for _, idx := range seg.indices {
			arr, ok := cur.([]any)
			if !ok || idx < 0 || idx >= len(arr) {
				return nil, false
			}
			cur = arr[idx]
		}
	}
	return cur, true
}

// LogWarnings emits one warning-level log event per unresolved reference,
// in the teacher's structured zerolog style (engine.go's buildStepLogEvent).
func LogWarnings(logger zerolog.Logger, instanceID string, warnings []Warning) {
	for _, w := range warnings {
		logger.Warn().
			Str("instance_id", instanceID).
			Strs("task_path", w.TaskPath).
			Str("field", w.Field).
			Str("ref_path", w.RefPath).
			Msg("unresolved reference, substituting null")
	}
}
