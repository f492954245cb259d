package cli

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"encoding/json"

	"github.com/mrz1836/taskgraph/internal/domain"
	tgerrors "github.com/mrz1836/taskgraph/internal/errors"
)

// loadInjectionBundle parses a task-injection bundle from path, the same
// JSON-or-YAML-by-extension rule §6 defines for definition sources
// (store.FileStore.LoadDefinition), generalized to a bare *domain.TaskMap
// since an injection bundle has no workflow-level fields.
func loadInjectionBundle(path string) (*domain.TaskMap, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is an operator-supplied injection source
	if err != nil {
		if os.IsNotExist(err) {
			return nil, tgerrors.NotFound("injection source %q", path)
		}
		return nil, tgerrors.Store("read injection source %q: %v", path, err)
	}

	tasks := domain.NewTaskMap()
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		err = yaml.Unmarshal(data, tasks)
	} else {
		err = json.Unmarshal(data, tasks)
	}
	if err != nil {
		return nil, tgerrors.Validation("parse injection source %q: %v", path, err)
	}
	return tasks, nil
}
