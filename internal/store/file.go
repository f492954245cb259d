package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/taskgraph/internal/constants"
	"github.com/mrz1836/taskgraph/internal/domain"
	tgerrors "github.com/mrz1836/taskgraph/internal/errors"
)

const (
	dirPerm  = 0o750
	filePerm = 0o600

	definitionsSubdir = "definitions"
	instancesSubdir   = "instances"
)

// FileStore implements Store on the local filesystem: one current file
// per instance id, one historical file per save keyed by a millisecond
// epoch suffix (lexicographic order equals chronological order), and one
// ".def" file per definition — grounded on the teacher's
// internal/task.FileStore (atomic writes) and internal/hook.fileStore
// (flock-based locking with a retry timeout).
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

var _ Store = (*FileStore)(nil)

// InitStore creates the backing directory tree. Idempotent.
func (s *FileStore) InitStore(_ context.Context) error {
	for _, sub := range []string{definitionsSubdir, instancesSubdir} {
		if err := os.MkdirAll(filepath.Join(s.dir, sub), dirPerm); err != nil {
			return tgerrors.Store("create %s directory: %v", sub, err)
		}
	}
	return nil
}

// ExitStore is a no-op for the file backend; nothing to release.
func (s *FileStore) ExitStore(_ context.Context) error { return nil }

func (s *FileStore) definitionPath(name string) string {
	return filepath.Join(s.dir, definitionsSubdir, name+constants.DefinitionFileExt)
}

func (s *FileStore) instanceCurrentPath(id string) string {
	return filepath.Join(s.dir, instancesSubdir, id)
}

func (s *FileStore) instanceLockPath(id string) string {
	return filepath.Join(s.dir, instancesSubdir, id+".lock")
}

// historyPath returns the path for a historical record saved at epochMs.
func (s *FileStore) historyPath(id string, epochMs int64) string {
	return filepath.Join(s.dir, instancesSubdir, fmt.Sprintf("%s_%d", id, epochMs))
}

// SaveDefinition upserts def as JSON, matching the default encoding the
// engine itself writes with (loadDefinition separately auto-detects YAML
// for hand-authored definitions).
func (s *FileStore) SaveDefinition(_ context.Context, def *domain.Definition) error {
	if def == nil || def.Name == "" {
		return tgerrors.Validation("definition name is required")
	}
	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return tgerrors.Store("marshal definition %q: %v", def.Name, err)
	}
	if err := atomicWrite(s.definitionPath(def.Name), data); err != nil {
		return tgerrors.Store("write definition %q: %v", def.Name, err)
	}
	return nil
}

// GetDefinition reads the definition named name.
func (s *FileStore) GetDefinition(_ context.Context, name string) (*domain.Definition, error) {
	data, err := os.ReadFile(s.definitionPath(name)) //#nosec G304 -- path built from the store's own directory
	if err != nil {
		if os.IsNotExist(err) {
			return nil, tgerrors.NotFound("definition %q", name)
		}
		return nil, tgerrors.Store("read definition %q: %v", name, err)
	}
	var def domain.Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, tgerrors.Store("parse definition %q: %v", name, err)
	}
	return &def, nil
}

// DeleteDefinition removes the definition named name.
func (s *FileStore) DeleteDefinition(_ context.Context, name string) error {
	path := s.definitionPath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return tgerrors.NotFound("definition %q", name)
	}
	if err := os.Remove(path); err != nil {
		return tgerrors.Store("delete definition %q: %v", name, err)
	}
	return nil
}

// LoadDefinition parses a definition from an external path, or from the
// store's own definitions directory when pathOrName names a saved
// definition with no path separator. Format is auto-detected by
// extension: ".yaml"/".yml" decodes as YAML, anything else as JSON (§6).
func (s *FileStore) LoadDefinition(ctx context.Context, pathOrName string) (*domain.Definition, error) {
	path := pathOrName
	if !strings.ContainsAny(pathOrName, `/\`) && filepath.Ext(pathOrName) == "" {
		return s.GetDefinition(ctx, pathOrName)
	}

	data, err := os.ReadFile(path) //#nosec G304 -- pathOrName is an operator-supplied definition source
	if err != nil {
		if os.IsNotExist(err) {
			return nil, tgerrors.NotFound("definition source %q", path)
		}
		return nil, tgerrors.Store("read definition source %q: %v", path, err)
	}

	var def domain.Definition
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		err = yaml.Unmarshal(data, &def)
	} else {
		err = json.Unmarshal(data, &def)
	}
	if err != nil {
		return nil, tgerrors.Store("parse definition source %q: %v", path, err)
	}
	return &def, nil
}

// SaveInstance archives the prior current record (if any) under a
// timestamp-suffixed key, then atomically writes inst as the new current
// record. The whole sequence runs under an exclusive file lock so a
// concurrent save for the same id cannot interleave.
func (s *FileStore) SaveInstance(ctx context.Context, inst *domain.WorkflowInstance) error {
	if inst == nil || inst.ID == "" {
		return tgerrors.Validation("instance id is required")
	}

	lock, err := lockWithContext(ctx, s.instanceLockPath(inst.ID))
	if err != nil {
		return tgerrors.Store("lock instance %q: %v", inst.ID, err)
	}
	defer func() { _ = lock.unlock() }()

	currentPath := s.instanceCurrentPath(inst.ID)
	if prior, err := os.ReadFile(currentPath); err == nil { //#nosec G304 -- path built from the store's own directory
		if archErr := atomicWrite(s.historyPath(inst.ID, time.Now().UnixMilli()), prior); archErr != nil {
			return tgerrors.Store("archive instance %q: %v", inst.ID, archErr)
		}
	} else if !os.IsNotExist(err) {
		return tgerrors.Store("read current instance %q: %v", inst.ID, err)
	}

	data, err := json.Marshal(inst)
	if err != nil {
		return tgerrors.Store("marshal instance %q: %v", inst.ID, err)
	}
	if err := atomicWrite(currentPath, data); err != nil {
		return tgerrors.Store("write instance %q: %v", inst.ID, err)
	}
	return nil
}

// LoadInstance returns the current record when rewind==0, or the
// historical record at position len(history)-rewind (clamped to the
// oldest available) otherwise.
func (s *FileStore) LoadInstance(_ context.Context, id string, rewind int) (*domain.WorkflowInstance, error) {
	path := s.instanceCurrentPath(id)
	if rewind > 0 {
		history, err := s.historyFiles(id)
		if err != nil {
			return nil, err
		}
		if len(history) == 0 {
			return nil, tgerrors.NotFound("history for instance %q", id)
		}
		idx := len(history) - rewind
		if idx < 0 {
			idx = 0
		}
		path = history[idx]
	}

	data, err := os.ReadFile(path) //#nosec G304 -- path built from the store's own directory
	if err != nil {
		if os.IsNotExist(err) {
			return nil, tgerrors.NotFound("instance %q", id)
		}
		return nil, tgerrors.Store("read instance %q: %v", id, err)
	}

	var inst domain.WorkflowInstance
	if err := json.Unmarshal(data, &inst); err != nil {
		return nil, tgerrors.Store("parse instance %q: %v", id, err)
	}
	return &inst, nil
}

// historyFiles returns the historical record paths for id, oldest first
// (the "<id>_<epoch-ms>" suffix sorts lexicographically by age).
func (s *FileStore) historyFiles(id string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, instancesSubdir))
	if err != nil {
		return nil, tgerrors.Store("list instance history for %q: %v", id, err)
	}
	prefix := id + "_"
	var matches []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		if _, err := strconv.ParseInt(strings.TrimPrefix(e.Name(), prefix), 10, 64); err != nil {
			continue
		}
		matches = append(matches, filepath.Join(s.dir, instancesSubdir, e.Name()))
	}
	sort.Strings(matches)
	return matches, nil
}

// DeleteInstance removes the current record and every historical record
// for id.
func (s *FileStore) DeleteInstance(_ context.Context, id string) error {
	currentPath := s.instanceCurrentPath(id)
	if _, err := os.Stat(currentPath); os.IsNotExist(err) {
		return tgerrors.NotFound("instance %q", id)
	}
	if err := os.Remove(currentPath); err != nil {
		return tgerrors.Store("delete instance %q: %v", id, err)
	}
	_ = os.Remove(s.instanceLockPath(id))

	history, err := s.historyFiles(id)
	if err != nil {
		return err
	}
	for _, p := range history {
		if err := os.Remove(p); err != nil {
			return tgerrors.Store("delete instance history %q: %v", id, err)
		}
	}
	return nil
}

// DeleteAll removes every instance current/history file, leaving
// definitions intact.
func (s *FileStore) DeleteAll(_ context.Context) error {
	dir := filepath.Join(s.dir, instancesSubdir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return tgerrors.Store("list instances: %v", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return tgerrors.Store("delete %q: %v", e.Name(), err)
		}
	}
	return nil
}

// GetWorkflows is unsupported by the file backend: it has no index to
// query against beyond a directory listing of opaque ids, so an ad-hoc
// query by name/status cannot be answered without loading and decoding
// every instance, which is rather a list than a query (§4.C: "backends
// that cannot support ad-hoc queries may fail with a capability error").
func (s *FileStore) GetWorkflows(_ context.Context, _ Query) ([]*domain.WorkflowInstance, error) {
	return nil, tgerrors.Capability("file store does not support querying workflows")
}

// atomicWrite writes data to path using a temp-file-then-rename, so a
// crash mid-write never leaves a torn current/history record.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm) //#nosec G304 -- path derived from the store's own directory
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
