package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteRunsFileFlagEndToEnd(t *testing.T) {
	setFileBackendEnv(t)
	defPath := writeDefinitionFile(t, "def.json", noopDefinition)

	flags := &Flags{}
	cmd := newRootCmd(flags, BuildInfo{})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--file", defPath})

	require.NoError(t, cmd.ExecuteContext(context.Background()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "completed", decoded["status"])
}

func TestExecuteSurfacesErrorForMissingFile(t *testing.T) {
	setFileBackendEnv(t)

	flags := &Flags{}
	cmd := newRootCmd(flags, BuildInfo{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--file", filepath.Join(t.TempDir(), "missing.json")})

	err := cmd.ExecuteContext(context.Background())
	assert.Error(t, err)
	assert.Equal(t, ExitError, ExitCodeForError(err))
}

func TestFormatVersionFillsDefaults(t *testing.T) {
	assert.Equal(t, "dev (commit: none, built: unknown)", formatVersion(BuildInfo{}))
	assert.Equal(t, "1.2.3 (commit: abc, built: today)", formatVersion(BuildInfo{Version: "1.2.3", Commit: "abc", Date: "today"}))
}

func TestMain_doesNotPanicOnHelp(t *testing.T) {
	flags := &Flags{}
	cmd := newRootCmd(flags, BuildInfo{})
	cmd.SetArgs([]string{"--help"})
	cmd.SetOut(&bytes.Buffer{})
	_ = cmd.ExecuteContext(context.Background())
}
