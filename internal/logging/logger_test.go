package logging_test

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/taskgraph/internal/config"
	"github.com/mrz1836/taskgraph/internal/constants"
	"github.com/mrz1836/taskgraph/internal/logging"
)

func TestLevelForMapsTheFullEnumeration(t *testing.T) {
	t.Parallel()

	cases := []struct {
		level         constants.LogLevel
		expectedLevel zerolog.Level
		expectVerbose bool
	}{
		{constants.LogLevelDebug, zerolog.DebugLevel, false},
		{constants.LogLevelVerbose, zerolog.DebugLevel, true},
		{constants.LogLevelInfo, zerolog.InfoLevel, false},
		{constants.LogLevelWarn, zerolog.WarnLevel, false},
		{constants.LogLevelError, zerolog.ErrorLevel, false},
	}

	for _, tc := range cases {
		lvl, verbose := logging.LevelFor(tc.level)
		assert.Equal(t, tc.expectedLevel, lvl)
		assert.Equal(t, tc.expectVerbose, verbose)
	}
}

func TestLevelForUnknownFallsBackToInfo(t *testing.T) {
	t.Parallel()
	lvl, verbose := logging.LevelFor("nonsense")
	assert.Equal(t, zerolog.InfoLevel, lvl)
	assert.False(t, verbose)
}

func TestInitWithFileSinkWritesAndCloses(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "taskgraph.log")
	logger, closer, err := logging.Init(config.LoggingConfig{
		Level: "info", File: logPath, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1,
	})
	require.NoError(t, err)
	require.NotNil(t, closer)

	logger.Info().Msg("hello")
	assert.NoError(t, closer.Close())
}

func TestInitConsoleOnlyWhenNoFileConfigured(t *testing.T) {
	t.Parallel()

	logger, closer, err := logging.Init(config.LoggingConfig{Level: "debug"})
	require.NoError(t, err)
	logger.Debug().Msg("no file sink")
	assert.NoError(t, closer.Close())
}
