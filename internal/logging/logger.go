package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mrz1836/taskgraph/internal/config"
	"github.com/mrz1836/taskgraph/internal/constants"
)

func init() {
	zerolog.TimestampFieldName = "ts"
	zerolog.MessageFieldName = "event"
}

// LevelFor maps the §4.G setLogLevel enumeration onto a zerolog.Level and
// whether the "verbose" marker field should be attached. Unknown levels
// fall back to constants.DefaultLogLevel (info); callers that need to
// surface the fallback should check constants.IsValidLogLevel first.
func LevelFor(level constants.LogLevel) (zerolog.Level, bool) {
	switch level {
	case constants.LogLevelDebug:
		return zerolog.DebugLevel, false
	case constants.LogLevelVerbose:
		return zerolog.DebugLevel, true
	case constants.LogLevelWarn:
		return zerolog.WarnLevel, false
	case constants.LogLevelError:
		return zerolog.ErrorLevel, false
	case constants.LogLevelInfo:
		return zerolog.InfoLevel, false
	default:
		return zerolog.InfoLevel, false
	}
}

// Init builds a zerolog.Logger from cfg: a console writer (or JSON, when
// cfg.JSON is set or stderr is not a terminal) optionally fanned out to a
// rotating file sink, with the redaction hook attached either way. The
// returned io.Closer closes the file sink, if one was opened; callers
// should defer its Close at shutdown (§4.G Close semantics).
func Init(cfg config.LoggingConfig) (zerolog.Logger, io.Closer, error) {
	level, verbose := LevelFor(constants.LogLevel(cfg.Level))

	console := selectConsole(cfg.JSON)
	hook := NewSensitiveDataHook()

	var writer io.Writer = console
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		fw, err := newFileWriter(cfg)
		if err != nil {
			return zerolog.Logger{}, nopCloser{}, fmt.Errorf("open log file: %w", err)
		}
		writer = zerolog.MultiLevelWriter(console, fw)
		closer = fw
	}

	builder := zerolog.New(writer).Level(level).Hook(hook).With().Timestamp()
	if verbose {
		builder = builder.Bool("verbose", true)
	}
	return builder.Logger(), closer, nil
}

// selectConsole picks a console writer for TTY output, or stderr directly
// (JSON lines) when forceJSON is set or stderr is not a terminal.
func selectConsole(forceJSON bool) io.Writer {
	if !forceJSON && isTerminal(os.Stderr) && os.Getenv("NO_COLOR") == "" {
		return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	return os.Stderr
}

// isTerminal reports whether f is a character device, a dependency-free
// stand-in for a TTY check (no golang.org/x/term wiring needed here).
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// filteringWriteCloser pairs a FilteringWriter with the underlying
// lumberjack.Logger's Close, so rotation cleanup still happens through
// the redacting wrapper.
type filteringWriteCloser struct {
	filter *FilteringWriter
	closer io.Closer
}

func (fwc *filteringWriteCloser) Write(p []byte) (int, error) { return fwc.filter.Write(p) }
func (fwc *filteringWriteCloser) Close() error                { return fwc.closer.Close() }

// newFileWriter builds a rotating, redacting file sink for cfg.File.
func newFileWriter(cfg config.LoggingConfig) (io.WriteCloser, error) {
	if dir := filepath.Dir(cfg.File); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	return &filteringWriteCloser{filter: NewFilteringWriter(lj), closer: lj}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
