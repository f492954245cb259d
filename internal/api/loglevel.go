package api

import (
	"github.com/mrz1836/taskgraph/internal/constants"
	"github.com/mrz1836/taskgraph/internal/logging"
)

// SetLogLevel validates level against the §4.G enumeration and, on a
// match, rebuilds the logger (and the Scheduler/Driver that hold a copy
// of it) at the new level. An unknown level logs a warning at the
// current level and falls back to constants.DefaultLogLevel, rather than
// returning an error — matching the "clamp + warn" posture used
// elsewhere in the engine for out-of-range input (e.g. --rewind, §8).
func (a *API) SetLogLevel(level string) {
	requested := constants.LogLevel(level)

	a.mu.Lock()
	defer a.mu.Unlock()

	if !constants.IsValidLogLevel(requested) {
		a.logger.Warn().Str("requested_level", level).Msg("unknown log level, defaulting to info")
		requested = constants.DefaultLogLevel
	}

	zlevel, verbose := logging.LevelFor(requested)
	ctx := a.logger.Level(zlevel).With()
	if verbose {
		ctx = ctx.Bool("verbose", true)
	}
	a.logger = ctx.Logger()
	a.rebuildDriver()
}
