package config

import (
	"github.com/mrz1836/taskgraph/internal/constants"
	tgerrors "github.com/mrz1836/taskgraph/internal/errors"
)

// Validate checks the configuration for invalid or inconsistent values. It
// returns an error describing the first validation failure found.
func Validate(cfg *Config) error {
	if cfg == nil {
		return tgerrors.Validation("config is nil")
	}

	if err := validateDB(&cfg.DB); err != nil {
		return err
	}
	if err := validateLogging(&cfg.Logging); err != nil {
		return err
	}
	if err := validateEngine(&cfg.Engine); err != nil {
		return err
	}

	return nil
}

func validateDB(cfg *DBConfig) error {
	switch constants.DBType(cfg.Type) {
	case constants.DBTypeFile, constants.DBTypeDocumentStore:
	default:
		return tgerrors.Validation("db.type must be %q or %q, got %q",
			constants.DBTypeFile, constants.DBTypeDocumentStore, cfg.Type)
	}

	if constants.DBType(cfg.Type) == constants.DBTypeFile && cfg.Dir == "" {
		return tgerrors.Validation("db.dir must not be empty for the file backend")
	}

	if constants.DBType(cfg.Type) == constants.DBTypeDocumentStore {
		if cfg.Host == "" {
			return tgerrors.Validation("db.host must not be empty for the document-store backend")
		}
		if cfg.Port <= 0 || cfg.Port > 65535 {
			return tgerrors.Validation("db.port must be between 1 and 65535, got %d", cfg.Port)
		}
	}

	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	if !constants.IsValidLogLevel(constants.LogLevel(cfg.Level)) {
		return tgerrors.Validation("logging.level %q is not one of the supported levels", cfg.Level)
	}
	return nil
}

func validateEngine(cfg *EngineConfig) error {
	if cfg.BatchConcurrency <= 0 {
		return tgerrors.Validation("engine.batch_concurrency must be positive, got %d", cfg.BatchConcurrency)
	}
	if cfg.SaveTimeout <= 0 {
		return tgerrors.Validation("engine.save_timeout must be positive, got %s", cfg.SaveTimeout)
	}
	return nil
}
