// Package config provides configuration management for taskgraph with
// layered precedence.
//
// Configuration sources are loaded in the following order (highest
// precedence first):
//  1. CLI flag overrides (passed via LoadWithOverrides)
//  2. Environment variables (TASKGRAPH_* prefix)
//  3. Project config (./taskgraph.yaml)
//  4. Built-in defaults
//
// Each higher level completely overrides the lower level for the same key.
//
// IMPORTANT: this package may import internal/constants and internal/errors,
// but MUST NOT import internal/domain, internal/store, or internal/engine.
package config

import "time"

// Config is the root configuration structure for taskgraph.
type Config struct {
	// DB selects and configures the persistence backend (§4.C, §6).
	DB DBConfig `yaml:"db" mapstructure:"db"`

	// Logging controls the zerolog setup (§2 ambient stack).
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// Engine tunes the Scheduler's dispatch behavior (§4.E, §5).
	Engine EngineConfig `yaml:"engine" mapstructure:"engine"`
}

// DBConfig selects and configures the active store backend.
type DBConfig struct {
	// Type is "file" or "document-store" (internal/constants.DBType).
	// Default: "file"
	Type string `yaml:"type" mapstructure:"type"`

	// Dir is the root directory used by the file backend.
	// Default: "_data"
	Dir string `yaml:"dir" mapstructure:"dir"`

	// Host is the document-store backend's host.
	Host string `yaml:"host" mapstructure:"host"`

	// Port is the document-store backend's port.
	Port int `yaml:"port" mapstructure:"port"`

	// Name is the database/schema name for the document-store backend.
	Name string `yaml:"name" mapstructure:"name"`

	// User is the document-store backend's connection user.
	User string `yaml:"user" mapstructure:"user"`

	// Password is the document-store backend's connection password.
	// Left unset when the backend trusts local connections.
	Password string `yaml:"password" mapstructure:"password"`

	// SSLMode is passed straight through to lib/pq (e.g. "disable",
	// "require"). Default: "disable", matching a local dev Postgres.
	SSLMode string `yaml:"ssl_mode" mapstructure:"ssl_mode"`
}

// LoggingConfig controls the zerolog setup (internal/logging).
type LoggingConfig struct {
	// Level is one of debug/verbose/info/warn/error (§4.G setLogLevel).
	// Default: "info"
	Level string `yaml:"level" mapstructure:"level"`

	// JSON forces structured JSON output instead of the console writer,
	// regardless of whether stdout is a TTY.
	JSON bool `yaml:"json" mapstructure:"json"`

	// File, when non-empty, mirrors log output to a rotating file via
	// lumberjack alongside the console/JSON writer.
	File string `yaml:"file" mapstructure:"file"`

	// MaxSizeMB is the rotation threshold for File, in megabytes.
	// Default: 100
	MaxSizeMB int `yaml:"max_size_mb" mapstructure:"max_size_mb"`

	// MaxBackups is how many rotated files lumberjack retains.
	// Default: 3
	MaxBackups int `yaml:"max_backups" mapstructure:"max_backups"`

	// MaxAgeDays is how long lumberjack retains rotated files.
	// Default: 28
	MaxAgeDays int `yaml:"max_age_days" mapstructure:"max_age_days"`
}

// EngineConfig tunes the Scheduler's dispatch behavior.
type EngineConfig struct {
	// BatchConcurrency bounds how many runnable tasks one scheduler pass
	// dispatches in parallel (§4.E.5, §5 "Scheduling model").
	// Default: constants.DefaultBatchConcurrency
	BatchConcurrency int `yaml:"batch_concurrency" mapstructure:"batch_concurrency"`

	// SaveTimeout bounds a single store save/load call.
	// Default: 30s
	SaveTimeout time.Duration `yaml:"save_timeout" mapstructure:"save_timeout"`
}
