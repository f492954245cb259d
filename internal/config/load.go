package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/mrz1836/taskgraph/internal/constants"
	tgerrors "github.com/mrz1836/taskgraph/internal/errors"
)

// ProjectConfigFileName is the project-level config file consulted by
// Load, relative to the current working directory.
const ProjectConfigFileName = "taskgraph.yaml"

// Load reads configuration from all available sources with proper
// precedence, highest first:
//  1. Environment variables (TASKGRAPH_* prefix)
//  2. Project config (./taskgraph.yaml)
//  3. Built-in defaults
//
// A missing project config file is not an error. For CLI flag overrides,
// use LoadWithOverrides.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TASKGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := loadProjectConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, tgerrors.Validation("unmarshal config: %v", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadWithOverrides loads the base configuration, then applies any
// non-zero fields from overrides on top (CLI flags have the highest
// precedence in the hierarchy).
func LoadWithOverrides(overrides *Config) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if overrides != nil {
		applyOverrides(cfg, overrides)
	}

	if err := Validate(cfg); err != nil {
		return nil, tgerrors.Wrap(err, "invalid configuration after overrides")
	}

	return cfg, nil
}

// loadProjectConfig merges ./taskgraph.yaml into v if it exists. A missing
// file is skipped silently, matching the teacher's "expected in many
// scenarios" posture around optional config files.
func loadProjectConfig(v *viper.Viper) error {
	if _, err := os.Stat(ProjectConfigFileName); err != nil {
		return nil
	}

	v.SetConfigFile(ProjectConfigFileName)
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return tgerrors.Wrap(tgerrors.Validation("read project config: %v", err), ProjectConfigFileName)
		}
	}
	return nil
}

// setDefaults configures every default value on v. Keys must match the
// mapstructure/yaml tag names exactly for the unmarshal to land correctly.
func setDefaults(v *viper.Viper) {
	v.SetDefault("db.type", string(constants.DefaultDBType))
	v.SetDefault("db.dir", constants.DefaultDBDir)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "taskgraph")
	v.SetDefault("db.ssl_mode", "disable")

	v.SetDefault("logging.level", string(constants.DefaultLogLevel))
	v.SetDefault("logging.json", false)
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)

	v.SetDefault("engine.batch_concurrency", constants.DefaultBatchConcurrency)
	v.SetDefault("engine.save_timeout", 30*time.Second)
}

// applyOverrides copies every non-zero field of overrides onto cfg. Bool
// fields (Logging.JSON) cannot be overridden to false this way, the same
// caveat the teacher documents for its own boolean flags: CLI code should
// apply `cmd.Flags().Changed(...)` directly for those.
func applyOverrides(cfg, overrides *Config) {
	if overrides.DB.Type != "" {
		cfg.DB.Type = overrides.DB.Type
	}
	if overrides.DB.Dir != "" {
		cfg.DB.Dir = overrides.DB.Dir
	}
	if overrides.DB.Host != "" {
		cfg.DB.Host = overrides.DB.Host
	}
	if overrides.DB.Port != 0 {
		cfg.DB.Port = overrides.DB.Port
	}
	if overrides.DB.Name != "" {
		cfg.DB.Name = overrides.DB.Name
	}
	if overrides.DB.User != "" {
		cfg.DB.User = overrides.DB.User
	}
	if overrides.DB.Password != "" {
		cfg.DB.Password = overrides.DB.Password
	}
	if overrides.DB.SSLMode != "" {
		cfg.DB.SSLMode = overrides.DB.SSLMode
	}

	if overrides.Logging.Level != "" {
		cfg.Logging.Level = overrides.Logging.Level
	}
	if overrides.Logging.File != "" {
		cfg.Logging.File = overrides.Logging.File
	}

	if overrides.Engine.BatchConcurrency != 0 {
		cfg.Engine.BatchConcurrency = overrides.Engine.BatchConcurrency
	}
	if overrides.Engine.SaveTimeout != 0 {
		cfg.Engine.SaveTimeout = overrides.Engine.SaveTimeout
	}
}

// viperDecoderOption configures mapstructure to handle time.Duration
// conversion from strings (e.g. "30s" in taskgraph.yaml).
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	)
}

// DSN builds a "postgres://" connection string for the document-store
// backend from DBConfig, suitable for store.NewPostgresStore.
func (c DBConfig) DSN() string {
	userInfo := ""
	if c.User != "" {
		userInfo = c.User
		if c.Password != "" {
			userInfo += ":" + c.Password
		}
		userInfo += "@"
	}
	return fmt.Sprintf("postgres://%s%s:%d/%s?sslmode=%s", userInfo, c.Host, c.Port, c.Name, c.SSLMode)
}
