package store

import (
	"fmt"

	"github.com/mrz1836/taskgraph/internal/constants"
)

// Open selects a backend from cfg: a non-empty Host builds a
// PostgresStore, otherwise a FileStore rooted at cfg.Dir (defaulting to
// constants.DefaultDBDir), matching the DB_TYPE/DB_DIR/DB_HOST/DB_PORT
// precedence documented in internal/config.
func Open(cfg Config) (Store, error) {
	if cfg.Host != "" {
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, sslModeOrDefault(cfg.SSLMode))
		return NewPostgresStore(dsn)
	}

	dir := cfg.Dir
	if dir == "" {
		dir = constants.DefaultDBDir
	}
	return NewFileStore(dir), nil
}

func sslModeOrDefault(mode string) string {
	if mode == "" {
		return "disable"
	}
	return mode
}
