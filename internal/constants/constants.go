// Package constants is the single source of truth for shared constant
// values used throughout taskgraph. This package MUST NOT import any
// other internal package.
package constants

import "time"

// Environment variable names recognized by the engine (§6).
const (
	// EnvDBType selects the store backend: "file" or "document-store".
	EnvDBType = "DB_TYPE"

	// EnvDBDir is the directory used by the file backend.
	EnvDBDir = "DB_DIR"

	// EnvDBHost is the host used by document-store backends.
	EnvDBHost = "DB_HOST"

	// EnvDBPort is the port used by document-store backends.
	EnvDBPort = "DB_PORT"
)

// DBType identifies which persistence backend is active.
type DBType string

// Supported store backends.
const (
	DBTypeFile          DBType = "file"
	DBTypeDocumentStore DBType = "document-store"
)

// DefaultDBType is used when DB_TYPE is unset.
const DefaultDBType = DBTypeFile

// DefaultDBDir is used when DB_DIR is unset.
const DefaultDBDir = "_data"

// Definition and instance file naming (§6 persisted state layout).
const (
	// DefinitionFileExt is the suffix used for persisted definition files.
	DefinitionFileExt = ".def"
)

// LockTimeout is the maximum duration to wait for acquiring a file lock
// around a store save (§4.C).
const LockTimeout = 5 * time.Second

// LockRetryInterval is how often an exclusive file lock acquisition is retried.
const LockRetryInterval = 50 * time.Millisecond

// DefaultBatchConcurrency bounds how many runnable tasks a single scheduler
// pass dispatches in parallel when the caller does not override it.
const DefaultBatchConcurrency = 16
