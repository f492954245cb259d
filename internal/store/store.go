// Package store abstracts durable persistence of definitions, running
// instances, and instance history behind a single interface (§4.C), with
// two backends: a file-based store grounded on the teacher's
// internal/task and internal/hook stores, and a Postgres-backed
// document-style store for multi-process deployments.
package store

import (
	"context"

	"github.com/mrz1836/taskgraph/internal/domain"
)

// Config configures whichever backend Open selects.
type Config struct {
	// Dir is the root directory for the file backend.
	Dir string

	// Host, Port, and the remaining fields configure the Postgres
	// backend; Host empty means "use the file backend".
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// Store is the persistence contract every backend must satisfy (§4.C).
// All methods are context-aware so a caller can bound retries or cancel
// on shutdown; none block on unrelated in-flight operations.
type Store interface {
	// InitStore prepares the backend for use. Idempotent.
	InitStore(ctx context.Context) error

	// ExitStore releases backend resources. Idempotent.
	ExitStore(ctx context.Context) error

	// SaveDefinition upserts def by def.Name.
	SaveDefinition(ctx context.Context, def *domain.Definition) error

	// GetDefinition returns the definition named name, or ErrNotFound.
	GetDefinition(ctx context.Context, name string) (*domain.Definition, error)

	// DeleteDefinition removes the definition named name, or ErrNotFound.
	DeleteDefinition(ctx context.Context, name string) error

	// LoadDefinition parses a definition from an external JSON or YAML
	// source identified by pathOrName, auto-detecting format by
	// extension (§6).
	LoadDefinition(ctx context.Context, pathOrName string) (*domain.Definition, error)

	// SaveInstance atomically archives the current record for inst.ID
	// (if one exists) under a timestamp-suffixed key, then writes inst
	// as the new current record.
	SaveInstance(ctx context.Context, inst *domain.WorkflowInstance) error

	// LoadInstance returns the current record for id when rewind==0, or
	// the historical record at position len(history)-rewind (clamped to
	// the oldest available) when rewind>0.
	LoadInstance(ctx context.Context, id string, rewind int) (*domain.WorkflowInstance, error)

	// DeleteInstance removes the current record and all history for id.
	DeleteInstance(ctx context.Context, id string) error

	// DeleteAll removes every instance and its history, leaving
	// definitions untouched.
	DeleteAll(ctx context.Context) error

	// GetWorkflows returns instances matching query. Backends that
	// cannot support ad-hoc queries fail with ErrCapability.
	GetWorkflows(ctx context.Context, query Query) ([]*domain.WorkflowInstance, error)
}

// Query narrows a GetWorkflows call. An empty Query matches everything a
// capable backend can enumerate.
type Query struct {
	Name   string
	Status string
}
