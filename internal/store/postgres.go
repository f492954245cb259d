package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // registers the "postgres" database/sql driver

	"github.com/mrz1836/taskgraph/internal/domain"
	tgerrors "github.com/mrz1836/taskgraph/internal/errors"
)

// schemaDDL creates the document-style tables the PostgresStore models
// each collection as: one JSONB payload column plus the indexed columns
// needed to satisfy saveInstance's archive-then-write contract and
// getWorkflows' name/status query.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS definitions (
	name       TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS instances (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	status     TEXT NOT NULL,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS instances_history (
	id          TEXT NOT NULL,
	saved_at_ms BIGINT NOT NULL,
	payload     JSONB NOT NULL,
	PRIMARY KEY (id, saved_at_ms)
);

CREATE INDEX IF NOT EXISTS instances_history_id_idx ON instances_history (id, saved_at_ms);
CREATE INDEX IF NOT EXISTS instances_name_idx ON instances (name);
CREATE INDEX IF NOT EXISTS instances_status_idx ON instances (status);
`

// PostgresStore implements Store as a document-style backend over
// Postgres JSONB columns, using database/sql with the plain lib/pq
// driver directly (no ORM), the way the pack's pgvector provider opens
// its connection (`sql.Open("postgres", ...)`) rather than through a
// generated query layer.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore opens a connection pool against connStr (a standard
// "postgres://" DSN). The connection is not established until InitStore
// runs its first ping.
func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, tgerrors.Store("open postgres connection: %v", err)
	}
	return &PostgresStore{db: db}, nil
}

// InitStore pings the connection and creates the schema if absent.
// Idempotent.
func (s *PostgresStore) InitStore(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return tgerrors.Store("connect to postgres: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return tgerrors.Store("create schema: %v", err)
	}
	return nil
}

// ExitStore closes the connection pool. Idempotent.
func (s *PostgresStore) ExitStore(_ context.Context) error {
	return s.db.Close()
}

// SaveDefinition upserts def by name.
func (s *PostgresStore) SaveDefinition(ctx context.Context, def *domain.Definition) error {
	if def == nil || def.Name == "" {
		return tgerrors.Validation("definition name is required")
	}
	payload, err := json.Marshal(def)
	if err != nil {
		return tgerrors.Store("marshal definition %q: %v", def.Name, err)
	}
	const q = `
INSERT INTO definitions (name, payload, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()
`
	if _, err := s.db.ExecContext(ctx, q, def.Name, payload); err != nil {
		return tgerrors.Store("upsert definition %q: %v", def.Name, err)
	}
	return nil
}

// GetDefinition reads the definition named name.
func (s *PostgresStore) GetDefinition(ctx context.Context, name string) (*domain.Definition, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM definitions WHERE name = $1`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tgerrors.NotFound("definition %q", name)
	}
	if err != nil {
		return nil, tgerrors.Store("query definition %q: %v", name, err)
	}
	var def domain.Definition
	if err := json.Unmarshal(payload, &def); err != nil {
		return nil, tgerrors.Store("parse definition %q: %v", name, err)
	}
	return &def, nil
}

// DeleteDefinition removes the definition named name.
func (s *PostgresStore) DeleteDefinition(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM definitions WHERE name = $1`, name)
	if err != nil {
		return tgerrors.Store("delete definition %q: %v", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return tgerrors.NotFound("definition %q", name)
	}
	return nil
}

// LoadDefinition parses a definition from name (a saved definition) or,
// when pathOrName looks like a file path, from an external JSON/YAML
// source via the same auto-detection rule as the file backend.
func (s *PostgresStore) LoadDefinition(ctx context.Context, pathOrName string) (*domain.Definition, error) {
	if !strings.ContainsAny(pathOrName, `/\`) {
		return s.GetDefinition(ctx, pathOrName)
	}
	fileBackend := &FileStore{}
	return fileBackend.LoadDefinition(ctx, pathOrName)
}

// SaveInstance archives the prior current row (if any) into
// instances_history, then upserts inst into instances. Both statements
// run inside one transaction so a crash mid-save never leaves a current
// row without its matching history entry.
func (s *PostgresStore) SaveInstance(ctx context.Context, inst *domain.WorkflowInstance) error {
	if inst == nil || inst.ID == "" {
		return tgerrors.Validation("instance id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return tgerrors.Store("begin transaction: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	var priorPayload []byte
	err = tx.QueryRowContext(ctx, `SELECT payload FROM instances WHERE id = $1`, inst.ID).Scan(&priorPayload)
	switch {
	case err == nil:
		if _, archErr := tx.ExecContext(ctx,
			`INSERT INTO instances_history (id, saved_at_ms, payload) VALUES ($1, $2, $3)`,
			inst.ID, time.Now().UnixMilli(), priorPayload); archErr != nil {
			return tgerrors.Store("archive instance %q: %v", inst.ID, archErr)
		}
	case errors.Is(err, sql.ErrNoRows):
		// first save; nothing to archive
	default:
		return tgerrors.Store("read current instance %q: %v", inst.ID, err)
	}

	payload, err := json.Marshal(inst)
	if err != nil {
		return tgerrors.Store("marshal instance %q: %v", inst.ID, err)
	}
	const upsert = `
INSERT INTO instances (id, name, status, payload, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, status = EXCLUDED.status, payload = EXCLUDED.payload, updated_at = now()
`
	if _, err := tx.ExecContext(ctx, upsert, inst.ID, inst.Name, inst.Status, payload); err != nil {
		return tgerrors.Store("upsert instance %q: %v", inst.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return tgerrors.Store("commit instance %q: %v", inst.ID, err)
	}
	return nil
}

// LoadInstance returns the current row when rewind==0, or the historical
// row at position len(history)-rewind (clamped to the oldest) otherwise.
func (s *PostgresStore) LoadInstance(ctx context.Context, id string, rewind int) (*domain.WorkflowInstance, error) {
	if rewind == 0 {
		var payload []byte
		err := s.db.QueryRowContext(ctx, `SELECT payload FROM instances WHERE id = $1`, id).Scan(&payload)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tgerrors.NotFound("instance %q", id)
		}
		if err != nil {
			return nil, tgerrors.Store("query instance %q: %v", id, err)
		}
		return decodeInstance(id, payload)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM instances_history WHERE id = $1 ORDER BY saved_at_ms ASC`, id)
	if err != nil {
		return nil, tgerrors.Store("query instance history %q: %v", id, err)
	}
	defer func() { _ = rows.Close() }()

	var payloads [][]byte
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, tgerrors.Store("scan instance history %q: %v", id, err)
		}
		payloads = append(payloads, payload)
	}
	if len(payloads) == 0 {
		return nil, tgerrors.NotFound("history for instance %q", id)
	}

	idx := len(payloads) - rewind
	if idx < 0 {
		idx = 0
	}
	return decodeInstance(id, payloads[idx])
}

func decodeInstance(id string, payload []byte) (*domain.WorkflowInstance, error) {
	var inst domain.WorkflowInstance
	if err := json.Unmarshal(payload, &inst); err != nil {
		return nil, tgerrors.Store("parse instance %q: %v", id, err)
	}
	return &inst, nil
}

// DeleteInstance removes the current row and all history for id.
func (s *PostgresStore) DeleteInstance(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return tgerrors.Store("begin transaction: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM instances WHERE id = $1`, id)
	if err != nil {
		return tgerrors.Store("delete instance %q: %v", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return tgerrors.NotFound("instance %q", id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM instances_history WHERE id = $1`, id); err != nil {
		return tgerrors.Store("delete instance history %q: %v", id, err)
	}
	if err := tx.Commit(); err != nil {
		return tgerrors.Store("commit delete %q: %v", id, err)
	}
	return nil
}

// DeleteAll removes every instance and its history, leaving definitions
// intact.
func (s *PostgresStore) DeleteAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return tgerrors.Store("begin transaction: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM instances_history`); err != nil {
		return tgerrors.Store("delete all instance history: %v", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM instances`); err != nil {
		return tgerrors.Store("delete all instances: %v", err)
	}
	if err := tx.Commit(); err != nil {
		return tgerrors.Store("commit delete all: %v", err)
	}
	return nil
}

// GetWorkflows supports an ad-hoc query by name and/or status, the
// capability the file backend cannot offer — the document-style schema
// indexes both columns precisely so this query stays index-backed.
func (s *PostgresStore) GetWorkflows(ctx context.Context, query Query) ([]*domain.WorkflowInstance, error) {
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 2)
	if query.Name != "" {
		args = append(args, query.Name)
		clauses = append(clauses, fmt.Sprintf("name = $%d", len(args)))
	}
	if query.Status != "" {
		args = append(args, query.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}

	q := `SELECT id, payload FROM instances`
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}
	q += " ORDER BY updated_at DESC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, tgerrors.Store("query workflows: %v", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.WorkflowInstance
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, tgerrors.Store("scan workflow row: %v", err)
		}
		inst, err := decodeInstance(id, payload)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}
