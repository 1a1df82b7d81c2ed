package trace

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hdlforge/go-hdlforge/src/events"
)

// PostgresStore persists traces in Postgres.
type PostgresStore struct {
	DB *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and returns a Postgres-backed Store.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	return &PostgresStore{DB: db}, nil
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS agent_events (
        id BIGSERIAL PRIMARY KEY,
        session_id TEXT NOT NULL DEFAULT '',
        agent_id TEXT NOT NULL DEFAULT '',
        kind TEXT NOT NULL,
        payload JSONB NOT NULL,
        created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS agent_events_session_idx ON agent_events (session_id, id);

CREATE TABLE IF NOT EXISTS agent_tasks (
        id TEXT PRIMARY KEY,
        session_id TEXT NOT NULL DEFAULT '',
        agent_id TEXT NOT NULL DEFAULT '',
        description TEXT NOT NULL,
        status TEXT NOT NULL,
        output TEXT NOT NULL DEFAULT '',
        error TEXT NOT NULL DEFAULT '',
        artifacts JSONB NOT NULL DEFAULT '[]'::jsonb,
        duration_ms BIGINT NOT NULL DEFAULT 0,
        created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS agent_tasks_session_idx ON agent_tasks (session_id, created_at);
`

// CreateSchema ensures the trace tables exist.
func (ps *PostgresStore) CreateSchema(ctx context.Context) error {
	if ps == nil || ps.DB == nil {
		return nil
	}
	if _, err := ps.DB.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create trace schema: %w", err)
	}
	return nil
}

func (ps *PostgresStore) AppendEvent(ctx context.Context, event events.Event) error {
	if ps == nil || ps.DB == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = ps.DB.Exec(ctx, `
                INSERT INTO agent_events (session_id, agent_id, kind, payload, created_at)
                VALUES ($1, $2, $3, $4::jsonb, $5);
        `, event.SessionID, event.AgentID, string(event.Kind), payload, event.Time)
	return err
}

func (ps *PostgresStore) SaveTask(ctx context.Context, task TaskRecord) error {
	if ps == nil || ps.DB == nil {
		return nil
	}
	artifacts, _ := json.Marshal(task.Artifacts)
	_, err := ps.DB.Exec(ctx, `
                INSERT INTO agent_tasks (id, session_id, agent_id, description, status, output, error, artifacts, duration_ms, created_at)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10)
                ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, output = EXCLUDED.output, error = EXCLUDED.error;
        `, task.ID, task.SessionID, task.AgentID, task.Description, task.Status,
		task.Output, task.Error, artifacts, task.Duration.Milliseconds(), task.CreatedAt)
	return err
}

func (ps *PostgresStore) History(ctx context.Context, sessionID string, limit int) ([]events.Event, error) {
	if ps == nil || ps.DB == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := ps.DB.Query(ctx, `
                SELECT payload FROM (
                        SELECT id, payload FROM agent_events
                        WHERE ($1 = '' OR session_id = $1)
                        ORDER BY id DESC LIMIT $2
                ) recent ORDER BY id ASC;
        `, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var ev events.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (ps *PostgresStore) Tasks(ctx context.Context, sessionID string, limit int) ([]TaskRecord, error) {
	if ps == nil || ps.DB == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := ps.DB.Query(ctx, `
                SELECT id, session_id, agent_id, description, status, output, error, artifacts, duration_ms, created_at
                FROM agent_tasks
                WHERE ($1 = '' OR session_id = $1)
                ORDER BY created_at ASC LIMIT $2;
        `, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TaskRecord
	for rows.Next() {
		var rec TaskRecord
		var artifacts []byte
		var durationMS int64
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.AgentID, &rec.Description,
			&rec.Status, &rec.Output, &rec.Error, &artifacts, &durationMS, &rec.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(artifacts, &rec.Artifacts)
		rec.Duration = durationFromMillis(durationMS)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close releases the underlying connection pool.
func (ps *PostgresStore) Close(context.Context) error {
	if ps == nil || ps.DB == nil {
		return nil
	}
	ps.DB.Close()
	return nil
}

var _ Store = (*PostgresStore)(nil)
