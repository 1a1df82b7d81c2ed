package trace

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Lineage records which task produced which artifact and answers provenance
// queries over that graph. Backed by Neo4j in production; the driver sits
// behind a small interface so tests can supply fakes.
type Lineage interface {
	RecordLineage(ctx context.Context, task TaskRecord) error
	Artifacts(ctx context.Context, sessionID string, limit int) ([]string, error)
	ProducedBy(ctx context.Context, artifact string) ([]string, error)
	Close(ctx context.Context) error
}

// graphDriver abstracts the Neo4j driver capabilities the lineage store
// needs.
type graphDriver interface {
	ExecuteWrite(ctx context.Context, query string, params map[string]any) error
	ExecuteRead(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
	Close(ctx context.Context) error
}

// ErrGraphUnavailable is returned when lineage operations are attempted
// without a configured driver.
var ErrGraphUnavailable = errors.New("graph driver not configured")

// Neo4jLineage persists the task→artifact graph in Neo4j.
type Neo4jLineage struct {
	driver graphDriver
	nowFn  func() time.Time
}

// NewNeo4jLineage wraps a graph driver. Use NewNeo4jDriverAdapter to supply
// the real Neo4j driver.
func NewNeo4jLineage(driver graphDriver) (*Neo4jLineage, error) {
	if driver == nil {
		return nil, ErrGraphUnavailable
	}
	return &Neo4jLineage{driver: driver, nowFn: time.Now}, nil
}

// RecordLineage upserts the task node and a PRODUCED edge per artifact.
func (l *Neo4jLineage) RecordLineage(ctx context.Context, task TaskRecord) error {
	if l == nil || l.driver == nil {
		return ErrGraphUnavailable
	}
	if task.ID == "" {
		return errors.New("task id is required")
	}

	err := l.driver.ExecuteWrite(ctx, `
                MERGE (t:Task {id: $id})
                SET t.session_id = $session_id,
                    t.agent_id = $agent_id,
                    t.description = $description,
                    t.status = $status,
                    t.recorded_at = $recorded_at
        `, map[string]any{
		"id":          task.ID,
		"session_id":  task.SessionID,
		"agent_id":    task.AgentID,
		"description": task.Description,
		"status":      task.Status,
		"recorded_at": l.nowFn().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("record task node: %w", err)
	}

	for _, artifact := range task.Artifacts {
		if artifact == "" {
			continue
		}
		err := l.driver.ExecuteWrite(ctx, `
                        MATCH (t:Task {id: $id})
                        MERGE (a:Artifact {path: $path})
                        MERGE (t)-[:PRODUCED]->(a)
                `, map[string]any{"id": task.ID, "path": artifact})
		if err != nil {
			return fmt.Errorf("record artifact %s: %w", artifact, err)
		}
	}
	return nil
}

// Artifacts lists artifact paths produced during a session.
func (l *Neo4jLineage) Artifacts(ctx context.Context, sessionID string, limit int) ([]string, error) {
	if l == nil || l.driver == nil {
		return nil, ErrGraphUnavailable
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.driver.ExecuteRead(ctx, `
                MATCH (t:Task)-[:PRODUCED]->(a:Artifact)
                WHERE $session_id = '' OR t.session_id = $session_id
                RETURN DISTINCT a.path AS path
                LIMIT $limit
        `, map[string]any{"session_id": sessionID, "limit": limit})
	if err != nil {
		return nil, err
	}
	return stringColumn(rows, "path"), nil
}

// ProducedBy returns the ids of tasks that produced the given artifact.
func (l *Neo4jLineage) ProducedBy(ctx context.Context, artifact string) ([]string, error) {
	if l == nil || l.driver == nil {
		return nil, ErrGraphUnavailable
	}
	rows, err := l.driver.ExecuteRead(ctx, `
                MATCH (t:Task)-[:PRODUCED]->(a:Artifact {path: $path})
                RETURN t.id AS id
        `, map[string]any{"path": artifact})
	if err != nil {
		return nil, err
	}
	return stringColumn(rows, "id"), nil
}

// Close releases the underlying driver.
func (l *Neo4jLineage) Close(ctx context.Context) error {
	if l == nil || l.driver == nil {
		return nil
	}
	return l.driver.Close(ctx)
}

func stringColumn(rows []map[string]any, key string) []string {
	var out []string
	for _, row := range rows {
		if v, ok := row[key].(string); ok && v != "" {
			out = append(out, v)
		}
	}
	return out
}

var _ Lineage = (*Neo4jLineage)(nil)
