package trace

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// neo4jDriverAdapter bridges the real Neo4j driver onto graphDriver.
type neo4jDriverAdapter struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jDriverAdapter connects to Neo4j and returns a Lineage store backed
// by it.
func NewNeo4jDriverAdapter(uri, username, password, database string) (*Neo4jLineage, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}
	return NewNeo4jLineage(&neo4jDriverAdapter{driver: driver, database: database})
}

func (a *neo4jDriverAdapter) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return a.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: a.database,
	})
}

func (a *neo4jDriverAdapter) ExecuteWrite(ctx context.Context, query string, params map[string]any) error {
	session := a.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return nil, result.Err()
	})
	return err
}

func (a *neo4jDriverAdapter) ExecuteRead(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	session := a.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	rows, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		var collected []map[string]any
		for result.Next(ctx) {
			collected = append(collected, result.Record().AsMap())
		}
		return collected, result.Err()
	})
	if err != nil {
		return nil, err
	}
	out, _ := rows.([]map[string]any)
	return out, nil
}

func (a *neo4jDriverAdapter) Close(ctx context.Context) error {
	return a.driver.Close(ctx)
}
