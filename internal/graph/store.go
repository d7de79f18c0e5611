// Package graph is the Neo4j adapter of the recommender. It owns every Cypher
// statement: schema constraints, batch upserts, the node similarity
// projection and the two recommendation traversals.
package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Store issues parameterized Cypher against one Neo4j database. It holds no
// graph state; every call opens its own session and closes it before
// returning.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewStore creates a store on top of an already connected driver. An empty
// database selects the server default.
func NewStore(driver neo4j.DriverWithContext, database string) *Store {
	return &Store{driver: driver, database: database}
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}
