package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
)

// DropProjection removes a named in-memory projection. A missing projection
// is not an error.
func (s *Store) DropProjection(ctx context.Context, name string) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	res, err := session.Run(ctx, `CALL gds.graph.drop($name, false) YIELD graphName RETURN graphName`,
		map[string]any{"name": name})
	if err != nil {
		return fmt.Errorf("drop projection %s: %w", name, err)
	}
	if _, err := res.Consume(ctx); err != nil {
		return fmt.Errorf("drop projection %s: %w", name, err)
	}
	return nil
}

// ClearSimilar deletes every SIMILAR relationship so the next similarity
// write starts from scratch. Deletion runs in batched inner transactions,
// which requires an auto-commit session.
func (s *Store) ClearSimilar(ctx context.Context) (int64, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	res, err := session.Run(ctx, `
		MATCH (:Movie)-[r:SIMILAR]->(:Movie)
		CALL { WITH r DELETE r } IN TRANSACTIONS OF 10000 ROWS
	`, nil)
	if err != nil {
		return 0, fmt.Errorf("clear similar: %w", err)
	}
	sum, err := res.Consume(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear similar: %w", err)
	}
	return int64(sum.Counters().RelationshipsDeleted()), nil
}

// ProjectGenreGraph projects Movie and Genre nodes with their BELONGS_TO
// relationships into a named in-memory graph. Movies are the only nodes with
// outgoing relationships, so only movies are compared by node similarity.
func (s *Store) ProjectGenreGraph(ctx context.Context, name string) (nodes, relationships int64, err error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	res, err := session.Run(ctx, `
		CALL gds.graph.project($name, ['Movie', 'Genre'], {BELONGS_TO: {orientation: 'NATURAL'}})
		YIELD nodeCount, relationshipCount
		RETURN nodeCount, relationshipCount
	`, map[string]any{"name": name})
	if err != nil {
		return 0, 0, fmt.Errorf("project %s: %w", name, err)
	}
	rec, err := res.Single(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("project %s: %w", name, err)
	}

	nodes = recordInt64(rec, "nodeCount")
	relationships = recordInt64(rec, "relationshipCount")
	log.Debug().Str("graph", name).Int64("nodes", nodes).Int64("relationships", relationships).Msg("Projected genre graph")
	return nodes, relationships, nil
}

// WriteNodeSimilarity runs node similarity over a projection and writes every
// pair scoring at least cutoff as SIMILAR {similarity}.
func (s *Store) WriteNodeSimilarity(ctx context.Context, name string, cutoff float64, topK int) (compared, written int64, err error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	res, err := session.Run(ctx, `
		CALL gds.nodeSimilarity.write($name, {
			similarityCutoff: $cutoff,
			topK: $topK,
			writeRelationshipType: 'SIMILAR',
			writeProperty: 'similarity'
		})
		YIELD nodesCompared, relationshipsWritten
		RETURN nodesCompared, relationshipsWritten
	`, map[string]any{"name": name, "cutoff": cutoff, "topK": int64(topK)})
	if err != nil {
		return 0, 0, fmt.Errorf("node similarity on %s: %w", name, err)
	}
	rec, err := res.Single(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("node similarity on %s: %w", name, err)
	}
	return recordInt64(rec, "nodesCompared"), recordInt64(rec, "relationshipsWritten"), nil
}
