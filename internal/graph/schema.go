package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
)

// constraints guarantee that MERGE on these keys never creates duplicates,
// including under concurrent writers.
var constraints = []string{
	"CREATE CONSTRAINT movie_id_unique IF NOT EXISTS FOR (m:Movie) REQUIRE m.id IS UNIQUE",
	"CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE",
	"CREATE CONSTRAINT genre_name_unique IF NOT EXISTS FOR (g:Genre) REQUIRE g.name IS UNIQUE",
}

// EnsureSchema creates the uniqueness constraints. It is safe to call on an
// already initialized database.
func (s *Store) EnsureSchema(ctx context.Context) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, c := range constraints {
		res, err := session.Run(ctx, c, nil)
		if err != nil {
			return fmt.Errorf("create constraint: %w", err)
		}
		if _, err := res.Consume(ctx); err != nil {
			return fmt.Errorf("create constraint: %w", err)
		}
	}

	log.Info().Int("constraints", len(constraints)).Msg("Graph schema ensured")
	return nil
}
