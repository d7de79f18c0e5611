package graph

import (
	"context"
	"fmt"

	"movie-recommender/internal/movie"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const upsertMoviesQuery = `
UNWIND $rows AS r
MERGE (m:Movie {id: r.id})
SET m.title = r.title,
    m.release_year = r.release_year,
    m.rating = r.rating
FOREACH (name IN r.genres |
    MERGE (g:Genre {name: name})
    MERGE (m)-[:BELONGS_TO]->(g)
)
`

const pruneGenresQuery = `
UNWIND $rows AS r
MATCH (m:Movie {id: r.id})-[b:BELONGS_TO]->(g:Genre)
WHERE NOT g.name IN r.genres
DELETE b
`

const upsertRatingsQuery = `
UNWIND $rows AS r
MERGE (u:User {id: r.user_id})
MERGE (m:Movie {id: r.movie_id})
MERGE (u)-[w:WATCHED]->(m)
SET w.rating = r.rating
`

// UpsertMovies writes one batch of movies in a single transaction: the Movie
// node by id, its title, year and rating, and a BELONGS_TO edge to every
// genre of the record. Re-running the same batch changes nothing. With
// GenresReconcile, links to genres missing from the record are removed in
// the same transaction.
func (s *Store) UpsertMovies(ctx context.Context, movies []movie.Movie, policy movie.GenrePolicy) (movie.WriteSummary, error) {
	summary := movie.WriteSummary{Records: len(movies)}
	if len(movies) == 0 {
		return summary, nil
	}

	rows := make([]map[string]any, 0, len(movies))
	for _, m := range movies {
		genres := m.Genres
		if genres == nil {
			genres = []string{}
		}
		row := map[string]any{
			"id":           m.ID,
			"title":        m.Title,
			"genres":       genres,
			"release_year": nil,
			"rating":       nil,
		}
		if m.ReleaseYear != nil {
			row["release_year"] = int64(*m.ReleaseYear)
		}
		if m.Rating != nil {
			row["rating"] = *m.Rating
		}
		rows = append(rows, row)
	}

	statements := []string{upsertMoviesQuery}
	if policy == movie.GenresReconcile {
		statements = append(statements, pruneGenresQuery)
	}

	if err := s.writeBatch(ctx, statements, rows, &summary); err != nil {
		return summary, fmt.Errorf("upsert movies: %w", err)
	}
	return summary, nil
}

// UpsertRatings writes one batch of ratings in a single transaction. The
// WATCHED edge is unique per (user, movie) and its rating is overwritten. A
// rating for a movie that was never ingested creates a bare Movie node.
func (s *Store) UpsertRatings(ctx context.Context, ratings []movie.Rating) (movie.WriteSummary, error) {
	summary := movie.WriteSummary{Records: len(ratings)}
	if len(ratings) == 0 {
		return summary, nil
	}

	rows := make([]map[string]any, 0, len(ratings))
	for _, r := range ratings {
		rows = append(rows, map[string]any{
			"user_id":  r.UserID,
			"movie_id": r.MovieID,
			"rating":   r.Rating,
		})
	}

	if err := s.writeBatch(ctx, []string{upsertRatingsQuery}, rows, &summary); err != nil {
		return summary, fmt.Errorf("upsert ratings: %w", err)
	}
	return summary, nil
}

// writeBatch runs every statement against the same rows inside one managed
// write transaction and accumulates the update counters.
func (s *Store) writeBatch(ctx context.Context, statements []string, rows []map[string]any, summary *movie.WriteSummary) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	counts, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		var acc movie.WriteSummary
		for _, stmt := range statements {
			res, err := tx.Run(ctx, stmt, map[string]any{"rows": rows})
			if err != nil {
				return nil, err
			}
			sum, err := res.Consume(ctx)
			if err != nil {
				return nil, err
			}
			c := sum.Counters()
			acc.NodesCreated += c.NodesCreated()
			acc.RelationshipsCreated += c.RelationshipsCreated()
			acc.RelationshipsDeleted += c.RelationshipsDeleted()
			acc.PropertiesSet += c.PropertiesSet()
		}
		return acc, nil
	})
	if err != nil {
		return err
	}

	if acc, ok := counts.(movie.WriteSummary); ok {
		summary.NodesCreated = acc.NodesCreated
		summary.RelationshipsCreated = acc.RelationshipsCreated
		summary.RelationshipsDeleted = acc.RelationshipsDeleted
		summary.PropertiesSet = acc.PropertiesSet
	}
	return nil
}
