package graph

import (
	"context"
	"fmt"

	"movie-recommender/internal/movie"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
)

// contentBasedQuery follows SIMILAR in either direction because node
// similarity writes one relationship per source node.
const contentBasedQuery = `
MATCH (u:User {id: $userId})-[:WATCHED]->(seen:Movie)-[s:SIMILAR]-(rec:Movie)
WHERE rec <> seen AND NOT EXISTS { (u)-[:WATCHED]->(rec) }
WITH rec, max(s.similarity) AS similarity
OPTIONAL MATCH (rec)-[:BELONGS_TO]->(g:Genre)
WITH rec, similarity, collect(DISTINCT g.name) AS genres
RETURN rec.id AS id,
       coalesce(rec.title, rec.id) AS title,
       rec.release_year AS year,
       rec.rating AS rating,
       genres,
       similarity
ORDER BY similarity DESC, coalesce(rec.rating, -1.0) DESC, rec.id ASC
LIMIT $limit
`

const collaborativeQuery = `
MATCH (u:User {id: $userId})-[:WATCHED]->(:Movie)<-[:WATCHED]-(other:User)
WHERE other <> u
WITH u, collect(DISTINCT other) AS neighbours
UNWIND neighbours AS other
MATCH (other)-[:WATCHED]->(rec:Movie)
WHERE NOT EXISTS { (u)-[:WATCHED]->(rec) }
WITH rec, count(DISTINCT other) AS shared
OPTIONAL MATCH (rec)-[:BELONGS_TO]->(g:Genre)
WITH rec, shared, collect(DISTINCT g.name) AS genres
RETURN rec.id AS id,
       coalesce(rec.title, rec.id) AS title,
       rec.release_year AS year,
       rec.rating AS rating,
       genres,
       shared
ORDER BY shared DESC, coalesce(rec.rating, -1.0) DESC, rec.id ASC
LIMIT $limit
`

const statsQuery = `
CALL { MATCH (m:Movie) RETURN count(m) AS movies }
CALL { MATCH (g:Genre) RETURN count(g) AS genres }
CALL { MATCH (u:User) RETURN count(u) AS users }
CALL { MATCH (:Movie)-[r:BELONGS_TO]->(:Genre) RETURN count(r) AS belongsTo }
CALL { MATCH (:User)-[r:WATCHED]->(:Movie) RETURN count(r) AS watched }
CALL { MATCH (:Movie)-[r:SIMILAR]->(:Movie) RETURN count(r) AS similar }
RETURN movies, genres, users, belongsTo, watched, similar
`

// ContentBased returns unwatched movies reachable over SIMILAR from the
// user's watched movies, best similarity first.
func (s *Store) ContentBased(ctx context.Context, userID string, limit int) ([]movie.Recommendation, error) {
	recs, err := s.readRecommendations(ctx, contentBasedQuery, userID, limit, func(rec *neo4j.Record, r *movie.Recommendation) {
		r.Similarity = recordFloatPtr(rec, "similarity")
	})
	if err != nil {
		return nil, fmt.Errorf("content-based query: %w", err)
	}
	return recs, nil
}

// Collaborative returns unwatched movies watched by users who share at least
// one watched movie with the user, ranked by the number of such users.
func (s *Store) Collaborative(ctx context.Context, userID string, limit int) ([]movie.Recommendation, error) {
	recs, err := s.readRecommendations(ctx, collaborativeQuery, userID, limit, func(rec *neo4j.Record, r *movie.Recommendation) {
		r.SharedInterests = recordIntPtr(rec, "shared")
	})
	if err != nil {
		return nil, fmt.Errorf("collaborative query: %w", err)
	}
	return recs, nil
}

func (s *Store) readRecommendations(ctx context.Context, query, userID string, limit int, extra func(*neo4j.Record, *movie.Recommendation)) ([]movie.Recommendation, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"userId": userID, "limit": int64(limit)})
		if err != nil {
			return nil, err
		}
		var recs []movie.Recommendation
		for res.Next(ctx) {
			record := res.Record()
			r := movie.Recommendation{
				MovieID: recordString(record, "id"),
				Title:   recordString(record, "title"),
				Year:    recordIntPtr(record, "year"),
				Rating:  recordFloatPtr(record, "rating"),
				Genre:   movie.GenreLabel(recordStrings(record, "genres")),
			}
			extra(record, &r)
			recs = append(recs, r)
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return recs, nil
	})
	if err != nil {
		return nil, err
	}

	recs, _ := out.([]movie.Recommendation)
	log.Debug().Str("user", userID).Int("rows", len(recs)).Msg("Recommendation query complete")
	return recs, nil
}

// Stats counts nodes and relationships per kind.
func (s *Store) Stats(ctx context.Context) (movie.GraphStats, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, statsQuery, nil)
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return movie.GraphStats{
			Movies:    recordInt64(rec, "movies"),
			Genres:    recordInt64(rec, "genres"),
			Users:     recordInt64(rec, "users"),
			BelongsTo: recordInt64(rec, "belongsTo"),
			Watched:   recordInt64(rec, "watched"),
			Similar:   recordInt64(rec, "similar"),
		}, nil
	})
	if err != nil {
		return movie.GraphStats{}, fmt.Errorf("graph stats: %w", err)
	}
	stats, _ := out.(movie.GraphStats)
	return stats, nil
}
