// Package memgraph is an in-memory implementation of the graph store
// contract. It keeps the same upsert-by-key, traversal and ranking semantics
// as the Neo4j adapter and computes node similarity as Jaccard overlap of
// genre sets, which is what the graph analytics library does by default.
package memgraph

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"movie-recommender/internal/movie"
)

type movieNode struct {
	title  *string
	year   *int
	rating *float64
}

type edge struct {
	from, to string
}

// Graph is safe for concurrent use. Every write applies as a whole under a
// single lock, mirroring one store transaction.
type Graph struct {
	mu sync.RWMutex

	schemaReady bool
	movies      map[string]*movieNode
	genres      map[string]struct{}
	users       map[string]struct{}
	belongsTo   map[string]map[string]struct{}
	watched     map[string]map[string]float64
	similar     map[edge]float64
	projections map[string]map[string]map[string]struct{}
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		movies:      make(map[string]*movieNode),
		genres:      make(map[string]struct{}),
		users:       make(map[string]struct{}),
		belongsTo:   make(map[string]map[string]struct{}),
		watched:     make(map[string]map[string]float64),
		similar:     make(map[edge]float64),
		projections: make(map[string]map[string]map[string]struct{}),
	}
}

// EnsureSchema records that uniqueness is enforced. Map keys already make
// every node kind unique.
func (g *Graph) EnsureSchema(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	g.schemaReady = true
	g.mu.Unlock()
	return nil
}

// SchemaReady reports whether EnsureSchema has run.
func (g *Graph) SchemaReady() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.schemaReady
}

// UpsertMovies merges movies, genres and BELONGS_TO edges.
func (g *Graph) UpsertMovies(ctx context.Context, movies []movie.Movie, policy movie.GenrePolicy) (movie.WriteSummary, error) {
	summary := movie.WriteSummary{Records: len(movies)}
	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("upsert movies: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, m := range movies {
		node := g.mergeMovie(m.ID, &summary)
		title := m.Title
		node.title = &title
		node.year = copyInt(m.ReleaseYear)
		node.rating = copyFloat(m.Rating)
		summary.PropertiesSet += 3

		wanted := make(map[string]struct{}, len(m.Genres))
		for _, name := range m.Genres {
			wanted[name] = struct{}{}
			if _, ok := g.genres[name]; !ok {
				g.genres[name] = struct{}{}
				summary.NodesCreated++
			}
			links := g.belongsTo[m.ID]
			if links == nil {
				links = make(map[string]struct{})
				g.belongsTo[m.ID] = links
			}
			if _, ok := links[name]; !ok {
				links[name] = struct{}{}
				summary.RelationshipsCreated++
			}
		}

		if policy == movie.GenresReconcile {
			for name := range g.belongsTo[m.ID] {
				if _, ok := wanted[name]; !ok {
					delete(g.belongsTo[m.ID], name)
					summary.RelationshipsDeleted++
				}
			}
		}
	}
	return summary, nil
}

// UpsertRatings merges users, movies and WATCHED edges, overwriting ratings.
func (g *Graph) UpsertRatings(ctx context.Context, ratings []movie.Rating) (movie.WriteSummary, error) {
	summary := movie.WriteSummary{Records: len(ratings)}
	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("upsert ratings: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, r := range ratings {
		if _, ok := g.users[r.UserID]; !ok {
			g.users[r.UserID] = struct{}{}
			summary.NodesCreated++
		}
		g.mergeMovie(r.MovieID, &summary)

		seen := g.watched[r.UserID]
		if seen == nil {
			seen = make(map[string]float64)
			g.watched[r.UserID] = seen
		}
		if _, ok := seen[r.MovieID]; !ok {
			summary.RelationshipsCreated++
		}
		seen[r.MovieID] = r.Rating
		summary.PropertiesSet++
	}
	return summary, nil
}

func (g *Graph) mergeMovie(id string, summary *movie.WriteSummary) *movieNode {
	node, ok := g.movies[id]
	if !ok {
		node = &movieNode{}
		g.movies[id] = node
		summary.NodesCreated++
	}
	return node
}

// Stats counts nodes and relationships per kind.
func (g *Graph) Stats(ctx context.Context) (movie.GraphStats, error) {
	if err := ctx.Err(); err != nil {
		return movie.GraphStats{}, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	stats := movie.GraphStats{
		Movies:  int64(len(g.movies)),
		Genres:  int64(len(g.genres)),
		Users:   int64(len(g.users)),
		Similar: int64(len(g.similar)),
	}
	for _, links := range g.belongsTo {
		stats.BelongsTo += int64(len(links))
	}
	for _, seen := range g.watched {
		stats.Watched += int64(len(seen))
	}
	return stats, nil
}

// WatchedRating returns the rating on the WATCHED edge between a user and a
// movie.
func (g *Graph) WatchedRating(userID, movieID string) (float64, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.watched[userID][movieID]
	return r, ok
}

// MovieGenres returns the sorted genre names linked to a movie.
func (g *Graph) MovieGenres(movieID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.belongsTo[movieID])
}

// LinkSimilar writes a SIMILAR edge directly, as an external analytics job
// would.
func (g *Graph) LinkSimilar(from, to string, score float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.similar[edge{from: from, to: to}] = score
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
