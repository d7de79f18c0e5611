package memgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-recommender/internal/movie"
)

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string { return &v }

func TestUpsertMoviesIsIdempotent(t *testing.T) {
	ctx := context.Background()
	g := New()
	movies := []movie.Movie{
		{ID: "1", Title: "Toy Story", ReleaseYear: intPtr(1995), Rating: floatPtr(7.7), Genres: []string{"Animation", "Comedy"}},
		{ID: "2", Title: "Jumanji", Genres: []string{"Adventure"}},
	}

	first, err := g.UpsertMovies(ctx, movies, movie.GenresAddOnly)
	require.NoError(t, err)
	assert.Equal(t, 5, first.NodesCreated)
	assert.Equal(t, 3, first.RelationshipsCreated)

	second, err := g.UpsertMovies(ctx, movies, movie.GenresAddOnly)
	require.NoError(t, err)
	assert.Zero(t, second.NodesCreated)
	assert.Zero(t, second.RelationshipsCreated)

	stats, err := g.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, movie.GraphStats{Movies: 2, Genres: 3, BelongsTo: 3}, stats)
}

func TestUpsertMoviesGenrePolicy(t *testing.T) {
	ctx := context.Background()
	g := New()
	_, err := g.UpsertMovies(ctx, []movie.Movie{{ID: "1", Title: "A", Genres: []string{"Drama", "War"}}}, movie.GenresAddOnly)
	require.NoError(t, err)

	_, err = g.UpsertMovies(ctx, []movie.Movie{{ID: "1", Title: "A", Genres: []string{"Drama"}}}, movie.GenresAddOnly)
	require.NoError(t, err)
	assert.Equal(t, []string{"Drama", "War"}, g.MovieGenres("1"))

	summary, err := g.UpsertMovies(ctx, []movie.Movie{{ID: "1", Title: "A", Genres: []string{"Drama"}}}, movie.GenresReconcile)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.RelationshipsDeleted)
	assert.Equal(t, []string{"Drama"}, g.MovieGenres("1"))
}

func TestUpsertRatingsOverwrites(t *testing.T) {
	ctx := context.Background()
	g := New()

	_, err := g.UpsertRatings(ctx, []movie.Rating{{UserID: "7", MovieID: "1", Rating: 3}})
	require.NoError(t, err)
	_, err = g.UpsertRatings(ctx, []movie.Rating{{UserID: "7", MovieID: "1", Rating: 5}})
	require.NoError(t, err)

	r, ok := g.WatchedRating("7", "1")
	require.True(t, ok)
	assert.Equal(t, 5.0, r)

	stats, err := g.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Watched)
	assert.Equal(t, int64(1), stats.Users)
	assert.Equal(t, int64(1), stats.Movies, "rating creates a bare movie node")
}

func TestUpsertRejectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := New()
	_, err := g.UpsertRatings(ctx, []movie.Rating{{UserID: "1", MovieID: "1", Rating: 1}})
	require.ErrorIs(t, err, context.Canceled)

	stats, _ := g.Stats(context.Background())
	assert.Zero(t, stats.Watched)
}

func TestNodeSimilarity(t *testing.T) {
	ctx := context.Background()
	g := New()
	_, err := g.UpsertMovies(ctx, []movie.Movie{
		{ID: "1", Title: "A", Genres: []string{"Action", "Drama"}},
		{ID: "2", Title: "B", Genres: []string{"Action", "Drama"}},
		{ID: "3", Title: "C", Genres: []string{"Action", "Comedy", "Family", "Fantasy", "Music", "War", "Western", "History", "Horror"}},
		{ID: "4", Title: "D", Genres: []string{"Romance"}},
	}, movie.GenresAddOnly)
	require.NoError(t, err)

	_, rels, err := g.ProjectGenreGraph(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, int64(14), rels)

	_, _, err = g.ProjectGenreGraph(ctx, "g")
	require.Error(t, err, "projection name must be free")

	compared, written, err := g.WriteNodeSimilarity(ctx, "g", 0.1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(4), compared)
	// 1<->2 score 1.0, 1<->3 and 2<->3 score 0.1.
	assert.Equal(t, int64(6), written)

	require.NoError(t, g.DropProjection(ctx, "g"))
	_, _, err = g.WriteNodeSimilarity(ctx, "g", 0.1, 10)
	require.Error(t, err)

	cleared, err := g.ClearSimilar(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), cleared)
}

func TestContentBased(t *testing.T) {
	ctx := context.Background()
	g := New()
	_, err := g.UpsertMovies(ctx, []movie.Movie{
		{ID: "1", Title: "Seen", Genres: []string{"Drama"}},
		{ID: "2", Title: "Close", ReleaseYear: intPtr(2001), Rating: floatPtr(6), Genres: []string{"Drama", "War"}},
		{ID: "3", Title: "Far", Rating: floatPtr(9)},
	}, movie.GenresAddOnly)
	require.NoError(t, err)
	_, err = g.UpsertRatings(ctx, []movie.Rating{{UserID: "u", MovieID: "1", Rating: 4}})
	require.NoError(t, err)
	g.LinkSimilar("1", "2", 0.5)
	g.LinkSimilar("3", "1", 0.2)

	recs, err := g.ContentBased(ctx, "u", 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, movie.Recommendation{
		MovieID:    "2",
		Title:      "Close",
		Year:       intPtr(2001),
		Genre:      strPtr("Drama, War"),
		Rating:     floatPtr(6),
		Similarity: floatPtr(0.5),
	}, recs[0])
	assert.Equal(t, "3", recs[1].MovieID, "SIMILAR is followed in both directions")

	recs, err = g.ContentBased(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestCollaborative(t *testing.T) {
	ctx := context.Background()
	g := New()
	_, err := g.UpsertMovies(ctx, []movie.Movie{
		{ID: "3", Title: "Three", Rating: floatPtr(5)},
		{ID: "4", Title: "Four", Rating: floatPtr(8)},
		{ID: "5", Title: "Five"},
	}, movie.GenresAddOnly)
	require.NoError(t, err)
	_, err = g.UpsertRatings(ctx, []movie.Rating{
		{UserID: "u1", MovieID: "1", Rating: 4},
		{UserID: "u2", MovieID: "1", Rating: 4},
		{UserID: "u2", MovieID: "3", Rating: 4},
		{UserID: "u2", MovieID: "4", Rating: 4},
		{UserID: "u3", MovieID: "1", Rating: 4},
		{UserID: "u3", MovieID: "3", Rating: 4},
		{UserID: "u4", MovieID: "5", Rating: 4},
	})
	require.NoError(t, err)

	recs, err := g.Collaborative(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "3", recs[0].MovieID)
	assert.Equal(t, 2, *recs[0].SharedInterests)
	assert.Equal(t, "4", recs[1].MovieID)
	assert.Equal(t, 1, *recs[1].SharedInterests)

	recs, err = g.Collaborative(ctx, "u1", 1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
