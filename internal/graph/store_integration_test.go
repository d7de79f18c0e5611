//go:build integration

package graph

import (
	"context"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"movie-recommender/internal/movie"
)

const neo4jImage = "neo4j:5.26-community"

func skipIfNoDocker(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if exec.CommandContext(ctx, "docker", "info").Run() != nil {
		t.Skip("Skipping test: Docker not available")
	}
}

// startNeo4j runs a Neo4j container with the graph data science plugin and
// returns a store on it.
func startNeo4j(t *testing.T) *Store {
	t.Helper()
	skipIfNoDocker(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        neo4jImage,
			ExposedPorts: []string{"7687/tcp"},
			Env: map[string]string{
				"NEO4J_AUTH":    "neo4j/integration-pass",
				"NEO4J_PLUGINS": `["graph-data-science"]`,
			},
			WaitingFor: wait.ForLog("Started.").WithStartupTimeout(4 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "7687/tcp")
	require.NoError(t, err)

	driver, err := neo4j.NewDriverWithContext(fmt.Sprintf("bolt://%s:%s", host, port.Port()),
		neo4j.BasicAuth("neo4j", "integration-pass", ""))
	require.NoError(t, err)
	t.Cleanup(func() { driver.Close(context.Background()) })
	require.NoError(t, driver.VerifyConnectivity(ctx))

	return NewStore(driver, "")
}

func TestStoreAgainstNeo4j(t *testing.T) {
	store := startNeo4j(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.EnsureSchema(ctx), "schema creation is idempotent")

	rating := 7.5
	movies := []movie.Movie{
		{ID: "1", Title: "One", Rating: &rating, Genres: []string{"SciFi", "Action"}},
		{ID: "2", Title: "Two", Genres: []string{"SciFi"}},
		{ID: "3", Title: "Three", Genres: []string{"Drama"}},
	}

	t.Run("movie upsert is idempotent", func(t *testing.T) {
		_, err := store.UpsertMovies(ctx, movies, movie.GenresAddOnly)
		require.NoError(t, err)
		first, err := store.Stats(ctx)
		require.NoError(t, err)

		again, err := store.UpsertMovies(ctx, movies, movie.GenresAddOnly)
		require.NoError(t, err)
		assert.Zero(t, again.NodesCreated)
		assert.Zero(t, again.RelationshipsCreated)

		second, err := store.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, int64(3), second.Movies)
		assert.Equal(t, int64(3), second.Genres)
	})

	t.Run("rating overwrite keeps one edge", func(t *testing.T) {
		_, err := store.UpsertRatings(ctx, []movie.Rating{{UserID: "B", MovieID: "1", Rating: 3}})
		require.NoError(t, err)
		_, err = store.UpsertRatings(ctx, []movie.Rating{{UserID: "B", MovieID: "1", Rating: 5}})
		require.NoError(t, err)

		stats, err := store.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.Watched)
	})

	t.Run("collaborative fallback without SIMILAR", func(t *testing.T) {
		_, err := store.UpsertRatings(ctx, []movie.Rating{
			{UserID: "A", MovieID: "1", Rating: 4},
			{UserID: "B", MovieID: "2", Rating: 4},
		})
		require.NoError(t, err)

		content, err := store.ContentBased(ctx, "A", 10)
		require.NoError(t, err)
		assert.Empty(t, content)

		recs, err := store.Collaborative(ctx, "A", 10)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "2", recs[0].MovieID)
		assert.Equal(t, 1, *recs[0].SharedInterests)
	})

	t.Run("similarity projection feeds content pass", func(t *testing.T) {
		require.NoError(t, store.DropProjection(ctx, "itest"))
		_, err := store.ClearSimilar(ctx)
		require.NoError(t, err)
		_, rels, err := store.ProjectGenreGraph(ctx, "itest")
		require.NoError(t, err)
		assert.Equal(t, int64(4), rels)

		_, written, err := store.WriteNodeSimilarity(ctx, "itest", 0.1, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(2), written)
		require.NoError(t, store.DropProjection(ctx, "itest"))

		recs, err := store.ContentBased(ctx, "A", 10)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "2", recs[0].MovieID)
		assert.InDelta(t, 0.5, *recs[0].Similarity, 1e-9)
	})

	t.Run("reconcile prunes stale genre links", func(t *testing.T) {
		summary, err := store.UpsertMovies(ctx, []movie.Movie{{ID: "1", Title: "One", Genres: []string{"SciFi"}}}, movie.GenresReconcile)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.RelationshipsDeleted)
	})
}
