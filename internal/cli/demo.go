package cli

import (
	"context"
	"fmt"
	"io"

	"movie-recommender/internal/graph/memgraph"
	"movie-recommender/internal/ingest"
	"movie-recommender/internal/movie"
	"movie-recommender/internal/recommend"
	"movie-recommender/internal/similarity"
)

func demoYear(y int) *int { return &y }

var demoMovies = []movie.Movie{
	{ID: "1", Title: "Inception", ReleaseYear: demoYear(2010), Genres: []string{"Sci-Fi", "Action"}},
	{ID: "2", Title: "Titanic", ReleaseYear: demoYear(1997), Genres: []string{"Drama", "Romance"}},
	{ID: "3", Title: "The Matrix", ReleaseYear: demoYear(1999), Genres: []string{"Sci-Fi", "Action"}},
	{ID: "4", Title: "Avatar", ReleaseYear: demoYear(2009), Genres: []string{"Sci-Fi", "Adventure"}},
}

var demoRatings = []movie.Rating{
	{UserID: "1", MovieID: "1", Rating: 9},
	{UserID: "1", MovieID: "2", Rating: 8},
	{UserID: "2", MovieID: "1", Rating: 7},
	{UserID: "2", MovieID: "3", Rating: 8},
}

// runDemo loads the built-in dataset into an in-memory graph, derives
// similarity and prints recommendations for userID.
func runDemo(ctx context.Context, w io.Writer, userID, format string) error {
	g := memgraph.New()

	if _, err := ingest.NewPipeline(g, nil, ingest.Options{}).Run(ctx, demoMovies, demoRatings); err != nil {
		return fmt.Errorf("demo ingest: %w", err)
	}
	if _, err := similarity.NewProjector(g, similarity.Options{}).Run(ctx); err != nil {
		return fmt.Errorf("demo similarity: %w", err)
	}

	res, err := recommend.NewEngine(g, recommend.Options{}).Recommend(ctx, userID)
	if err != nil {
		return err
	}
	return writeResult(w, res, format)
}
