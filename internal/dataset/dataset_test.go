package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"movie-recommender/internal/movie"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestParseGenres(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty", raw: "", want: []string{}},
		{name: "empty list", raw: "[]", want: []string{}},
		{
			name: "python literal",
			raw:  "[{'id': 16, 'name': 'Animation'}, {'id': 35, 'name': 'Comedy'}, {'id': 10751, 'name': 'Family'}]",
			want: []string{"Animation", "Comedy", "Family"},
		},
		{
			name: "python literal with double-quoted name",
			raw:  `[{'id': 1, 'name': "Children's"}]`,
			want: []string{"Children's"},
		},
		{
			name: "json",
			raw:  `[{"id": 18, "name": "Drama"}, {"id": 18, "name": "Drama"}]`,
			want: []string{"Drama"},
		},
		{name: "pipe separated", raw: "Action|Sci-Fi| Thriller ", want: []string{"Action", "Sci-Fi", "Thriller"}},
		{name: "movielens no genres", raw: "(no genres listed)", want: []string{}},
		{name: "garbage list", raw: "[not a genre list", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseGenres(tt.raw))
		})
	}
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		raw  string
		want *int
	}{
		{raw: "1995-10-30", want: intPtr(1995)},
		{raw: "2010", want: intPtr(2010)},
		{raw: "2010.0", want: intPtr(2010)},
		{raw: "", want: nil},
		{raw: "unknown", want: nil},
		{raw: "12-01-01", want: nil},
		{raw: "0001-01-01", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseYear(tt.raw))
		})
	}
}

func TestReadMovies(t *testing.T) {
	input := strings.Join([]string{
		"adult,genres,id,original_title,release_date,title,vote_average",
		`False,"[{'id': 16, 'name': 'Animation'}, {'id': 35, 'name': 'Comedy'}]",862,Toy Story,1995-10-30,Toy Story,7.7`,
		`False,[],8844,Jumanji,,Jumanji,`,
		`False,"[{'id': 18, 'name': 'Drama'}]",,No Id,2001-01-01,No Id,5`,
		`False,"[{'id': 18, 'name': 'Drama'}]",99,,2001-01-01,,5`,
		`False,[],100,Bad Score,2001-01-01,Bad Score,42`,
	}, "\n")

	movies, stats, err := ReadMovies(strings.NewReader(input))
	require.NoError(t, err)

	want := []movie.Movie{
		{ID: "862", Title: "Toy Story", ReleaseYear: intPtr(1995), Rating: floatPtr(7.7), Genres: []string{"Animation", "Comedy"}},
		{ID: "8844", Title: "Jumanji", Genres: []string{}},
	}
	if diff := cmp.Diff(want, movies); diff != "" {
		t.Errorf("ReadMovies() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 5, stats.Rows)
	assert.Equal(t, 2, stats.Accepted)
	assert.Equal(t, 3, stats.Dropped)
	assert.Equal(t, 1, stats.Reasons["invalid_id"])
	assert.Equal(t, 1, stats.Reasons["invalid_title"])
	assert.Equal(t, 1, stats.Reasons["invalid_rating"])
}

func TestReadMoviesMissingColumns(t *testing.T) {
	_, _, err := ReadMovies(strings.NewReader("genres,release_date\n[],2001\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns: id, title")
}

func TestReadMoviesEmpty(t *testing.T) {
	_, _, err := ReadMovies(strings.NewReader(""))
	assert.Error(t, err)
}

func TestReadRatings(t *testing.T) {
	input := strings.Join([]string{
		"userId,movieId,rating,timestamp",
		"1,31,2.5,1260759144",
		"1,1029.0,3.0,1260759179",
		",1061,3.0,1260759182",
		"2,10,abc,835355493",
		"2,17,11,835355681",
	}, "\n")

	ratings, stats, err := ReadRatings(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []movie.Rating{
		{UserID: "1", MovieID: "31", Rating: 2.5},
		{UserID: "1", MovieID: "1029", Rating: 3.0},
	}, ratings)
	assert.Equal(t, 5, stats.Rows)
	assert.Equal(t, 3, stats.Dropped)
	assert.Equal(t, 1, stats.Reasons["invalid_userid"])
	assert.Equal(t, 2, stats.Reasons["invalid_rating"])
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	moviesPath := filepath.Join(dir, "movies.csv")
	ratingsPath := filepath.Join(dir, "ratings.csv")
	require.NoError(t, os.WriteFile(moviesPath, []byte("movieId,title,genres\n1,Heat (1995),Action|Crime\n"), 0o644))
	require.NoError(t, os.WriteFile(ratingsPath, []byte("userId,movieId,rating\n7,1,4.5\n"), 0o644))

	movies, _, err := LoadMovies(moviesPath)
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, []string{"Action", "Crime"}, movies[0].Genres)
	assert.Nil(t, movies[0].ReleaseYear)

	ratings, _, err := LoadRatings(ratingsPath)
	require.NoError(t, err)
	assert.Equal(t, []movie.Rating{{UserID: "7", MovieID: "1", Rating: 4.5}}, ratings)

	_, _, err = LoadMovies(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}
