package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-recommender/internal/movie"
	"movie-recommender/internal/recommend"
)

func TestRunDemoContentBased(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, runDemo(context.Background(), &buf, "1", formatJSON))

	var res recommend.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &res))
	assert.Equal(t, recommend.StrategyContent, res.Strategy)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "The Matrix", res.Items[0].Title)
	assert.Equal(t, 1999, *res.Items[0].Year)
	assert.Equal(t, "Action, Sci-Fi", *res.Items[0].Genre)
	assert.Equal(t, "Avatar", res.Items[1].Title)
}

func TestRunDemoUnknownUser(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, runDemo(context.Background(), &buf, "404", formatText))
	assert.Equal(t, recommend.NoRecommendations+"\n", buf.String())
}

func TestWriteTSV(t *testing.T) {
	year := 1999
	genre := "Action, Sci-Fi"
	shared := 2
	res := &recommend.Result{
		UserID:   "1",
		Strategy: recommend.StrategyCollaborative,
		Items: []movie.Recommendation{
			{MovieID: "3", Title: "The\tMatrix", Year: &year, Genre: &genre, SharedInterests: &shared},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, res, formatTSV))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "3\tThe\\tMatrix\t1999\tAction, Sci-Fi\t\t\t2", lines[1])
}

func TestWriteText(t *testing.T) {
	sim := 0.75
	res := &recommend.Result{
		UserID:   "7",
		Strategy: recommend.StrategyContent,
		Items:    []movie.Recommendation{{MovieID: "9", Title: "Heat", Similarity: &sim}},
	}

	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, res, formatText))
	out := buf.String()
	assert.Contains(t, out, "Recommendations for user 7 (content)")
	assert.Contains(t, out, "Heat")
	assert.Contains(t, out, "similarity=0.75")
}

func TestCheckFormat(t *testing.T) {
	assert.NoError(t, checkFormat("tsv"))
	assert.Error(t, checkFormat("xml"))
}

func TestWriteStats(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeStats(&buf, movie.GraphStats{Movies: 4, Similar: 6}))
	assert.Contains(t, buf.String(), "Movies")
	assert.Contains(t, buf.String(), "SIMILAR")
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"schema", "ingest", "similarity", "recommend", "stats", "serve", "demo"} {
		assert.Contains(t, names, want)
	}
}
