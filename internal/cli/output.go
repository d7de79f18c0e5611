package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"movie-recommender/internal/movie"
	"movie-recommender/internal/recommend"
	"movie-recommender/internal/textutil"

	"github.com/goccy/go-json"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatTSV  = "tsv"

	maxTitleWidth = 48
)

func checkFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatTSV:
		return nil
	}
	return fmt.Errorf("unknown format %q (want text, json or tsv)", format)
}

// writeResult prints a recommendation result in the requested format.
func writeResult(w io.Writer, res *recommend.Result, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode JSON: %w", err)
		}
		return nil
	case formatTSV:
		return writeTSV(w, res)
	default:
		return writeText(w, res)
	}
}

func writeText(w io.Writer, res *recommend.Result) error {
	if res.Empty() {
		_, err := fmt.Fprintln(w, recommend.NoRecommendations)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Recommendations for user %s (%s)\n", res.UserID, res.Strategy)
	for i, it := range res.Items {
		fmt.Fprintf(tw, "%d.\t%s\t%s\t%s\t%s\n",
			i+1,
			textutil.Truncate(it.Title, maxTitleWidth),
			orDash(yearString(it.Year)),
			orDash(strValue(it.Genre)),
			score(it),
		)
	}
	return tw.Flush()
}

func writeTSV(w io.Writer, res *recommend.Result) error {
	if _, err := fmt.Fprintln(w, "movie_id\ttitle\tyear\tgenre\trating\tsimilarity\tshared_interest_count"); err != nil {
		return err
	}
	for _, it := range res.Items {
		_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			escapeTSV(it.MovieID),
			escapeTSV(it.Title),
			yearString(it.Year),
			escapeTSV(strValue(it.Genre)),
			floatString(it.Rating),
			floatString(it.Similarity),
			intString(it.SharedInterests),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func writeStats(w io.Writer, s movie.GraphStats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Movies\t%d\n", s.Movies)
	fmt.Fprintf(tw, "Genres\t%d\n", s.Genres)
	fmt.Fprintf(tw, "Users\t%d\n", s.Users)
	fmt.Fprintf(tw, "BELONGS_TO\t%d\n", s.BelongsTo)
	fmt.Fprintf(tw, "WATCHED\t%d\n", s.Watched)
	fmt.Fprintf(tw, "SIMILAR\t%d\n", s.Similar)
	return tw.Flush()
}

func score(it movie.Recommendation) string {
	switch {
	case it.Similarity != nil:
		return "similarity=" + strconv.FormatFloat(*it.Similarity, 'f', 2, 64)
	case it.SharedInterests != nil:
		return "shared=" + strconv.Itoa(*it.SharedInterests)
	}
	return ""
}

// escapeTSV replaces tabs and newlines in a string for TSV safety.
func escapeTSV(s string) string {
	s = strings.ReplaceAll(s, "\t", "\\t")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func strValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func yearString(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func intString(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func floatString(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
