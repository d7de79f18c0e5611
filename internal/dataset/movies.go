package dataset

import (
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"movie-recommender/internal/movie"
	"movie-recommender/internal/textutil"
	"movie-recommender/internal/validation"

	"github.com/rs/zerolog/log"
)

var movieColumns = map[string][]string{
	"id":    {"id", "movieId", "movie_id"},
	"title": {"title", "original_title"},
}

var movieOptionalColumns = map[string][]string{
	"genres":       {"genres"},
	"release_date": {"release_date", "release_year", "year"},
	"vote_average": {"vote_average", "rating"},
}

// genreNamePattern matches the name entries of a Python-literal or JSON list
// of genre objects, e.g. [{'id': 16, 'name': 'Animation'}].
var genreNamePattern = regexp.MustCompile(`['"]name['"]\s*:\s*(?:'((?:[^'\\]|\\.)*)'|"((?:[^"\\]|\\.)*)")`)

// ReadMovies normalizes a movie metadata table.
func ReadMovies(r io.Reader) ([]movie.Movie, Stats, error) {
	var (
		stats  Stats
		cols   columns
		movies []movie.Movie
	)

	err := eachRow(r,
		func(header []string) error {
			var err error
			cols, err = newColumns(header, movieColumns, movieOptionalColumns)
			return err
		},
		func(line int, row []string) {
			stats.Rows++
			m, reason := movieFromRow(cols, row)
			if reason != "" {
				log.Debug().Int("line", line).Str("reason", reason).Msg("Dropped movie row")
				stats.drop(reason)
				return
			}
			movies = append(movies, m)
			stats.Accepted++
		},
		func(line int, err error) {
			stats.Rows++
			log.Debug().Err(err).Int("line", line).Msg("Dropped undecodable movie row")
			stats.drop("malformed")
		},
	)
	if err != nil {
		return nil, stats, err
	}
	return movies, stats, nil
}

// LoadMovies reads and normalizes a movie metadata file.
func LoadMovies(path string) ([]movie.Movie, Stats, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, Stats{}, err
	}
	defer f.Close()

	movies, stats, err := ReadMovies(f)
	if err != nil {
		return nil, stats, err
	}
	logStats("movies", path, stats)
	return movies, stats, nil
}

func movieFromRow(cols columns, row []string) (movie.Movie, string) {
	m := movie.Movie{
		ID:          textutil.NormalizeID(cols.get(row, "id")),
		Title:       cols.get(row, "title"),
		ReleaseYear: ParseYear(cols.get(row, "release_date")),
		Genres:      ParseGenres(cols.get(row, "genres")),
	}
	if v := cols.get(row, "vote_average"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(f) {
			m.Rating = &f
		}
	}

	if err := validation.Struct(m); err != nil {
		var verr *validation.Error
		if ok := asValidation(err, &verr); ok && len(verr.Fields) > 0 {
			return movie.Movie{}, "invalid_" + strings.ToLower(lastSegment(verr.Fields[0].Field))
		}
		return movie.Movie{}, "invalid"
	}
	return m, ""
}

// ParseGenres extracts genre names from the supported encodings: a list of
// {'id': .., 'name': ..} objects, or a pipe-separated string. Anything else
// yields an empty list.
func ParseGenres(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "[]" || strings.EqualFold(raw, "(no genres listed)") {
		return []string{}
	}

	seen := make(map[string]bool)
	var genres []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		genres = append(genres, name)
	}

	if strings.HasPrefix(raw, "[") {
		for _, m := range genreNamePattern.FindAllStringSubmatch(raw, -1) {
			name := m[1]
			if name == "" {
				name = m[2]
			}
			add(unescape(name))
		}
	} else {
		for _, part := range strings.Split(raw, "|") {
			add(part)
		}
	}

	if genres == nil {
		return []string{}
	}
	return genres
}

// ParseYear derives a release year from "YYYY", "YYYY-MM-DD" or similar
// values. Missing or unparseable dates yield nil.
func ParseYear(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	head := raw
	if i := strings.IndexAny(raw, "-/ "); i >= 0 {
		head = raw[:i]
	}
	if strings.Contains(head, ".") {
		head = strings.SplitN(head, ".", 2)[0]
	}
	if len(head) != 4 {
		return nil
	}
	year, err := strconv.Atoi(head)
	if err != nil || year < 1800 {
		return nil
	}
	return &year
}

func unescape(s string) string {
	r := strings.NewReplacer(`\'`, `'`, `\"`, `"`, `\\`, `\`)
	return r.Replace(s)
}

func lastSegment(ns string) string {
	if i := strings.LastIndex(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
