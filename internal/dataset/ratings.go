package dataset

import (
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"movie-recommender/internal/movie"
	"movie-recommender/internal/textutil"
	"movie-recommender/internal/validation"

	"github.com/rs/zerolog/log"
)

var ratingColumns = map[string][]string{
	"user_id":  {"userId", "user_id", "user"},
	"movie_id": {"movieId", "movie_id", "movie"},
	"rating":   {"rating", "score"},
}

// ReadRatings normalizes a ratings table.
func ReadRatings(r io.Reader) ([]movie.Rating, Stats, error) {
	var (
		stats   Stats
		cols    columns
		ratings []movie.Rating
	)

	err := eachRow(r,
		func(header []string) error {
			var err error
			cols, err = newColumns(header, ratingColumns, nil)
			return err
		},
		func(line int, row []string) {
			stats.Rows++
			rt, reason := ratingFromRow(cols, row)
			if reason != "" {
				log.Debug().Int("line", line).Str("reason", reason).Msg("Dropped rating row")
				stats.drop(reason)
				return
			}
			ratings = append(ratings, rt)
			stats.Accepted++
		},
		func(line int, err error) {
			stats.Rows++
			log.Debug().Err(err).Int("line", line).Msg("Dropped undecodable rating row")
			stats.drop("malformed")
		},
	)
	if err != nil {
		return nil, stats, err
	}
	return ratings, stats, nil
}

// LoadRatings reads and normalizes a ratings file.
func LoadRatings(path string) ([]movie.Rating, Stats, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, Stats{}, err
	}
	defer f.Close()

	ratings, stats, err := ReadRatings(f)
	if err != nil {
		return nil, stats, err
	}
	logStats("ratings", path, stats)
	return ratings, stats, nil
}

func ratingFromRow(cols columns, row []string) (movie.Rating, string) {
	value, err := strconv.ParseFloat(cols.get(row, "rating"), 64)
	if err != nil || math.IsNaN(value) {
		return movie.Rating{}, "invalid_rating"
	}

	rt := movie.Rating{
		UserID:  textutil.NormalizeID(cols.get(row, "user_id")),
		MovieID: textutil.NormalizeID(cols.get(row, "movie_id")),
		Rating:  value,
	}
	if err := validation.Struct(rt); err != nil {
		var verr *validation.Error
		if asValidation(err, &verr) && len(verr.Fields) > 0 {
			return movie.Rating{}, "invalid_" + strings.ToLower(lastSegment(verr.Fields[0].Field))
		}
		return movie.Rating{}, "invalid"
	}
	return rt, ""
}

func asValidation(err error, target **validation.Error) bool {
	return errors.As(err, target)
}
