// Package movie holds the typed records that cross the boundary between the
// dataset normalizer, the ingestion pipeline, the graph store and the
// recommendation engine.
package movie

import "strings"

// Movie is a normalized movie record. Identity is always a string so that
// numeric dataset ids and external ids are handled the same way.
type Movie struct {
	ID          string   `json:"id" validate:"required"`
	Title       string   `json:"title" validate:"required"`
	ReleaseYear *int     `json:"release_year,omitempty" validate:"omitempty,min=1800,max=3000"`
	Rating      *float64 `json:"rating,omitempty" validate:"omitempty,min=0,max=10"`
	Genres      []string `json:"genres" validate:"dive,required"`
}

// Rating is one user's rating of one movie.
type Rating struct {
	UserID  string  `json:"user_id" validate:"required"`
	MovieID string  `json:"movie_id" validate:"required"`
	Rating  float64 `json:"rating" validate:"min=0,max=10"`
}

// GenrePolicy decides what happens to BELONGS_TO edges that are no longer
// present in a re-ingested movie record.
type GenrePolicy int

const (
	// GenresAddOnly links missing genres and leaves stale links in place.
	GenresAddOnly GenrePolicy = iota
	// GenresReconcile links missing genres and removes links to genres that
	// are absent from the record.
	GenresReconcile
)

func (p GenrePolicy) String() string {
	if p == GenresReconcile {
		return "reconcile"
	}
	return "add-only"
}

// Recommendation is a single ranked result. Optional attributes are nil when
// the graph does not carry them.
type Recommendation struct {
	MovieID         string   `json:"movie_id,omitempty"`
	Title           string   `json:"title"`
	Year            *int     `json:"year"`
	Genre           *string  `json:"genre"`
	Rating          *float64 `json:"rating"`
	Similarity      *float64 `json:"similarity,omitempty"`
	SharedInterests *int     `json:"shared_interest_count"`
}

// GenreLabel joins genre names for display, or returns nil when there are none.
func GenreLabel(genres []string) *string {
	var names []string
	for _, g := range genres {
		if g = strings.TrimSpace(g); g != "" {
			names = append(names, g)
		}
	}
	if len(names) == 0 {
		return nil
	}
	s := strings.Join(names, ", ")
	return &s
}

// GraphStats reports node and relationship counts per kind.
type GraphStats struct {
	Movies    int64 `json:"movies"`
	Genres    int64 `json:"genres"`
	Users     int64 `json:"users"`
	BelongsTo int64 `json:"belongs_to"`
	Watched   int64 `json:"watched"`
	Similar   int64 `json:"similar"`
}

// WriteSummary describes what a single batch transaction changed.
type WriteSummary struct {
	Records              int
	NodesCreated         int
	RelationshipsCreated int
	RelationshipsDeleted int
	PropertiesSet        int
}
