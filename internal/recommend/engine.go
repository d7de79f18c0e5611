// Package recommend produces ranked movie recommendations for a user: a
// content-based pass over SIMILAR edges first, a collaborative pass over
// co-watching users when that finds nothing, and a sentinel result when
// neither does.
package recommend

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"movie-recommender/internal/metrics"
	"movie-recommender/internal/movie"
)

const (
	DefaultLimit       = 10
	DefaultPassTimeout = 5 * time.Second

	// NoRecommendations is the title of the sentinel item returned when both
	// passes come back empty.
	NoRecommendations = "no recommendations available"
)

// Strategy names the pass that produced a result.
type Strategy string

const (
	StrategyContent       Strategy = "content"
	StrategyCollaborative Strategy = "collaborative"
	StrategyNone          Strategy = "none"
)

// Store is the read side of the graph store.
type Store interface {
	ContentBased(ctx context.Context, userID string, limit int) ([]movie.Recommendation, error)
	Collaborative(ctx context.Context, userID string, limit int) ([]movie.Recommendation, error)
}

// Result is a successful recommendation. When nothing was found, Strategy is
// StrategyNone and Items holds the single sentinel item.
type Result struct {
	UserID   string                 `json:"user_id"`
	Strategy Strategy               `json:"strategy"`
	Items    []movie.Recommendation `json:"items"`
}

// Empty reports whether Result is the sentinel.
func (r *Result) Empty() bool {
	return r.Strategy == StrategyNone
}

// Options configure an Engine.
type Options struct {
	Limit       int
	PassTimeout time.Duration
}

// Engine answers recommendation requests.
type Engine struct {
	store       Store
	limit       int
	passTimeout time.Duration
}

// NewEngine creates an engine, filling unset options with defaults.
func NewEngine(store Store, opts Options) *Engine {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.PassTimeout <= 0 {
		opts.PassTimeout = DefaultPassTimeout
	}
	return &Engine{store: store, limit: opts.Limit, passTimeout: opts.PassTimeout}
}

// Limit returns the maximum number of items per result.
func (e *Engine) Limit() int { return e.limit }

// WithLimit returns a copy of the engine with a different result limit.
func (e *Engine) WithLimit(limit int) *Engine {
	c := *e
	if limit > 0 {
		c.limit = limit
	}
	return &c
}

// Recommend returns up to Limit recommendations for userID. Unknown users
// and empty graphs produce the sentinel result; only an invalid id or a
// store failure produces a *QueryError.
func (e *Engine) Recommend(ctx context.Context, userID string) (res *Result, err error) {
	start := time.Now()
	defer func() {
		strategy := ""
		if res != nil {
			strategy = string(res.Strategy)
		}
		metrics.RecordRecommendation(strategy, time.Since(start), err)
	}()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, &QueryError{Pass: "validate", Err: ErrEmptyUserID}
	}

	items, err := e.contentPass(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		return e.result(userID, StrategyContent, items), nil
	}

	items, err = e.collaborativePass(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		return e.result(userID, StrategyCollaborative, items), nil
	}

	return e.result(userID, StrategyNone, []movie.Recommendation{{Title: NoRecommendations}}), nil
}

func (e *Engine) contentPass(ctx context.Context, userID string) ([]movie.Recommendation, error) {
	passCtx, cancel := context.WithTimeout(ctx, e.passTimeout)
	defer cancel()

	rows, err := e.store.ContentBased(passCtx, userID, e.limit)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			metrics.RecommendPassTimeouts.Inc()
			log.Warn().Str("user", userID).Dur("timeout", e.passTimeout).Msg("Content-based pass timed out, falling back")
			return nil, nil
		}
		return nil, &QueryError{UserID: userID, Pass: string(StrategyContent), Err: err}
	}
	return normalize(rows, e.limit, byContent), nil
}

func (e *Engine) collaborativePass(ctx context.Context, userID string) ([]movie.Recommendation, error) {
	passCtx, cancel := context.WithTimeout(ctx, e.passTimeout)
	defer cancel()

	rows, err := e.store.Collaborative(passCtx, userID, e.limit)
	if err != nil {
		return nil, &QueryError{UserID: userID, Pass: string(StrategyCollaborative), Err: err}
	}
	return normalize(rows, e.limit, byCollaborative), nil
}

func (e *Engine) result(userID string, strategy Strategy, items []movie.Recommendation) *Result {
	log.Debug().Str("user", userID).Str("strategy", string(strategy)).Int("items", len(items)).Msg("Recommendation served")
	return &Result{UserID: userID, Strategy: strategy, Items: items}
}

// normalize orders rows, keeps the first row per movie and truncates to limit.
func normalize(rows []movie.Recommendation, limit int, less func(a, b movie.Recommendation) bool) []movie.Recommendation {
	sorted := make([]movie.Recommendation, 0, len(rows))
	for _, r := range rows {
		if r.MovieID != "" {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })

	seen := make(map[string]struct{}, len(sorted))
	out := sorted[:0]
	for _, r := range sorted {
		if _, dup := seen[r.MovieID]; dup {
			continue
		}
		seen[r.MovieID] = struct{}{}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out
}

func byContent(a, b movie.Recommendation) bool {
	if sa, sb := floatOr(a.Similarity), floatOr(b.Similarity); sa != sb {
		return sa > sb
	}
	return byRatingThenID(a, b)
}

func byCollaborative(a, b movie.Recommendation) bool {
	if ca, cb := intOr(a.SharedInterests), intOr(b.SharedInterests); ca != cb {
		return ca > cb
	}
	return byRatingThenID(a, b)
}

func byRatingThenID(a, b movie.Recommendation) bool {
	if ra, rb := floatOr(a.Rating), floatOr(b.Rating); ra != rb {
		return ra > rb
	}
	return a.MovieID < b.MovieID
}

func floatOr(v *float64) float64 {
	if v == nil {
		return -1
	}
	return *v
}

func intOr(v *int) int {
	if v == nil {
		return -1
	}
	return *v
}
