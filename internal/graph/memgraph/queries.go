package memgraph

import (
	"context"
	"sort"

	"movie-recommender/internal/movie"
)

// ContentBased follows SIMILAR edges in either direction from every movie
// the user watched and keeps the best score per unwatched candidate.
func (g *Graph) ContentBased(ctx context.Context, userID string, limit int) ([]movie.Recommendation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := g.watched[userID]
	if len(seen) == 0 {
		return nil, nil
	}

	best := make(map[string]float64)
	consider := func(from, to string, score float64) {
		if _, ok := seen[from]; !ok || from == to {
			return
		}
		if _, watched := seen[to]; watched {
			return
		}
		if cur, ok := best[to]; !ok || score > cur {
			best[to] = score
		}
	}
	for e, score := range g.similar {
		consider(e.from, e.to, score)
		consider(e.to, e.from, score)
	}

	recs := make([]movie.Recommendation, 0, len(best))
	for id, score := range best {
		r := g.recommendation(id)
		s := score
		r.Similarity = &s
		recs = append(recs, r)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if *recs[i].Similarity != *recs[j].Similarity {
			return *recs[i].Similarity > *recs[j].Similarity
		}
		return byRatingThenID(recs[i], recs[j])
	})
	return truncate(recs, limit), nil
}

// Collaborative ranks unwatched movies by how many co-watching users watched
// them.
func (g *Graph) Collaborative(ctx context.Context, userID string, limit int) ([]movie.Recommendation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := g.watched[userID]
	if len(seen) == 0 {
		return nil, nil
	}

	shared := make(map[string]int)
	for other, theirs := range g.watched {
		if other == userID || !overlaps(seen, theirs) {
			continue
		}
		for movieID := range theirs {
			if _, watched := seen[movieID]; watched {
				continue
			}
			shared[movieID]++
		}
	}

	recs := make([]movie.Recommendation, 0, len(shared))
	for id, n := range shared {
		r := g.recommendation(id)
		count := n
		r.SharedInterests = &count
		recs = append(recs, r)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if *recs[i].SharedInterests != *recs[j].SharedInterests {
			return *recs[i].SharedInterests > *recs[j].SharedInterests
		}
		return byRatingThenID(recs[i], recs[j])
	})
	return truncate(recs, limit), nil
}

func (g *Graph) recommendation(id string) movie.Recommendation {
	r := movie.Recommendation{MovieID: id, Title: id}
	if node, ok := g.movies[id]; ok {
		if node.title != nil {
			r.Title = *node.title
		}
		r.Year = copyInt(node.year)
		r.Rating = copyFloat(node.rating)
	}
	r.Genre = movie.GenreLabel(sortedKeys(g.belongsTo[id]))
	return r
}

func overlaps(a, b map[string]float64) bool {
	if len(b) < len(a) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

func byRatingThenID(a, b movie.Recommendation) bool {
	ra, rb := -1.0, -1.0
	if a.Rating != nil {
		ra = *a.Rating
	}
	if b.Rating != nil {
		rb = *b.Rating
	}
	if ra != rb {
		return ra > rb
	}
	return a.MovieID < b.MovieID
}

func truncate(recs []movie.Recommendation, limit int) []movie.Recommendation {
	if limit > 0 && len(recs) > limit {
		return recs[:limit]
	}
	return recs
}
