package memgraph

import (
	"context"
	"fmt"
	"sort"
)

// DropProjection removes a named projection; a missing one is ignored.
func (g *Graph) DropProjection(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	delete(g.projections, name)
	g.mu.Unlock()
	return nil
}

// ClearSimilar deletes every SIMILAR edge.
func (g *Graph) ClearSimilar(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	n := int64(len(g.similar))
	g.similar = make(map[edge]float64)
	return n, nil
}

// ProjectGenreGraph snapshots the current movie→genre membership under name.
func (g *Graph) ProjectGenreGraph(ctx context.Context, name string) (nodes, relationships int64, err error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.projections[name]; exists {
		return 0, 0, fmt.Errorf("project %s: graph already exists", name)
	}

	snapshot := make(map[string]map[string]struct{}, len(g.belongsTo))
	for movieID, links := range g.belongsTo {
		if len(links) == 0 {
			continue
		}
		set := make(map[string]struct{}, len(links))
		for genre := range links {
			set[genre] = struct{}{}
		}
		snapshot[movieID] = set
		relationships += int64(len(links))
	}
	g.projections[name] = snapshot
	return int64(len(g.movies) + len(g.genres)), relationships, nil
}

type scored struct {
	target string
	score  float64
}

// WriteNodeSimilarity computes Jaccard similarity between every pair of
// projected movies and keeps, per source movie, the topK targets scoring at
// least cutoff.
func (g *Graph) WriteNodeSimilarity(ctx context.Context, name string, cutoff float64, topK int) (compared, written int64, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	projection, ok := g.projections[name]
	if !ok {
		return 0, 0, fmt.Errorf("node similarity on %s: graph does not exist", name)
	}

	sources := sortedKeys(projection)
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return compared, written, err
		}
		var candidates []scored
		for _, tgt := range sources {
			if tgt == src {
				continue
			}
			score := jaccard(projection[src], projection[tgt])
			if score <= 0 || score < cutoff {
				continue
			}
			candidates = append(candidates, scored{target: tgt, score: score})
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].score != candidates[j].score {
				return candidates[i].score > candidates[j].score
			}
			return candidates[i].target < candidates[j].target
		})
		if topK > 0 && len(candidates) > topK {
			candidates = candidates[:topK]
		}
		for _, c := range candidates {
			g.similar[edge{from: src, to: c.target}] = c.score
			written++
		}
	}
	return int64(len(sources)), written, nil
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
