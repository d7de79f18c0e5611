// Package similarity regenerates SIMILAR relationships between movies from
// their shared genres using the store's node-similarity primitive.
package similarity

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"movie-recommender/internal/metrics"
)

const (
	DefaultGraphName = "movieGenres"
	DefaultCutoff    = 0.1
	DefaultTopK      = 10
)

// Analytics is the graph analytics surface of the store.
type Analytics interface {
	DropProjection(ctx context.Context, name string) error
	ClearSimilar(ctx context.Context) (int64, error)
	ProjectGenreGraph(ctx context.Context, name string) (nodes, relationships int64, err error)
	WriteNodeSimilarity(ctx context.Context, name string, cutoff float64, topK int) (compared, written int64, err error)
}

// Options configure a projection run.
type Options struct {
	GraphName string
	// Cutoff is the lowest score written. Nil selects DefaultCutoff; zero
	// keeps every pair sharing at least one genre.
	Cutoff *float64
	TopK   int
}

// Report describes a completed run.
type Report struct {
	GraphName          string        `json:"graph_name"`
	Cleared            int64         `json:"cleared"`
	ProjectedNodes     int64         `json:"projected_nodes"`
	ProjectedRelations int64         `json:"projected_relationships"`
	NodesCompared      int64         `json:"nodes_compared"`
	Written            int64         `json:"relationships_written"`
	Duration           time.Duration `json:"duration"`
}

// Projector runs the projection, scoring and cleanup sequence.
type Projector struct {
	store  Analytics
	opts   Options
	cutoff float64
}

// NewProjector creates a projector, filling unset options with defaults.
func NewProjector(store Analytics, opts Options) *Projector {
	if opts.GraphName == "" {
		opts.GraphName = DefaultGraphName
	}
	cutoff := DefaultCutoff
	if opts.Cutoff != nil && *opts.Cutoff >= 0 {
		cutoff = *opts.Cutoff
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	return &Projector{store: store, opts: opts, cutoff: cutoff}
}

// Run drops any leftover projection, clears existing SIMILAR edges, projects
// movies with their genres, writes scored pairs and drops the projection
// again. SIMILAR edges may be partially written when it fails; a rerun
// regenerates them.
func (p *Projector) Run(ctx context.Context) (report *Report, err error) {
	start := time.Now()
	name := p.opts.GraphName
	report = &Report{GraphName: name}
	defer func() {
		report.Duration = time.Since(start)
		metrics.RecordSimilarity(report.Written, err)
	}()

	if err := p.store.DropProjection(ctx, name); err != nil {
		return report, fmt.Errorf("drop leftover projection: %w", err)
	}

	report.Cleared, err = p.store.ClearSimilar(ctx)
	if err != nil {
		return report, err
	}

	report.ProjectedNodes, report.ProjectedRelations, err = p.store.ProjectGenreGraph(ctx, name)
	if err != nil {
		return report, err
	}
	defer func() {
		if derr := p.store.DropProjection(context.WithoutCancel(ctx), name); derr != nil {
			log.Warn().Err(derr).Str("graph", name).Msg("Failed to drop projection")
		}
	}()

	report.NodesCompared, report.Written, err = p.store.WriteNodeSimilarity(ctx, name, p.cutoff, p.opts.TopK)
	if err != nil {
		return report, err
	}

	log.Info().
		Str("graph", name).
		Float64("cutoff", p.cutoff).
		Int("top_k", p.opts.TopK).
		Int64("cleared", report.Cleared).
		Int64("compared", report.NodesCompared).
		Int64("written", report.Written).
		Dur("elapsed", time.Since(start)).
		Msg("Similarity projection complete")
	return report, nil
}
