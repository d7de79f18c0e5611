// Package ingest loads normalized movies and ratings into the graph in
// bounded batches, one transaction per batch.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"movie-recommender/internal/checkpoint"
	"movie-recommender/internal/metrics"
	"movie-recommender/internal/movie"
	"movie-recommender/internal/worker"
)

const (
	StageMovies  = "movies"
	StageRatings = "ratings"

	DefaultMovieBatchSize  = 1000
	DefaultRatingBatchSize = 10000
)

// Writer is the part of the graph store the pipeline writes through. Each
// upsert call must be a single atomic transaction and idempotent.
type Writer interface {
	EnsureSchema(ctx context.Context) error
	UpsertMovies(ctx context.Context, movies []movie.Movie, policy movie.GenrePolicy) (movie.WriteSummary, error)
	UpsertRatings(ctx context.Context, ratings []movie.Rating) (movie.WriteSummary, error)
}

// Options tune a pipeline run.
type Options struct {
	MovieBatchSize  int
	RatingBatchSize int
	// Writers is the number of concurrent batch writers per stage.
	Writers     int
	GenrePolicy movie.GenrePolicy
	// ResumeRunID continues an earlier run, skipping its committed batches.
	ResumeRunID string
}

// StageReport summarises one stage.
type StageReport struct {
	Stage     string             `json:"stage"`
	Batches   int                `json:"batches"`
	Committed int                `json:"committed"`
	Skipped   int                `json:"skipped"`
	Written   movie.WriteSummary `json:"written"`
}

// Report summarises a run. It is returned even when the run fails so the
// caller knows the run id to resume.
type Report struct {
	RunID    string        `json:"run_id"`
	Resumed  bool          `json:"resumed"`
	Movies   StageReport   `json:"movies"`
	Ratings  StageReport   `json:"ratings"`
	Duration time.Duration `json:"duration"`
}

// Pipeline writes datasets into the graph.
type Pipeline struct {
	store  Writer
	ledger *checkpoint.Ledger
	opts   Options
}

// NewPipeline creates a pipeline. A nil ledger keeps batch state in memory.
func NewPipeline(store Writer, ledger *checkpoint.Ledger, opts Options) *Pipeline {
	if opts.MovieBatchSize <= 0 {
		opts.MovieBatchSize = DefaultMovieBatchSize
	}
	if opts.RatingBatchSize <= 0 {
		opts.RatingBatchSize = DefaultRatingBatchSize
	}
	if opts.Writers <= 0 {
		opts.Writers = 1
	}
	if ledger == nil {
		ledger = checkpoint.New(nil)
	}
	return &Pipeline{store: store, ledger: ledger, opts: opts}
}

// Run ensures the schema, then writes all movie batches followed by all
// rating batches. The first batch that fails stops the run and is returned
// as a *BatchError. A schema or ledger failure, or a resume of a run the
// ledger has no batches for, is a *SetupError.
func (p *Pipeline) Run(ctx context.Context, movies []movie.Movie, ratings []movie.Rating) (*Report, error) {
	start := time.Now()
	report := &Report{
		RunID:   p.opts.ResumeRunID,
		Resumed: p.opts.ResumeRunID != "",
		Movies:  StageReport{Stage: StageMovies},
		Ratings: StageReport{Stage: StageRatings},
	}
	if report.RunID == "" {
		report.RunID = uuid.NewString()
	}
	defer func() { report.Duration = time.Since(start) }()

	if err := p.store.EnsureSchema(ctx); err != nil {
		return report, &SetupError{Step: "schema", Err: err}
	}
	if err := p.ledger.EnsureTable(ctx); err != nil {
		return report, &SetupError{Step: "ledger", Err: err}
	}
	if report.Resumed {
		known, err := p.ledger.Preload(ctx, report.RunID)
		if err != nil {
			return report, &SetupError{Step: "ledger", Err: err}
		}
		if known == 0 {
			return report, &SetupError{Step: "resume", Err: fmt.Errorf("%w %s", ErrUnknownRun, report.RunID)}
		}
	}

	log.Info().
		Str("run_id", report.RunID).
		Bool("resumed", report.Resumed).
		Int("movies", len(movies)).
		Int("ratings", len(ratings)).
		Int("writers", p.opts.Writers).
		Str("genre_policy", p.opts.GenrePolicy.String()).
		Msg("Starting ingestion")

	err := runStage(ctx, p, report.RunID, &report.Movies, movies, p.opts.MovieBatchSize,
		func(m movie.Movie) string { return m.ID },
		func(ctx context.Context, batch []movie.Movie) (movie.WriteSummary, error) {
			return p.store.UpsertMovies(ctx, batch, p.opts.GenrePolicy)
		})
	if err != nil {
		return report, err
	}

	err = runStage(ctx, p, report.RunID, &report.Ratings, ratings, p.opts.RatingBatchSize,
		func(r movie.Rating) string { return r.UserID + "/" + r.MovieID },
		p.store.UpsertRatings)
	if err != nil {
		return report, err
	}

	log.Info().
		Str("run_id", report.RunID).
		Int("movie_batches", report.Movies.Committed).
		Int("rating_batches", report.Ratings.Committed).
		Int("skipped", report.Movies.Skipped+report.Ratings.Skipped).
		Dur("elapsed", time.Since(start)).
		Msg("Ingestion complete")
	return report, nil
}

type batchOutcome struct {
	summary movie.WriteSummary
	skipped bool
}

func runStage[T any](
	ctx context.Context,
	p *Pipeline,
	runID string,
	report *StageReport,
	items []T,
	size int,
	keyOf func(T) string,
	write func(context.Context, []T) (movie.WriteSummary, error),
) error {
	batches := worker.Batch(items, size)
	report.Batches = len(batches)
	if len(batches) == 0 {
		return nil
	}

	entry := func(index int, batch []T) checkpoint.Entry {
		return checkpoint.Entry{
			RunID:    runID,
			Stage:    report.Stage,
			Index:    index,
			FirstKey: keyOf(batch[0]),
			LastKey:  keyOf(batch[len(batch)-1]),
			Size:     len(batch),
		}
	}

	pool := worker.NewPool(p.opts.Writers, func(ctx context.Context, index int, batch []T) (batchOutcome, error) {
		if p.ledger.IsCommitted(entry(index, batch)) {
			metrics.RecordBatch(report.Stage, "skipped", len(batch), 0)
			return batchOutcome{skipped: true}, nil
		}

		started := time.Now()
		summary, err := write(ctx, batch)
		elapsed := time.Since(started)

		e := entry(index, batch)
		e.Status = checkpoint.StatusCommitted
		if err != nil {
			e.Status = checkpoint.StatusFailed
			e.Error = err.Error()
			metrics.RecordBatch(report.Stage, "failed", len(batch), elapsed)
		} else {
			metrics.RecordBatch(report.Stage, "committed", len(batch), elapsed)
			log.Debug().
				Str("stage", report.Stage).
				Int("batch", index).
				Int("size", len(batch)).
				Dur("elapsed", elapsed).
				Msg("Committed batch")
		}
		// Recorded even when ctx is already cancelled.
		if lerr := p.ledger.Record(context.WithoutCancel(ctx), e); lerr != nil {
			log.Warn().Err(lerr).Str("stage", report.Stage).Int("batch", index).Msg("Failed to persist batch status")
		}
		return batchOutcome{summary: summary}, err
	}).StopOnError(true)

	tasks := pool.Execute(ctx, batches)

	var failed *BatchError
	firstUndone := -1
	for _, task := range tasks {
		switch {
		case task.Err != nil:
			if failed == nil {
				e := entry(task.Index, task.Input)
				failed = &BatchError{
					Stage: report.Stage, Index: task.Index,
					FirstKey: e.FirstKey, LastKey: e.LastKey, Size: e.Size,
					Err: task.Err,
				}
			}
		case !task.Done:
			if firstUndone < 0 {
				firstUndone = task.Index
			}
		case task.Result.skipped:
			report.Skipped++
		default:
			report.Committed++
			addSummary(&report.Written, task.Result.summary)
		}
	}

	if failed == nil && firstUndone >= 0 {
		cause := ctx.Err()
		if cause == nil {
			cause = context.Canceled
		}
		e := entry(firstUndone, tasks[firstUndone].Input)
		failed = &BatchError{
			Stage: report.Stage, Index: firstUndone,
			FirstKey: e.FirstKey, LastKey: e.LastKey, Size: e.Size,
			Err: cause,
		}
	}
	if failed != nil {
		log.Error().
			Err(failed.Err).
			Str("stage", failed.Stage).
			Int("batch", failed.Index).
			Str("first_key", failed.FirstKey).
			Str("last_key", failed.LastKey).
			Int("size", failed.Size).
			Msg("Batch did not commit")
		return failed
	}

	log.Info().
		Str("stage", report.Stage).
		Int("batches", report.Batches).
		Int("committed", report.Committed).
		Int("skipped", report.Skipped).
		Int("nodes_created", report.Written.NodesCreated).
		Int("relationships_created", report.Written.RelationshipsCreated).
		Msg("Stage complete")
	return nil
}

func addSummary(dst *movie.WriteSummary, s movie.WriteSummary) {
	dst.Records += s.Records
	dst.NodesCreated += s.NodesCreated
	dst.RelationshipsCreated += s.RelationshipsCreated
	dst.RelationshipsDeleted += s.RelationshipsDeleted
	dst.PropertiesSet += s.PropertiesSet
}
