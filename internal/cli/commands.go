package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"movie-recommender/internal/api"
	"movie-recommender/internal/checkpoint"
	"movie-recommender/internal/config"
	"movie-recommender/internal/dataset"
	"movie-recommender/internal/ingest"
	"movie-recommender/internal/movie"
	"movie-recommender/internal/recommend"
	"movie-recommender/internal/similarity"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the uniqueness constraints on Movie, User and Genre",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, _ *config.Config, d *deps) error {
				if err := d.store.EnsureSchema(ctx); err != nil {
					return err
				}
				log.Info().Msg("Schema constraints in place")
				return nil
			})
		},
	}
}

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <movies.csv> <ratings.csv>",
		Short: "Load movies, genres, users and ratings into the graph",
		Long: `Normalizes a movies metadata file and a ratings file, then writes them in
batches (movies first, then ratings), one transaction per batch. Unless
--skip-similarity is given, the SIMILAR relationships are regenerated afterwards.

A failed run prints its run id; pass it to --resume to continue after the
last committed batch.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reconcile, _ := cmd.Flags().GetBool("reconcile-genres")
			resume, _ := cmd.Flags().GetString("resume")
			skipSimilarity, _ := cmd.Flags().GetBool("skip-similarity")
			writers, _ := cmd.Flags().GetInt("writers")

			return withStore(cmd, func(ctx context.Context, cfg *config.Config, d *deps) error {
				if reconcile {
					cfg.ReconcileGenres = true
				}
				if writers > 0 {
					cfg.WriterCount = writers
				}
				return runIngest(ctx, cfg, d, args[0], args[1], resume, skipSimilarity)
			})
		},
	}

	cmd.Flags().Bool("reconcile-genres", false, "Remove genre links that are no longer in a movie's record")
	cmd.Flags().String("resume", "", "Run id of a failed run to resume")
	cmd.Flags().Bool("skip-similarity", false, "Do not regenerate SIMILAR relationships after loading")
	cmd.Flags().Int("writers", 0, "Concurrent batch writers (overrides WRITER_COUNT)")

	return cmd
}

func runIngest(ctx context.Context, cfg *config.Config, d *deps, moviesPath, ratingsPath, resume string, skipSimilarity bool) error {
	movies, _, err := dataset.LoadMovies(moviesPath)
	if err != nil {
		return err
	}
	ratings, _, err := dataset.LoadRatings(ratingsPath)
	if err != nil {
		return err
	}

	ledger := checkpoint.New(d.pgPool)
	policy := movie.GenresAddOnly
	if cfg.ReconcileGenres {
		policy = movie.GenresReconcile
	}

	pipeline := ingest.NewPipeline(d.store, ledger, ingest.Options{
		MovieBatchSize:  cfg.MovieBatchSize,
		RatingBatchSize: cfg.RatingBatchSize,
		Writers:         cfg.WriterCount,
		GenrePolicy:     policy,
		ResumeRunID:     resume,
	})

	report, err := pipeline.Run(ctx, movies, ratings)
	if err != nil {
		var batchErr *ingest.BatchError
		if errors.As(err, &batchErr) {
			log.Error().
				Str("run_id", report.RunID).
				Bool("ledger_persistent", ledger.Persistent()).
				Msg("Ingestion stopped; rerun with --resume to continue")
		}
		return err
	}

	if skipSimilarity {
		log.Info().Msg("Skipping similarity projection")
		return nil
	}
	_, err = newProjector(cfg, d).Run(ctx)
	return err
}

func newProjector(cfg *config.Config, d *deps) *similarity.Projector {
	cutoff := cfg.SimilarityCutoff
	return similarity.NewProjector(d.store, similarity.Options{
		GraphName: cfg.ProjectionName,
		Cutoff:    &cutoff,
		TopK:      cfg.SimilarityTopK,
	})
}

func similarityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "similarity",
		Short: "Regenerate SIMILAR relationships from shared genres",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, cfg *config.Config, d *deps) error {
				_, err := newProjector(cfg, d).Run(ctx)
				return err
			})
		},
	}
}

func recommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend <user-id>",
		Short: "Print recommendations for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			limit, _ := cmd.Flags().GetInt("limit")
			if err := checkFormat(format); err != nil {
				return err
			}

			return withStore(cmd, func(ctx context.Context, cfg *config.Config, d *deps) error {
				if limit > 0 {
					cfg.RecommendLimit = limit
				}
				engine := recommend.NewEngine(d.store, recommend.Options{
					Limit:       cfg.RecommendLimit,
					PassTimeout: cfg.PassTimeout,
				})
				res, err := engine.Recommend(ctx, args[0])
				if err != nil {
					return err
				}
				return writeResult(cmd.OutOrStdout(), res, format)
			})
		},
	}

	cmd.Flags().String("format", formatText, "Output format: text, json or tsv")
	cmd.Flags().Int("limit", 0, "Maximum number of recommendations (overrides RECOMMEND_LIMIT)")

	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print node and relationship counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, _ *config.Config, d *deps) error {
				stats, err := d.store.Stats(ctx)
				if err != nil {
					return err
				}
				return writeStats(cmd.OutOrStdout(), stats)
			})
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve recommendations over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, cfg *config.Config, d *deps) error {
				engine := recommend.NewEngine(d.store, recommend.Options{
					Limit:       cfg.RecommendLimit,
					PassTimeout: cfg.PassTimeout,
				})
				srv := &http.Server{
					Addr:              cfg.HTTPAddr,
					Handler:           api.NewRouter(engine, d.store),
					ReadHeaderTimeout: 10 * time.Second,
				}

				errCh := make(chan error, 1)
				go func() {
					log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
					errCh <- srv.ListenAndServe()
				}()

				select {
				case err := <-errCh:
					return fmt.Errorf("http server: %w", err)
				case <-ctx.Done():
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("shutdown http server: %w", err)
				}
				log.Info().Msg("HTTP server stopped")
				return nil
			})
		},
	}
}

func demoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo [user-id]",
		Short: "Run the full pipeline on a small built-in dataset without a database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			if err := checkFormat(format); err != nil {
				return err
			}
			if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
				configureLogging(lvl)
			}
			userID := "1"
			if len(args) == 1 {
				userID = args[0]
			}

			ctx, cancel := setupContext()
			defer cancel()
			return runDemo(ctx, cmd.OutOrStdout(), userID, format)
		},
	}
	cmd.Flags().String("format", formatText, "Output format: text, json or tsv")
	return cmd
}

// withStore loads config, connects, runs fn and releases the connections.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, d *deps) error) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	d, err := initDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close(context.WithoutCancel(ctx))

	return fn(ctx, cfg, d)
}
