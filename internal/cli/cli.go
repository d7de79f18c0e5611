package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"movie-recommender/internal/config"
	"movie-recommender/internal/graph"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "movie-recommender",
		Short:        "Graph-backed movie recommendations on Neo4j",
		Long:         "Loads movie metadata and user ratings into a Neo4j graph, derives genre similarity between movies and serves content-based recommendations with a collaborative fallback.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("log-level", "", "Override LOG_LEVEL (trace, debug, info, warn, error)")

	rootCmd.AddCommand(schemaCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(similarityCmd())
	rootCmd.AddCommand(recommendCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(demoCmd())

	return rootCmd
}

// loadConfig reads the environment, applies the --log-level override and
// validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Load()
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = strings.ToLower(lvl)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	configureLogging(cfg.LogLevel)
	return cfg, nil
}

func configureLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// setupContext returns a context cancelled on SIGINT or SIGTERM.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			log.Warn().Msg("Received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// deps are the connections shared by every command.
type deps struct {
	driver neo4j.DriverWithContext
	pgPool *pgxpool.Pool
	store  *graph.Store
}

func (d *deps) Close(ctx context.Context) {
	if d.pgPool != nil {
		d.pgPool.Close()
	}
	if err := d.driver.Close(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to close Neo4j driver")
	}
}

// initDependencies connects to Neo4j and, when DATABASE_URL is set, to the
// PostgreSQL checkpoint database.
func initDependencies(ctx context.Context, cfg *config.Config) (*deps, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
		func(c *neo4j.Config) {
			c.MaxConnectionPoolSize = cfg.Neo4jMaxPoolSize
			c.SocketConnectTimeout = cfg.Neo4jConnectTimeout
		})
	if err != nil {
		return nil, fmt.Errorf("connect Neo4j: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("verify Neo4j connectivity: %w", err)
	}
	log.Info().Str("uri", cfg.Neo4jURI).Msg("Connected to Neo4j")

	d := &deps{driver: driver, store: graph.NewStore(driver, cfg.Neo4jDatabase)}

	if cfg.DatabaseURL == "" {
		return d, nil
	}

	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("connect PostgreSQL: %w", err)
	}
	if err := pgPool.Ping(ctx); err != nil {
		pgPool.Close()
		driver.Close(ctx)
		return nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}
	log.Info().Msg("Connected to PostgreSQL checkpoint ledger")
	d.pgPool = pgPool

	return d, nil
}
