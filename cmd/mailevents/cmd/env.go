package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"example.com/mailevents/internal/config"
	"example.com/mailevents/internal/ingest"
	"example.com/mailevents/internal/storage"
	"example.com/mailevents/internal/storage/postgres"
	"example.com/mailevents/internal/storage/sqlite"
)

type env struct {
	cfg    config.Config
	logger zerolog.Logger
}

func setup() (env, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return env{}, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(
		zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339},
	).Level(level).With().Timestamp().Logger()
	return env{cfg: cfg, logger: logger}, nil
}

// openStore connects to the backend named by store.dsn.
func (e env) openStore(ctx context.Context) (storage.Store, storage.Sink, error) {
	driver, err := e.cfg.Store.Driver()
	if err != nil {
		return nil, nil, err
	}
	switch driver {
	case "sqlite":
		db, err := sqlite.Open(e.cfg.Store.SQLitePath())
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		return db, sqlite.NewWriter(db), nil
	default:
		db, err := postgres.Connect(ctx, e.cfg.Store.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		return db, postgres.NewWriter(db), nil
	}
}

// openMigrated opens the store and provisions email_events.
func (e env) openMigrated(ctx context.Context) (storage.Store, storage.Sink, error) {
	store, sink, err := e.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("migration: %w", err)
	}
	e.logger.Info().Str("dsn", e.cfg.Store.Redacted()).Msg("db: connected, schema applied")
	return store, sink, nil
}

func (e env) newRunner(sink storage.Sink) (*ingest.Runner, error) {
	policy := ingest.RetryPolicy{
		MaxRetries: e.cfg.Retry.MaxRetries,
		Initial:    e.cfg.Retry.Initial,
		Max:        e.cfg.Retry.Max,
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("retry: %w", err)
	}
	r := ingest.NewRunner(sink, e.logger)
	r.Retry = policy
	r.StoreTimeout = e.cfg.Store.Timeout
	r.Workers = e.cfg.Batch.Workers
	return r, nil
}

func printSummary(sum ingest.Summary) {
	fmt.Printf("Batches:   %d\n", sum.Batches)
	fmt.Printf("Lines:     %d\n", sum.Lines)
	fmt.Printf("Rejected:  %d\n", sum.Rejected)
	fmt.Printf("Submitted: %d\n", sum.Submitted)
	fmt.Printf("Inserted:  %d\n", sum.Inserted)
}
