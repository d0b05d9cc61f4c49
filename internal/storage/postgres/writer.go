package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"example.com/mailevents/internal/domain"
	"example.com/mailevents/internal/storage"
)

// maxBindParams is the Postgres wire protocol limit per statement.
const maxBindParams = 65535

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Writer struct {
	db        dbtx
	maxParams int
}

var _ storage.Sink = (*Writer)(nil)

func NewWriter(db *DB) *Writer { return &Writer{db: db.Pool, maxParams: maxBindParams} }

// InsertBatch inserts events with ON CONFLICT (event_id) DO NOTHING to enforce
// idempotency. Batches too large for one statement are written in a single
// transaction so the batch still lands all-or-nothing.
func (w *Writer) InsertBatch(ctx context.Context, events []domain.Event) (storage.Result, error) {
	if len(events) == 0 {
		return storage.Result{}, nil
	}

	chunks := storage.Chunk(events, w.maxParams)
	if len(chunks) == 1 {
		ct, err := w.db.Exec(ctx, storage.InsertSQL(len(events), storage.DollarPlaceholder), storage.Args(events)...)
		if err != nil {
			return storage.Result{}, classify(err)
		}
		return storage.Result{Submitted: len(events), Inserted: ct.RowsAffected()}, nil
	}

	tx, err := w.db.Begin(ctx)
	if err != nil {
		return storage.Result{}, classify(fmt.Errorf("begin: %w", err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var inserted int64
	for _, chunk := range chunks {
		ct, err := tx.Exec(ctx, storage.InsertSQL(len(chunk), storage.DollarPlaceholder), storage.Args(chunk)...)
		if err != nil {
			return storage.Result{}, classify(err)
		}
		inserted += ct.RowsAffected()
	}
	if err := tx.Commit(ctx); err != nil {
		return storage.Result{}, classify(fmt.Errorf("commit: %w", err))
	}
	return storage.Result{Submitted: len(events), Inserted: inserted}, nil
}

// classify marks connection-level failures as transient. Server-side errors
// (constraint violations, bad input) are permanent.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return err
	}
	var connErr *pgconn.ConnectError
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) || errors.As(err, &connErr) ||
		errors.Is(err, context.DeadlineExceeded) {
		return &storage.TransientError{Err: err}
	}
	return err
}
