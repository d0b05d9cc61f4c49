package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"example.com/mailevents/internal/domain"
	"example.com/mailevents/internal/storage"
)

// maxBindParams is SQLITE_MAX_VARIABLE_NUMBER for modern builds.
const maxBindParams = 32766

type Writer struct {
	db        *sql.DB
	maxParams int
}

var _ storage.Sink = (*Writer)(nil)

func NewWriter(db *DB) *Writer { return &Writer{db: db.SQL, maxParams: maxBindParams} }

// InsertBatch has the same contract as the Postgres writer: duplicates by
// event_id are skipped and the batch is all-or-nothing.
func (w *Writer) InsertBatch(ctx context.Context, events []domain.Event) (storage.Result, error) {
	if len(events) == 0 {
		return storage.Result{}, nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Result{}, classify(fmt.Errorf("begin: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	var inserted int64
	for _, chunk := range storage.Chunk(events, w.maxParams) {
		res, err := tx.ExecContext(ctx, storage.InsertSQL(len(chunk), storage.QuestionPlaceholder), args(chunk)...)
		if err != nil {
			return storage.Result{}, classify(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return storage.Result{}, fmt.Errorf("rows affected: %w", err)
		}
		inserted += n
	}
	if err := tx.Commit(); err != nil {
		return storage.Result{}, classify(fmt.Errorf("commit: %w", err))
	}
	return storage.Result{Submitted: len(events), Inserted: inserted}, nil
}

func args(events []domain.Event) []any {
	a := storage.Args(events)
	for i, v := range a {
		if t, ok := v.(time.Time); ok {
			a[i] = formatTime(t)
		}
	}
	return a
}

func classify(err error) error {
	var se *msqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return &storage.TransientError{Err: err}
		}
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &storage.TransientError{Err: err}
	}
	return err
}
