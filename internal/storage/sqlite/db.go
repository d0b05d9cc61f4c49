// Package sqlite is a single-file store with the same email_events schema
// and conflict semantics as the Postgres store. It backs local runs and tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"example.com/mailevents/internal/domain"
	"example.com/mailevents/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS email_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	campaign_id INT,
	event_type INT,
	recipient VARCHAR(255),
	message_id VARCHAR(200),
	event_id VARCHAR(200) UNIQUE NOT NULL,
	timestamp TIMESTAMP,
	details VARCHAR(200)
);
CREATE INDEX IF NOT EXISTS email_events_timestamp_idx ON email_events (timestamp);
`

// timeLayout is fixed width so text comparison orders chronologically.
const timeLayout = "2006-01-02 15:04:05.000000"

type DB struct {
	SQL *sql.DB
}

// Open opens (or creates) the database at path. Use ":memory:" for tests.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection: SQLite has a single writer, and :memory: databases are per connection.
	db.SetMaxOpenConns(1)
	return &DB{SQL: db}, nil
}

func (db *DB) Close() {
	_ = db.SQL.Close()
}

func (db *DB) Ready(ctx context.Context) error {
	return db.SQL.PingContext(ctx)
}

func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.SQL.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("exec schema: %w", err)
	}
	return nil
}

// Totals counts stored events in [from, to), overall and per event type.
func (db *DB) Totals(ctx context.Context, from, to time.Time) (storage.Totals, error) {
	var res storage.Totals
	f, t := formatTime(from), formatTime(to)

	row := db.SQL.QueryRowContext(ctx, storage.TotalsSQL(storage.QuestionPlaceholder), f, t)
	if err := row.Scan(&res.Count, &res.UniqueRecipients); err != nil {
		return res, fmt.Errorf("scan totals: %w", err)
	}

	rows, err := db.SQL.QueryContext(ctx, storage.TypeCountsSQL(storage.QuestionPlaceholder), f, t)
	if err != nil {
		return res, fmt.Errorf("query type counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var code int
		var tc storage.TypeCount
		if err := rows.Scan(&code, &tc.Count); err != nil {
			return res, fmt.Errorf("scan type count: %w", err)
		}
		tc.EventType = domain.EventType(code)
		res.ByType = append(res.ByType, tc)
	}
	return res, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

var _ storage.Store = (*DB)(nil)
