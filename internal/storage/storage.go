// Package storage defines the idempotent batch sink the ingest pipeline
// writes to and the SQL shared by its Postgres and SQLite implementations.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"example.com/mailevents/internal/domain"
)

// Table is the logical table all events land in.
const Table = "email_events"

// Columns is the fixed insert order for canonical events.
var Columns = []string{"campaign_id", "event_type", "recipient", "message_id", "event_id", "details", "timestamp"}

// Result describes a completed InsertBatch call.
type Result struct {
	// Submitted is the number of events handed to the store.
	Submitted int
	// Inserted is the number of new rows the driver reported. Duplicates
	// absorbed by the event_id constraint are not counted.
	Inserted int64
}

// Sink persists canonical events. Inserting an event whose event_id is
// already stored is a no-op. A failed call persists nothing.
type Sink interface {
	InsertBatch(ctx context.Context, events []domain.Event) (Result, error)
}

// TransientError marks a store failure that may succeed if retried.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient store error: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err (or anything it wraps) is a *TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// InsertSQL builds a multi-row insert for rows events that ignores
// event_id collisions. placeholder renders the 1-based n-th bind marker.
func InsertSQL(rows int, placeholder func(n int) string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO " + Table + " (" + strings.Join(Columns, ", ") + ") VALUES ")
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		for c := range Columns {
			if c > 0 {
				b.WriteByte(',')
			}
			b.WriteString(placeholder(n))
			n++
		}
		b.WriteByte(')')
	}
	b.WriteString(" ON CONFLICT (event_id) DO NOTHING")
	return b.String()
}

// Args flattens events into bind arguments in Columns order.
func Args(events []domain.Event) []any {
	args := make([]any, 0, len(events)*len(Columns))
	for _, ev := range events {
		var details any
		if ev.Details != nil {
			details = *ev.Details
		}
		args = append(args,
			ev.CampaignID,
			int(ev.EventType),
			ev.Recipient,
			ev.MessageID,
			ev.EventID,
			details,
			ev.Timestamp.UTC(),
		)
	}
	return args
}

// Chunk splits events so no statement exceeds maxParams bind arguments.
func Chunk(events []domain.Event, maxParams int) [][]domain.Event {
	size := maxParams / len(Columns)
	if size < 1 {
		size = 1
	}
	var out [][]domain.Event
	for len(events) > size {
		out = append(out, events[:size:size])
		events = events[size:]
	}
	if len(events) > 0 {
		out = append(out, events)
	}
	return out
}

// DollarPlaceholder renders Postgres-style $n markers.
func DollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

// QuestionPlaceholder renders SQLite-style ? markers.
func QuestionPlaceholder(int) string { return "?" }

// TypeCount is the number of stored events of one category.
type TypeCount struct {
	EventType domain.EventType `json:"event_type"`
	Count     int64            `json:"count"`
}

// Totals summarizes stored events over a time window.
type Totals struct {
	Count            int64       `json:"count"`
	UniqueRecipients int64       `json:"unique_recipients"`
	ByType           []TypeCount `json:"by_type"`
}

// TotalsSQL and TypeCountsSQL select over [from, to) on the event timestamp.
func TotalsSQL(placeholder func(n int) string) string {
	return `SELECT COUNT(*), COUNT(DISTINCT recipient) FROM ` + Table +
		` WHERE "timestamp" >= ` + placeholder(1) + ` AND "timestamp" < ` + placeholder(2)
}

func TypeCountsSQL(placeholder func(n int) string) string {
	return `SELECT event_type, COUNT(*) FROM ` + Table +
		` WHERE "timestamp" >= ` + placeholder(1) + ` AND "timestamp" < ` + placeholder(2) +
		` GROUP BY event_type ORDER BY event_type`
}

// Store is the lifecycle and read side of a backend; writes go through its Sink.
type Store interface {
	Ready(ctx context.Context) error
	Migrate(ctx context.Context) error
	Totals(ctx context.Context, from, to time.Time) (Totals, error)
	Close()
}
