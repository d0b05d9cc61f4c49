package postgres

import (
	"context"
	"fmt"
	"time"

	"example.com/mailevents/internal/domain"
	"example.com/mailevents/internal/storage"
)

// Totals counts stored events in [from, to), overall and per event type.
func (db *DB) Totals(ctx context.Context, from, to time.Time) (storage.Totals, error) {
	var res storage.Totals
	from, to = from.UTC(), to.UTC()

	row := db.Pool.QueryRow(ctx, storage.TotalsSQL(storage.DollarPlaceholder), from, to)
	if err := row.Scan(&res.Count, &res.UniqueRecipients); err != nil {
		return res, fmt.Errorf("scan totals: %w", err)
	}

	rows, err := db.Pool.Query(ctx, storage.TypeCountsSQL(storage.DollarPlaceholder), from, to)
	if err != nil {
		return res, fmt.Errorf("query type counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var code int32
		var tc storage.TypeCount
		if err := rows.Scan(&code, &tc.Count); err != nil {
			return res, fmt.Errorf("scan type count: %w", err)
		}
		tc.EventType = domain.EventType(code)
		res.ByType = append(res.ByType, tc)
	}
	return res, rows.Err()
}

var _ storage.Store = (*DB)(nil)
