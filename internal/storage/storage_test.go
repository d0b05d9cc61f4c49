package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/mailevents/internal/domain"
)

func TestInsertSQL(t *testing.T) {
	sql := InsertSQL(2, DollarPlaceholder)
	assert.Equal(t,
		"INSERT INTO email_events (campaign_id, event_type, recipient, message_id, event_id, details, timestamp) VALUES "+
			"($1,$2,$3,$4,$5,$6,$7),($8,$9,$10,$11,$12,$13,$14) ON CONFLICT (event_id) DO NOTHING",
		sql)

	assert.Contains(t, InsertSQL(1, QuestionPlaceholder), "VALUES (?,?,?,?,?,?,?) ON CONFLICT")
}

func TestArgs(t *testing.T) {
	d := "event=bounce type= reason= response="
	ts := time.Unix(1700000000, 0).In(time.FixedZone("X", 3600))
	args := Args([]domain.Event{
		{CampaignID: 1, EventType: domain.Bounce, Recipient: "a@b.com", MessageID: "m", EventID: "e1", Details: &d, Timestamp: ts},
		{CampaignID: 2, EventType: domain.Opened, Recipient: "c@d.com", MessageID: "n", EventID: "e2", Timestamp: ts},
	})
	require.Len(t, args, 14)
	assert.Equal(t, []any{int64(1), 5, "a@b.com", "m", "e1", d, ts.UTC()}, args[:7])
	assert.Nil(t, args[12])
	assert.Equal(t, time.UTC, args[13].(time.Time).Location())
}

func TestChunk(t *testing.T) {
	events := make([]domain.Event, 10)
	for i := range events {
		events[i].EventID = fmt.Sprint(i)
	}
	chunks := Chunk(events, 3*len(Columns))
	require.Len(t, chunks, 4)
	assert.Len(t, chunks[0], 3)
	assert.Len(t, chunks[3], 1)
	assert.Equal(t, "9", chunks[3][0].EventID)

	assert.Len(t, Chunk(events, 1000), 1)
	assert.Empty(t, Chunk(nil, 1000))
}

func TestIsTransient(t *testing.T) {
	base := errors.New("conn reset")
	assert.True(t, IsTransient(fmt.Errorf("batch x: %w", &TransientError{Err: base})))
	assert.False(t, IsTransient(base))
	assert.ErrorIs(t, &TransientError{Err: base}, base)
}
