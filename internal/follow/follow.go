// Package follow runs scheduled ingestion passes over the most recent
// complete hours of a bucket. Re-reading an hour is harmless: stored
// events are deduplicated by event_id, so late-landing objects are picked
// up by the next pass.
package follow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"example.com/mailevents/internal/ingest"
)

// PassFunc ingests every object under the hour prefixes from..to inclusive.
type PassFunc func(ctx context.Context, from, to time.Time) (ingest.Summary, error)

// Status describes the most recent pass.
type Status struct {
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Batches    int       `json:"batches"`
	Submitted  int       `json:"submitted"`
	Inserted   int64     `json:"inserted"`
	Rejected   int       `json:"rejected"`
	Error      string    `json:"error,omitempty"`
	Passes     int       `json:"passes"`
}

type Follower struct {
	scheduler gocron.Scheduler
	pass      PassFunc
	interval  time.Duration
	lookback  int
	now       func() time.Time
	logger    zerolog.Logger

	mu   sync.Mutex
	last Status
}

func New(pass PassFunc, interval time.Duration, lookbackHours int, logger zerolog.Logger) (*Follower, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Follower{
		scheduler: s,
		pass:      pass,
		interval:  interval,
		lookback:  lookbackHours,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.With().Str("component", "follow").Logger(),
	}, nil
}

// Window returns the last lookback complete UTC hours before now.
func Window(now time.Time, lookback int) (from, to time.Time) {
	if lookback < 1 {
		lookback = 1
	}
	to = now.UTC().Truncate(time.Hour).Add(-time.Hour)
	from = to.Add(-time.Duration(lookback-1) * time.Hour)
	return from, to
}

// Run schedules a pass immediately and then every interval, and blocks
// until ctx is done.
func (f *Follower) Run(ctx context.Context) error {
	_, err := f.scheduler.NewJob(
		gocron.DurationJob(f.interval),
		gocron.NewTask(func() { f.runPass(ctx) }),
		gocron.WithName("bucket-pass"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to create bucket pass job: %w", err)
	}

	f.logger.Info().Dur("interval", f.interval).Int("lookback_hours", f.lookback).Msg("scheduler started")
	f.scheduler.Start()
	<-ctx.Done()
	f.logger.Info().Msg("scheduler stopping")
	return f.scheduler.Shutdown()
}

func (f *Follower) runPass(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	from, to := Window(f.now(), f.lookback)
	st := Status{From: from, To: to, StartedAt: f.now()}

	sum, err := f.pass(ctx, from, to)
	st.FinishedAt = f.now()
	st.Batches = sum.Batches
	st.Submitted = sum.Submitted
	st.Inserted = sum.Inserted
	st.Rejected = sum.Rejected
	if err != nil {
		st.Error = err.Error()
		f.logger.Error().Err(err).Time("from", from).Time("to", to).Msg("bucket pass failed")
	}

	f.mu.Lock()
	st.Passes = f.last.Passes + 1
	f.last = st
	f.mu.Unlock()
}

// Last returns the status of the most recent pass.
func (f *Follower) Last() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}
