// Package ingest drives batches from a source through normalization into
// an idempotent sink.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"example.com/mailevents/internal/domain"
	"example.com/mailevents/internal/metrics"
	"example.com/mailevents/internal/source"
	"example.com/mailevents/internal/storage"
)

// Summary totals one run. Submitted counts events handed to the sink;
// Inserted is what the store reported as new rows.
type Summary struct {
	Batches    int
	Lines      int
	Rejected   int
	Submitted  int
	Inserted   int64
	Rejections map[domain.RejectReason]int
}

func (s *Summary) add(b batchSummary) {
	s.Batches++
	s.Lines += b.lines
	s.Submitted += b.result.Submitted
	s.Inserted += b.result.Inserted
	for reason, n := range b.rejections {
		if s.Rejections == nil {
			s.Rejections = make(map[domain.RejectReason]int)
		}
		s.Rejections[reason] += n
		s.Rejected += n
	}
}

type batchSummary struct {
	lines      int
	result     storage.Result
	rejections map[domain.RejectReason]int
}

type Runner struct {
	Sink     storage.Sink
	Logger   zerolog.Logger
	Recorder metrics.Recorder
	Retry    RetryPolicy
	// StoreTimeout bounds each InsertBatch call; zero means no deadline.
	StoreTimeout time.Duration
	// Workers > 1 stores independent batches concurrently.
	Workers int

	sleep func(context.Context, time.Duration) error
}

func NewRunner(sink storage.Sink, logger zerolog.Logger) *Runner {
	return &Runner{
		Sink:         sink,
		Logger:       logger.With().Str("component", "ingest").Logger(),
		Recorder:     metrics.NoopRecorder{},
		Retry:        DefaultRetryPolicy(),
		StoreTimeout: 30 * time.Second,
		Workers:      1,
		sleep:        sleepCtx,
	}
}

// Run consumes src until io.EOF. Malformed records are skipped; the first
// store or source failure ends the run. Batches stored before the failure
// stay stored and are reflected in the returned Summary.
func (r *Runner) Run(ctx context.Context, src source.Source) (Summary, error) {
	log := r.Logger.With().Str("run_id", uuid.NewString()).Logger()
	start := time.Now()

	var (
		sum Summary
		err error
	)
	if r.Workers > 1 {
		sum, err = r.runParallel(ctx, log, src)
	} else {
		sum, err = r.runSequential(ctx, log, src)
	}

	ev := log.Info()
	if err != nil {
		ev = log.Error().Err(err)
	}
	ev.Int("batches", sum.Batches).
		Int("lines", sum.Lines).
		Int("rejected", sum.Rejected).
		Int("submitted", sum.Submitted).
		Int64("inserted", sum.Inserted).
		Dur("elapsed", time.Since(start)).
		Msg("run finished")
	return sum, err
}

func (r *Runner) runSequential(ctx context.Context, log zerolog.Logger, src source.Source) (Summary, error) {
	var sum Summary
	for {
		b, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return sum, nil
		}
		if err != nil {
			return sum, fmt.Errorf("read source: %w", err)
		}
		bs, err := r.processBatch(ctx, log, b)
		if err != nil {
			return sum, fmt.Errorf("batch %s: %w", b.Name, err)
		}
		sum.add(bs)
	}
}

func (r *Runner) runParallel(ctx context.Context, log zerolog.Logger, src source.Source) (Summary, error) {
	var (
		mu  sync.Mutex
		sum Summary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Workers)

	var srcErr error
	for {
		b, err := src.Next(gctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			srcErr = err
			break
		}
		g.Go(func() error {
			bs, err := r.processBatch(gctx, log, b)
			if err != nil {
				return fmt.Errorf("batch %s: %w", b.Name, err)
			}
			mu.Lock()
			sum.add(bs)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sum, err
	}
	if srcErr != nil {
		return sum, fmt.Errorf("read source: %w", srcErr)
	}
	return sum, nil
}

func (r *Runner) processBatch(ctx context.Context, log zerolog.Logger, b source.Batch) (batchSummary, error) {
	start := time.Now()
	bs := batchSummary{lines: len(b.Lines)}
	events := make([]domain.Event, 0, len(b.Lines))

	for i, line := range b.Lines {
		ev, err := normalizeLine(line)
		if err != nil {
			reason := rejectReason(err)
			if bs.rejections == nil {
				bs.rejections = make(map[domain.RejectReason]int)
			}
			bs.rejections[reason]++
			r.recorder().IncRejected(string(reason))
			log.Debug().Str("batch", b.Name).Int("line", i+1).Err(err).Msg("record skipped")
			continue
		}
		events = append(events, ev)
	}

	res, err := r.insert(ctx, log, b.Name, events)
	r.recorder().ObserveBatch(time.Since(start), err == nil)
	if err != nil {
		return bs, err
	}
	bs.result = res
	r.recorder().AddSubmitted(res.Submitted)
	r.recorder().AddInserted(res.Inserted)

	log.Info().
		Str("batch", b.Name).
		Int("lines", len(b.Lines)).
		Int("valid", len(events)).
		Int64("inserted", res.Inserted).
		Msg("batch stored")
	return bs, nil
}

func rejectReason(err error) domain.RejectReason {
	var rej *domain.Rejection
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return domain.ReasonUnclassified
}

func normalizeLine(line []byte) (domain.Event, error) {
	raw, err := domain.DecodeRawEvent(line)
	if err != nil {
		return domain.Event{}, err
	}
	return domain.Normalize(raw)
}

// insert calls the sink, retrying transient failures. Retrying is safe even
// if a timed-out attempt committed: the event_id constraint absorbs repeats.
func (r *Runner) insert(ctx context.Context, log zerolog.Logger, name string, events []domain.Event) (storage.Result, error) {
	for retry := 0; ; retry++ {
		res, err := r.insertOnce(ctx, events)
		if err == nil {
			return res, nil
		}
		if !storage.IsTransient(err) || retry >= r.Retry.MaxRetries || ctx.Err() != nil {
			return storage.Result{}, err
		}
		delay := r.Retry.Delay(retry + 1)
		log.Warn().Err(err).Str("batch", name).Int("retry", retry+1).Dur("backoff", delay).Msg("store insert failed, retrying")
		r.recorder().IncStoreRetry()
		sleep := r.sleep
		if sleep == nil {
			sleep = sleepCtx
		}
		if err := sleep(ctx, delay); err != nil {
			return storage.Result{}, err
		}
	}
}

func (r *Runner) insertOnce(ctx context.Context, events []domain.Event) (storage.Result, error) {
	if r.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.StoreTimeout)
		defer cancel()
	}
	return r.Sink.InsertBatch(ctx, events)
}

func (r *Runner) recorder() metrics.Recorder {
	if r.Recorder == nil {
		return metrics.NoopRecorder{}
	}
	return r.Recorder
}
