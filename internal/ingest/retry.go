package ingest

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy bounds retries of a batch insert after transient store
// errors. Delays grow exponentially from Initial and are capped at Max.
type RetryPolicy struct {
	MaxRetries int
	Initial    time.Duration
	Max        time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, Initial: 500 * time.Millisecond, Max: 10 * time.Second}
}

// Delay returns the wait before the given retry (1-based).
func (p RetryPolicy) Delay(retry int) time.Duration {
	if retry <= 0 || p.Initial <= 0 {
		return 0
	}
	d := p.Initial
	for i := 1; i < retry; i++ {
		d *= 2
		if p.Max > 0 && d >= p.Max {
			return p.Max
		}
	}
	if p.Max > 0 && d > p.Max {
		return p.Max
	}
	return d
}

func (p RetryPolicy) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if p.MaxRetries > 0 && p.Initial <= 0 {
		return fmt.Errorf("initial delay must be >0 when retries are enabled")
	}
	if p.Max > 0 && p.Max < p.Initial {
		return fmt.Errorf("max delay %s is below initial delay %s", p.Max, p.Initial)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
