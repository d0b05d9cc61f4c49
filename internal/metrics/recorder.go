// Package metrics records pipeline outcomes. The batch commands use
// NoopRecorder; the long-running follow mode exports to Prometheus.
package metrics

import "time"

// Recorder receives pipeline observations. Implementations must be safe
// for concurrent use.
type Recorder interface {
	ObserveBatch(d time.Duration, success bool)
	AddSubmitted(n int)
	AddInserted(n int64)
	IncRejected(reason string)
	IncStoreRetry()
}

type NoopRecorder struct{}

func (NoopRecorder) ObserveBatch(time.Duration, bool) {}
func (NoopRecorder) AddSubmitted(int)                 {}
func (NoopRecorder) AddInserted(int64)                {}
func (NoopRecorder) IncRejected(string)               {}
func (NoopRecorder) IncStoreRetry()                   {}
