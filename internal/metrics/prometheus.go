package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mailevents"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	batches       *prom.CounterVec
	batchDuration prom.Histogram
	submitted     prom.Counter
	inserted      prom.Counter
	rejected      *prom.CounterVec
	retries       prom.Counter
}

// NewPrometheusRecorder constructs the collectors and registers them on reg.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	pr := &PrometheusRecorder{
		batches: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Batches processed by outcome",
		}, []string{"result"}),
		batchDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Time to normalize and store one batch",
			Buckets:   prom.DefBuckets,
		}),
		submitted: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "events_submitted_total",
			Help:      "Canonical events submitted to the store",
		}),
		inserted: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "events_inserted_total",
			Help:      "Rows newly inserted (duplicates excluded)",
		}),
		rejected: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "records_rejected_total",
			Help:      "Raw records skipped by reason",
		}, []string{"reason"}),
		retries: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "store_retries_total",
			Help:      "Batch inserts retried after a transient store error",
		}),
	}
	reg.MustRegister(pr.batches, pr.batchDuration, pr.submitted, pr.inserted, pr.rejected, pr.retries)
	return pr
}

func (p *PrometheusRecorder) ObserveBatch(d time.Duration, success bool) {
	res := "failed"
	if success {
		res = "success"
	}
	p.batches.WithLabelValues(res).Inc()
	p.batchDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) AddSubmitted(n int)        { p.submitted.Add(float64(n)) }
func (p *PrometheusRecorder) AddInserted(n int64)       { p.inserted.Add(float64(n)) }
func (p *PrometheusRecorder) IncRejected(reason string) { p.rejected.WithLabelValues(reason).Inc() }
func (p *PrometheusRecorder) IncStoreRetry()            { p.retries.Inc() }

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
