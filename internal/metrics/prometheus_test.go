package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.ObserveBatch(time.Second, true)
	r.ObserveBatch(time.Second, false)
	r.AddSubmitted(3)
	r.AddInserted(2)
	r.IncRejected("invalid_json")
	r.IncRejected("invalid_json")
	r.IncStoreRetry()

	assert.Equal(t, 1.0, testutil.ToFloat64(r.batches.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.batches.WithLabelValues("failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.submitted))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.inserted))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.rejected.WithLabelValues("invalid_json")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.retries))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mailevents_events_submitted_total 3")
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveBatch(0, true)
	r.AddSubmitted(1)
	r.AddInserted(1)
	r.IncRejected("x")
	r.IncStoreRetry()
}
