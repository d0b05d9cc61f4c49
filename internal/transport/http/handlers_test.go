package transporthttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ready(ctx context.Context) error { return f(ctx) }

func serve(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	d := &ServerDeps{Store: pingFunc(func(context.Context) error { return errors.New("down") })}
	rec := serve(t, d.Router(), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz(t *testing.T) {
	var storeErr error
	d := &ServerDeps{Store: pingFunc(func(context.Context) error { return storeErr })}
	h := d.Router()

	rec := serve(t, h, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)

	storeErr = errors.New("connection refused")
	rec = serve(t, h, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var p Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "not ready", p.Title)
	assert.Equal(t, http.StatusServiceUnavailable, p.Status)
}

func TestStatusAndMetrics(t *testing.T) {
	d := &ServerDeps{
		Store:   pingFunc(func(context.Context) error { return nil }),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("m 1\n")) }),
		Status:  func() any { return map[string]int{"submitted": 3} },
	}
	h := d.Router()

	rec := serve(t, h, http.MethodGet, "/status")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"submitted":3}`, rec.Body.String())

	rec = serve(t, h, http.MethodPost, "/status")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = serve(t, h, http.MethodGet, "/metrics")
	assert.Equal(t, "m 1\n", rec.Body.String())
}
