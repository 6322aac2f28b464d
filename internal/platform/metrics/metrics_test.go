package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/politicians/{id}/trust-score", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, p := range []string{"/api/politicians/a/trust-score", "/api/politicians/b/trust-score"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	families, err := reg.Gather()
	require.NoError(t, err)

	var series int
	for _, f := range families {
		if f.GetName() != "civic_http_request_duration_seconds" {
			continue
		}
		series = len(f.GetMetric())
		require.Equal(t, 1, series)
		h := f.GetMetric()[0].GetHistogram()
		assert.Equal(t, uint64(2), h.GetSampleCount())
		for _, l := range f.GetMetric()[0].GetLabel() {
			if l.GetName() == "route" {
				assert.Equal(t, "/api/politicians/{id}/trust-score", l.GetValue())
			}
		}
	}
	assert.Equal(t, 1, series)
}
