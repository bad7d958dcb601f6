package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.QuoteOutcome(QuoteOK)
	m.QuoteOutcome(QuoteOK)
	m.QuoteOutcome(QuoteStale)
	m.SwapFinished("succeeded")
	m.FeeAccount("created")
	m.ObserveCall("jupiter_quote", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.QuoteRequests.WithLabelValues(QuoteOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuoteRequests.WithLabelValues(QuoteStale)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SwapOutcomes.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeeAccounts.WithLabelValues("created")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.QuoteOutcome(QuoteOK)
	m.SwapFinished("failed")
	m.FeeAccount("missing")
	m.ObserveCall("x", time.Now())
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg).SwapFinished("cancelled")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `zionix_swap_attempts_total{state="cancelled"} 1`)
}
