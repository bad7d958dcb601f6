// Package metrics provides Prometheus collectors for quoting, swaps and fee accounts.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "zionix"

// Quote outcomes
const (
	QuoteOK      = "ok"
	QuoteNoRoute = "no_route"
	QuoteError   = "error"
	QuoteStale   = "stale"
	QuoteCleared = "cleared"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	QuoteRequests *prometheus.CounterVec
	SwapOutcomes  *prometheus.CounterVec
	FeeAccounts   *prometheus.CounterVec
	CallLatency   *prometheus.HistogramVec
}

// New creates metrics registered on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		QuoteRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "requests_total",
			Help:      "Quote requests by outcome",
		}, []string{"outcome"}),
		SwapOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "attempts_total",
			Help:      "Swap attempts by terminal state",
		}, []string{"state"}),
		FeeAccounts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fee_account",
			Name:      "ensured_total",
			Help:      "Fee account resolutions by result",
		}, []string{"result"}),
		CallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "external",
			Name:      "call_duration_seconds",
			Help:      "Latency of calls to external services",
			Buckets:   prometheus.DefBuckets,
		}, []string{"target"}),
	}
}

// QuoteOutcome counts one quote request
func (m *Metrics) QuoteOutcome(outcome string) {
	if m == nil {
		return
	}
	m.QuoteRequests.WithLabelValues(outcome).Inc()
}

// SwapFinished counts one swap attempt reaching a terminal state
func (m *Metrics) SwapFinished(state string) {
	if m == nil {
		return
	}
	m.SwapOutcomes.WithLabelValues(state).Inc()
}

// FeeAccount counts one fee account resolution
func (m *Metrics) FeeAccount(result string) {
	if m == nil {
		return
	}
	m.FeeAccounts.WithLabelValues(result).Inc()
}

// ObserveCall records the latency of an external call started at start
func (m *Metrics) ObserveCall(target string, start time.Time) {
	if m == nil {
		return
	}
	m.CallLatency.WithLabelValues(target).Observe(time.Since(start).Seconds())
}

// Handler exposes the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
