// Package metrics exposes Prometheus counters for ledger operations.
//
// A dedicated registry keeps the scrape surface to exactly what this service
// emits; Handler() serves it for mounting at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var (
	// PaymentsRecorded counts successfully recorded payments by method.
	PaymentsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "payments_recorded_total",
			Help:      "Total number of payments successfully recorded.",
		},
		[]string{"method"},
	)

	// PaymentsRejected counts rejected payment attempts by reason.
	PaymentsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "payments_rejected_total",
			Help:      "Total number of payment attempts rejected by validation.",
		},
		[]string{"reason"},
	)

	// SettlementsRecorded counts recorded settlements.
	SettlementsRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "settlements_recorded_total",
			Help:      "Total number of settlements recorded.",
		},
	)

	// SettlementsSettled counts settlements marked as settled by disposition.
	SettlementsSettled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "settlements_settled_total",
			Help:      "Total number of settlements marked as settled.",
		},
		[]string{"disposition"},
	)

	// SweepRuns counts overdue sweep executions.
	SweepRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "sweep_runs_total",
			Help:      "Total number of overdue sweep runs.",
		},
	)

	// ObligationsPromoted counts obligations promoted to overdue by sweeps.
	ObligationsPromoted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "obligations_promoted_total",
			Help:      "Total number of obligations promoted to overdue.",
		},
	)
)

func init() {
	registry.MustRegister(
		PaymentsRecorded,
		PaymentsRejected,
		SettlementsRecorded,
		SettlementsSettled,
		SweepRuns,
		ObligationsPromoted,
	)
}

// Handler serves the ledger metrics registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
