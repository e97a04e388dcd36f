package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TxDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alpha_tx_duration_seconds",
			Help:    "Time spent deciding on one reported transaction event",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"type"},
	)

	ChildTxTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alpha_child_tx_total",
			Help: "Sub-transaction events observed by the pause-aware ingestion path",
		},
		[]string{"service"},
	)

	TxTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alpha_tx_total",
			Help: "Transaction events decided, by type, abort rejection and retry",
		},
		[]string{"type", "aborted", "retried"}, // aborted|retried: true|false
	)

	RelayTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alpha_relay_total",
			Help: "Accepted events relayed to the message bus",
		},
		[]string{"result"}, // ok|failed
	)

	ArchivedEventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "alpha_archived_events_total",
			Help: "Relayed events written to the ClickHouse archive",
		},
	)

	CompensationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alpha_compensations_total",
			Help: "Compensation commands dispatched to participants",
		},
		[]string{"result"}, // sent|failed|skipped
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		TxDuration,
		ChildTxTotal,
		TxTotal,
		RelayTotal,
		ArchivedEventsTotal,
		CompensationsTotal,
	)
}
