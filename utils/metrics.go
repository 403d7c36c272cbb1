package utils

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ledgerOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casino_ledger_operations_total",
			Help: "Ledger operations by kind and result",
		},
		[]string{"kind", "result"},
	)

	ledgerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "casino_ledger_operation_duration_ms",
			Help:    "Ledger operation duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"kind"},
	)

	sessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casino_sessions_total",
			Help: "Finished game sessions by game and final status",
		},
		[]string{"game", "status"},
	)

	activeSessions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "casino_active_sessions",
			Help: "Sessions currently held in the registry",
		},
		[]string{"game"},
	)

	timerFires = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casino_scheduler_fires_total",
			Help: "Scheduler callbacks delivered by timer name",
		},
		[]string{"timer"},
	)
)

// RecordLedgerOp records one ledger call. result is "success", "replay" or "fail".
func RecordLedgerOp(kind, result string, started time.Time) {
	ledgerOps.WithLabelValues(kind, result).Inc()
	ledgerDuration.WithLabelValues(kind).Observe(float64(time.Since(started).Milliseconds()))
}

// RecordSessionEnd counts a session reaching a terminal status.
func RecordSessionEnd(game, status string) {
	sessionsTotal.WithLabelValues(game, status).Inc()
}

// SetActiveSessions publishes the live session count for a game.
func SetActiveSessions(game string, n int) {
	activeSessions.WithLabelValues(game).Set(float64(n))
}

// RecordTimerFire counts a scheduler callback.
func RecordTimerFire(name string) {
	timerFires.WithLabelValues(name).Inc()
}
