package dialogue

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	turnText     = "text"
	turnCallback = "callback"

	outcomeOK          = "ok"
	outcomeRateLimited = "rate_limited"
	outcomeReset       = "reset"
	outcomeError       = "error"
	outcomeInvalid     = "invalid"
)

var (
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialogue_turns_total",
			Help: "Dialogue turns by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	turnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dialogue_turn_duration_seconds",
			Help:    "Time spent handling one dialogue turn",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	ordersPreparedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialogue_orders_prepared_total",
			Help: "Orders priced and waiting for confirmation",
		},
		[]string{"action", "token"},
	)

	ordersConfirmedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialogue_orders_confirmed_total",
			Help: "Orders confirmed by the user",
		},
		[]string{"action", "token"},
	)

	operatorNotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialogue_operator_notifications_total",
			Help: "High-value notifications by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(turnsTotal, turnDuration, ordersPreparedTotal, ordersConfirmedTotal, operatorNotificationsTotal)
}
