package state

import "github.com/prometheus/client_golang/prometheus"

var sessionResetsTotal = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "session_resets_total",
	Help: "Sessions reset to idle because they were corrupt or inconsistent.",
})

func init() {
	prometheus.MustRegister(sessionResetsTotal)
}
