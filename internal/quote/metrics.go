package quote

import "github.com/prometheus/client_golang/prometheus"

var (
	quoteRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quote_requests_total",
		Help: "GetPrice calls by how they were answered.",
	}, []string{"result"})

	quoteFetchAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quote_fetch_attempts_total",
		Help: "Upstream price fetch attempts by outcome.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(quoteRequestsTotal, quoteFetchAttemptsTotal)
}
