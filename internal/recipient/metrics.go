package recipient

import "github.com/prometheus/client_golang/prometheus"

var resolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "recipient_resolutions_total",
	Help: "Settlement address resolutions by source.",
}, []string{"source"})

func init() {
	prometheus.MustRegister(resolutionsTotal)
}
