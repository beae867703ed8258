package ratelimit

import "github.com/prometheus/client_golang/prometheus"

var (
	rateLimitChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimit_checks_total",
		Help: "Total number of rate limit checks by backend and result.",
	}, []string{"backend", "result"})

	rateLimitRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimit_rejected_total",
		Help: "Total number of rejected requests per backend.",
	}, []string{"backend"})

	rateLimitRedisErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ratelimit_redis_errors_total",
		Help: "Total number of Redis errors encountered by the limiter.",
	})

	rateLimitBackendFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimit_backend_failures_total",
		Help: "Admission checks decided by the failure policy because the backend was unavailable.",
	}, []string{"policy"})
)

func init() {
	prometheus.MustRegister(
		rateLimitChecksTotal,
		rateLimitRejectedTotal,
		rateLimitRedisErrorsTotal,
		rateLimitBackendFailuresTotal,
	)
}

func boolLabel(value bool) string {
	if value {
		return "allowed"
	}
	return "rejected"
}
