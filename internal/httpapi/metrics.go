package httpapi

import "github.com/prometheus/client_golang/prometheus"

var (
	sessionsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "accessx_sessions_created_total",
		Help: "Sessions issued.",
	})
	redemptionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "accessx_redemptions_total",
		Help: "Redemption attempts by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(sessionsCreatedTotal, redemptionsTotal)
}
