package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultSuccess    = "success"
	ResultRejected   = "rejected"
	ResultFailed     = "failed"
	ResultInFlight   = "in_flight"
	ResultUnrecorded = "unrecorded"
)

var (
	checkouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_checkouts_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"result"})

	checkoutDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pos_checkout_duration_seconds",
		Help:    "Time spent submitting a sale to the backend.",
		Buckets: prometheus.DefBuckets,
	})

	cartLines = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pos_cart_lines",
		Help: "Lines in the active cart.",
	})
)

func Checkout(result string) {
	checkouts.WithLabelValues(result).Inc()
}

func ObserveSubmission(d time.Duration) {
	checkoutDuration.Observe(d.Seconds())
}

func CartLines(n int) {
	cartLines.Set(float64(n))
}
