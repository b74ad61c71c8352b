package services

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultSuccess = "success"
	resultFailed  = "failed"
	resultSkipped = "skipped"
)

type bulkMetrics struct {
	items    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var getMetrics = sync.OnceValue(func() *bulkMetrics {
	return &bulkMetrics{
		items: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orgchart",
			Name:      "bulk_items_total",
			Help:      "Total number of bulk items processed, by outcome.",
		}, []string{"operation", "result"}),
		duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "orgchart",
			Name:      "bulk_duration_seconds",
			Help:      "Duration of bulk calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
})

func recordItem(op, result string) {
	getMetrics().items.WithLabelValues(op, result).Inc()
}

func observeDuration(op string, started time.Time) {
	getMetrics().duration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}
