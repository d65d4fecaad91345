package service

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	submissions   *prometheus.CounterVec
	submitLatency *prometheus.HistogramVec
	uploadedFiles *prometheus.CounterVec
	compensations *prometheus.CounterVec
	statusChanges *prometheus.CounterVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "itportal",
			Name:      "service_requests_total",
			Help:      "Service request submissions by service type and outcome.",
		}, []string{"service_type", "outcome"}),
		submitLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "itportal",
			Name:      "service_request_duration_seconds",
			Help:      "Latency distribution for service request submission.",
			Buckets: []float64{
				0.01, 0.05, 0.1, 0.25, 0.5,
				1, 2.5, 5, 10, 30,
			},
		}, []string{"service_type", "outcome"}),
		uploadedFiles: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "itportal",
			Name:      "uploaded_files_total",
			Help:      "Attachment upload attempts by result.",
		}, []string{"result"}),
		compensations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "itportal",
			Name:      "compensations_total",
			Help:      "Compensating actions executed after a failed submission.",
		}, []string{"action", "result"}),
		statusChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "itportal",
			Name:      "status_changes_total",
			Help:      "Service request status transitions.",
		}, []string{"to"}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}
