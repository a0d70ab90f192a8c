package http

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type requestMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newRequestMetrics(reg prometheus.Registerer) *requestMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jenkins_client_requests_total",
		Help: "Requests sent to the Jenkins server, by method and status code.",
	}, []string{"method", "code"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jenkins_client_request_duration_seconds",
		Help:    "Latency of requests sent to the Jenkins server.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	return &requestMetrics{
		requests: register(reg, requests),
		duration: register(reg, duration),
	}
}

// register returns the already registered collector when another client
// registered the same metric on reg first.
func register[T prometheus.Collector](reg prometheus.Registerer, collector T) T {
	err := reg.Register(collector)
	if err == nil {
		return collector
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(T); ok {
			return existing
		}
	}

	return collector
}

func (m *requestMetrics) observe(method, code string, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(method, code).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}
