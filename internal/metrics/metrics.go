package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal *prometheus.CounterVec
	pollEventsTotal   *prometheus.CounterVec
	registerOnce      sync.Once
)

// Register initializes Prometheus metrics on the default registry.
func Register() {
	registerOnce.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "polls",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed by the polls API.",
		}, []string{"method", "path", "status"})

		pollEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "polls",
			Name:      "poll_events_total",
			Help:      "Polls created, votes cast and option edits applied.",
		}, []string{"kind"})
	})
}

// IncRequest increments the http_requests_total counter with the given labels.
func IncRequest(method, path string, status int) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// IncPollEvent increments poll_events_total for kind.
func IncPollEvent(kind string) {
	if pollEventsTotal == nil {
		return
	}
	pollEventsTotal.WithLabelValues(kind).Inc()
}
