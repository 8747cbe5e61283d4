// Package metrics holds the prometheus collectors shared by the server and
// the workers.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "content_graph"

type Metrics struct {
	registry *prometheus.Registry

	OperationsTotal      *prometheus.CounterVec
	OperationDuration    *prometheus.HistogramVec
	MessagesProcessed    *prometheus.CounterVec
	ProcessingDuration   *prometheus.HistogramVec
	NotificationsCreated *prometheus.CounterVec
}

// New creates the collectors on a private registry, so tests can build as
// many instances as they like.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "graphql",
				Name:      "operations_total",
				Help:      "Total number of GraphQL operations by name and status",
			},
			[]string{"operation", "status"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "graphql",
				Name:      "operation_duration_seconds",
				Help:      "GraphQL operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		MessagesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "messages_processed_total",
				Help:      "Total number of messages processed by worker and status",
			},
			[]string{"worker", "status"},
		),
		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "processing_duration_seconds",
				Help:      "Message processing duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"worker"},
		),
		NotificationsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "notifications",
				Name:      "created_total",
				Help:      "Total number of notifications stored by type",
			},
			[]string{"type"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.OperationsTotal,
		m.OperationDuration,
		m.MessagesProcessed,
		m.ProcessingDuration,
		m.NotificationsCreated,
	)
	return m
}

// ObserveOperation records a finished GraphQL operation.
func (m *Metrics) ObserveOperation(operation string, failed bool, duration time.Duration) {
	status := "success"
	if failed {
		status = "error"
	}
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveMessage records a processed worker message.
func (m *Metrics) ObserveMessage(worker string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.MessagesProcessed.WithLabelValues(worker, status).Inc()
	m.ProcessingDuration.WithLabelValues(worker).Observe(duration.Seconds())
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
