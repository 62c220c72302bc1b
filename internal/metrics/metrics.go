// Package metrics collects the Prometheus counters exposed by the ingest
// loop (C3) and the HTTP surface (C5). A single explicit registry is used
// rather than the global default, matching the teacher's own
// internal/grpc/server_lifecycle.go pattern of building a dedicated
// prometheus.Registry per server instead of relying on promauto's
// package-level DefaultRegisterer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the service's metric collectors and the HTTP handler
// that serves them.
type Registry struct {
	reg *prometheus.Registry

	IngestMessagesProcessed *prometheus.CounterVec
	IngestAckErrors         prometheus.Counter
	IngestPullErrors        prometheus.Counter
	HTTPRequestsTotal       *prometheus.CounterVec
}

// New builds a Registry with every collector registered.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		IngestMessagesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "datadictd_ingest_messages_processed_total",
			Help: "Notification messages dispatched by the ingest loop, by event type.",
		}, []string{"event_type"}),
		IngestAckErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "datadictd_ingest_ack_errors_total",
			Help: "Pub/Sub acknowledgement calls that failed.",
		}),
		IngestPullErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "datadictd_ingest_pull_errors_total",
			Help: "Pub/Sub pull calls that failed.",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "datadictd_http_requests_total",
			Help: "HTTP requests served, by route and status code.",
		}, []string{"route", "status"}),
	}

	reg.MustRegister(
		r.IngestMessagesProcessed,
		r.IngestAckErrors,
		r.IngestPullErrors,
		r.HTTPRequestsTotal,
	)
	return r
}

// Handler returns the /metrics endpoint for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
