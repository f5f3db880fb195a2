package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, route pattern, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// ShipmentsLoaded counts documents accepted into a session slot
	ShipmentsLoaded = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "shipments_loaded_total", Help: "Shipment documents loaded by input format and slot."},
		[]string{"format", "slot"},
	)
	// ShipmentsRejected counts documents refused as malformed
	ShipmentsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "shipment_load_rejected_total", Help: "Shipment documents rejected by error kind."},
		[]string{"kind"},
	)
	// AlertsEmitted counts alerts produced by analyses
	AlertsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "alerts_emitted_total", Help: "Alerts emitted by level and category."},
		[]string{"level", "category"},
	)
	// LocationLookups counts coordinate lookups by result (hit, miss, error)
	LocationLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "location_lookups_total", Help: "Location lookups by result."},
		[]string{"result"},
	)

	// WebhookDeliveries counts webhook delivery outcomes by event type and status
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)
)

// RegisterDefault registers every collector on Registry. Safe to call more
// than once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(ShipmentsLoaded)
		Registry.MustRegister(ShipmentsRejected)
		Registry.MustRegister(AlertsEmitted)
		Registry.MustRegister(LocationLookups)
		Registry.MustRegister(WebhookDeliveries)
		Registry.MustRegister(WebhookLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
