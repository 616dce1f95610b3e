package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CarrierErrors   *prometheus.CounterVec
	BookingsTotal   *prometheus.CounterVec
	TrackingChanges *prometheus.CounterVec
	RetentionPurged *prometheus.CounterVec
}

// NewMetrics creates and registers Prometheus metrics on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the metrics on reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courierbridge_provider_requests_total",
				Help: "Total number of provider requests by operation, carrier, and status",
			},
			[]string{"operation", "carrier", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "courierbridge_provider_request_duration_seconds",
				Help:    "Provider request duration in seconds by operation and carrier",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "carrier"},
		),
		CarrierErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courierbridge_carrier_errors_total",
				Help: "Total carrier API errors by carrier and error kind",
			},
			[]string{"carrier", "error_type"},
		),
		BookingsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courierbridge_bookings_total",
				Help: "Booking attempts by outcome",
			},
			[]string{"outcome"},
		),
		TrackingChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courierbridge_tracking_changes_total",
				Help: "Tracking status changes applied, by delivered flag",
			},
			[]string{"delivered"},
		),
		RetentionPurged: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "courierbridge_retention_purged_total",
				Help: "Rows deleted by retention cleanup, by table",
			},
			[]string{"table"},
		),
	}
}

// RecordRequest records a provider request metric.
func (m *Metrics) RecordRequest(operation, carrier, status string, duration float64) {
	m.RequestsTotal.WithLabelValues(operation, carrier, status).Inc()
	m.RequestDuration.WithLabelValues(operation, carrier).Observe(duration)
}

// RecordError records a carrier error metric.
func (m *Metrics) RecordError(carrier, errorType string) {
	m.CarrierErrors.WithLabelValues(carrier, errorType).Inc()
}

// RecordBooking records a booking outcome ("booked", "failed", "rejected").
func (m *Metrics) RecordBooking(outcome string) {
	m.BookingsTotal.WithLabelValues(outcome).Inc()
}

// RecordTrackingChange records an applied status change.
func (m *Metrics) RecordTrackingChange(delivered bool) {
	label := "false"
	if delivered {
		label = "true"
	}
	m.TrackingChanges.WithLabelValues(label).Inc()
}

// RecordPurged records rows removed by retention cleanup.
func (m *Metrics) RecordPurged(table string, n int64) {
	m.RetentionPurged.WithLabelValues(table).Add(float64(n))
}
