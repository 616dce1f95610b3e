package telemetry_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/tournevent/courierbridge/internal/telemetry"
)

func TestMetrics_Record(t *testing.T) {
	m := telemetry.NewMetricsWith(prometheus.NewRegistry())

	m.RecordRequest("book", "leopards", "success", 0.2)
	m.RecordRequest("book", "leopards", "success", 0.1)
	m.RecordError("leopards", "api")
	m.RecordBooking("booked")
	m.RecordTrackingChange(true)
	m.RecordPurged("tracking_events", 4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("book", "leopards", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CarrierErrors.WithLabelValues("leopards", "api")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BookingsTotal.WithLabelValues("booked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TrackingChanges.WithLabelValues("true")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.RetentionPurged.WithLabelValues("tracking_events")))
}

func TestNewLogger_Levels(t *testing.T) {
	for _, level := range []string{"debug", "INFO", "warn", "error", "bogus"} {
		logger, err := telemetry.NewLogger(level)
		assert.NoError(t, err)
		assert.NotNil(t, logger)
	}
}
