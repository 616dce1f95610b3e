package tracking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierbridge/internal/clock"
	"github.com/tournevent/courierbridge/internal/models"
	"github.com/tournevent/courierbridge/internal/tracking"
)

func TestCleaner(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -45)

	oldDelivered := seedSnapshot(t, st, "DN-A", "LE-A", "Booked")
	seedSnapshot(t, st, "DN-B", "LE-B", "Booked")
	recent := seedSnapshot(t, st, "DN-C", "LE-C", "Booked")

	apply := func(sn *models.TrackingSnapshot, status string, delivered bool, at time.Time) {
		_, err := st.ApplyStatusChange(ctx, models.SnapshotUpdate{
			SnapshotID: sn.ID, OrderName: sn.OrderName, TrackingNumber: sn.TrackingNumber,
			Status: status, Delivered: delivered, At: at,
			Event: &models.TrackingEvent{StatusText: status, EventTime: at, Source: models.EventSource},
		})
		require.NoError(t, err)
	}
	apply(oldDelivered, "Delivered", true, old)
	apply(recent, "In Transit", false, now.AddDate(0, 0, -2))
	apply(recent, "Delivered", true, now.AddDate(0, 0, -1))

	rec := &fakeRecorder{}
	c := tracking.NewCleaner(st, clock.Fake(now), nil).WithRecorder(rec)

	n, err := c.CleanSnapshots(ctx, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	has, err := st.HasSnapshot(ctx, "DN-A")
	require.NoError(t, err)
	assert.False(t, has)
	for _, order := range []string{"DN-B", "DN-C"} {
		has, err := st.HasSnapshot(ctx, order)
		require.NoError(t, err)
		assert.True(t, has, order)
	}

	// Events outlive their snapshot until their own cutoff.
	events, err := st.ListEvents(ctx, "DN-A")
	require.NoError(t, err)
	assert.Len(t, events, 1)

	n, err = c.CleanEvents(ctx, 30)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	events, err = st.ListEvents(ctx, "DN-C")
	require.NoError(t, err)
	assert.Len(t, events, 2)

	n, err = c.CleanEvents(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	o, err := st.GetOrder(ctx, "DN-A")
	require.NoError(t, err)
	assert.Equal(t, "Delivered", o.LastTrackingStatus)

	assert.EqualValues(t, 1, rec.purged["tracking_snapshots"])
	assert.EqualValues(t, 2, rec.purged["tracking_events"])
}
