package tracking_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierbridge/internal/clock"
	"github.com/tournevent/courierbridge/internal/models"
	"github.com/tournevent/courierbridge/internal/tracking"
	"github.com/tournevent/courierbridge/pkg/shipper"
	"github.com/tournevent/courierbridge/pkg/shipper/mock"
)

func TestBackfiller_Backfill(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	seedSnapshot(t, st, "DN-A", "LE-A", "In Transit")
	for _, o := range []*models.Order{
		{Name: "DN-B", Submitted: true, BookingStatus: "Booked", ConsignmentNumber: "LE-B"},
		{Name: "DN-C", Submitted: true, BookingStatus: "Booked", ConsignmentNumber: "LE-C"},
		{Name: "DN-D", Submitted: true, BookingStatus: "Booked"},
		{Name: "DN-E", Submitted: true, BookingStatus: "Failed", ConsignmentNumber: ""},
	} {
		require.NoError(t, st.SaveOrder(ctx, o))
	}

	courier := mock.New("leopards")
	courier.OnTrackPacket = func(ctx context.Context, tn string) (string, error) {
		if tn == "LE-C" {
			return "", errors.New("unreachable")
		}
		return "Delivered", nil
	}

	res, err := tracking.NewBackfiller(courier, st, clock.Fake(t0), nil).Backfill(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, &tracking.BackfillResult{Created: 2, SkippedExisting: 1, TotalSeen: 3}, res)

	undelivered, err := st.ListUndeliveredSnapshots(ctx, 10)
	require.NoError(t, err)
	byOrder := map[string]models.TrackingSnapshot{}
	for _, sn := range undelivered {
		byOrder[sn.OrderName] = sn
	}
	assert.Contains(t, byOrder, "DN-A")
	require.Contains(t, byOrder, "DN-C")
	assert.Equal(t, shipper.PendingStatus, byOrder["DN-C"].CurrentStatus)
	assert.NotContains(t, byOrder, "DN-B")

	has, err := st.HasSnapshot(ctx, "DN-B")
	require.NoError(t, err)
	assert.True(t, has)

	res, err = tracking.NewBackfiller(courier, st, clock.Fake(t0), nil).Backfill(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, &tracking.BackfillResult{Created: 0, SkippedExisting: 3, TotalSeen: 3}, res)
}
