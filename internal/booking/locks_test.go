package booking_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierbridge/internal/booking"
	"github.com/tournevent/courierbridge/internal/models"
)

func TestLocalLocker(t *testing.T) {
	l := booking.NewLocalLocker()
	ctx := context.Background()

	unlock, ok, err := l.TryLock(ctx, "DN-1")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, "DN-1")
	require.NoError(t, err)
	assert.False(t, ok)

	other, ok, err := l.TryLock(ctx, "DN-2")
	require.NoError(t, err)
	assert.True(t, ok)
	other()

	unlock()
	unlock()

	again, ok, err := l.TryLock(ctx, "DN-1")
	require.NoError(t, err)
	assert.True(t, ok)
	again()
}

func TestSkipReason(t *testing.T) {
	assert.Equal(t, booking.ReasonNotSubmitted, booking.SkipReason(&models.Order{}))
	assert.Equal(t, booking.ReasonAlreadyBooked, booking.SkipReason(&models.Order{Submitted: true, BookingStatus: "Booked"}))
	assert.Empty(t, booking.SkipReason(&models.Order{Submitted: true, BookingStatus: "Failed"}))
}
