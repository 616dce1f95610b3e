package clock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierbridge/internal/clock"
)

func TestFakeClock_SleepAdvances(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := clock.Fake(start)

	require.NoError(t, c.Sleep(context.Background(), time.Second))
	require.NoError(t, c.Sleep(context.Background(), 2*time.Second))

	require.Equal(t, start.Add(3*time.Second), c.Now())
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, c.Sleeps())
}

func TestFakeClock_SleepCanceled(t *testing.T) {
	c := clock.Fake(time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, c.Sleep(ctx, time.Second), context.Canceled)
	require.Empty(t, c.Sleeps())
}

func TestRealClock_SleepCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := clock.Real().Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), time.Second)
}
