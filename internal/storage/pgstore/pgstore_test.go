package pgstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/tournevent/courierbridge/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container test skipped in -short mode")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "courierbridge_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := "postgres://admin:admin@" + host + ":" + port.Port() + "/courierbridge_test?sslmode=disable"

	// The port can accept connections before the server finishes init.
	var st *Storage
	require.Eventually(t, func() bool {
		st, err = New(ctx, dsn)
		return err == nil
	}, 30*time.Second, 500*time.Millisecond)
	t.Cleanup(st.Close)
	return st
}

func TestPGStore_RepoFlow(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, st.SaveCustomer(ctx, &models.Customer{ID: "CUST-1", Name: "Ali", MobileNo: "0300"}))
	require.NoError(t, st.SaveAddress(ctx, &models.Address{ID: "ADDR-1", CustomerID: "CUST-1", City: "Karachi", Line1: "Street 1"}))
	require.NoError(t, st.SaveOrder(ctx, &models.Order{
		Name: "DN-1", Submitted: true, CustomerID: "CUST-1", GrandTotal: 1500,
		Items: []models.OrderItem{{ItemName: "Shoe", Qty: 2, WeightPerUnit: 250}},
	}))

	o, err := st.GetOrder(ctx, "DN-1")
	require.NoError(t, err)
	require.True(t, o.Submitted)
	require.Len(t, o.Items, 1)

	addr, err := st.FirstCustomerAddress(ctx, "CUST-1")
	require.NoError(t, err)
	require.Equal(t, "ADDR-1", addr.ID)

	_, err = st.GetOrder(ctx, "DN-404")
	require.ErrorIs(t, err, models.ErrNotFound)

	// shipment lifecycle
	sh := &models.Shipment{ID: "sh-1", OrderName: "DN-1", Status: models.ShipmentDraft, Pieces: 1, WeightGrams: 500, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.InsertShipment(ctx, sh))
	sh.Status = models.ShipmentBooked
	sh.TrackingNumber = "LE1"
	require.NoError(t, st.SaveBooking(ctx, sh, models.BookingMirror{ConsignmentNumber: "LE1", BookingStatus: "Booked", LastTrackingStatus: "Booked"}))
	sh.TrackingNumber = "LE2"
	require.NoError(t, st.UpdateShipment(ctx, sh))

	got, err := st.GetShipmentByOrder(ctx, "DN-1")
	require.NoError(t, err)
	require.Equal(t, models.ShipmentBooked, got.Status)
	require.Equal(t, "LE1", got.TrackingNumber)

	booked, err := st.ListBookedOrders(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, []models.BookedOrder{{Name: "DN-1", ConsignmentNumber: "LE1"}}, booked)

	// service areas
	n, err := st.UpsertServiceAreas(ctx, []models.ServiceArea{
		{ID: "475", Name: "Karachi", AllowAsOrigin: true, AllowAsDestination: true, IsActive: true},
	})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	area, err := st.FindActiveServiceArea(ctx, "Karachi")
	require.NoError(t, err)
	require.Equal(t, "475", area.ID)

	// tracking
	sn := &models.TrackingSnapshot{OrderName: "DN-1", TrackingNumber: "LE1", CurrentStatus: "Booked", LastUpdated: now}
	require.NoError(t, st.InsertSnapshot(ctx, sn))
	require.NotZero(t, sn.ID)

	upd := models.SnapshotUpdate{
		SnapshotID: sn.ID, OrderName: "DN-1", TrackingNumber: "LE1", Status: "Delivered", Delivered: true, At: now,
		Event: &models.TrackingEvent{StatusText: "Delivered", EventTime: now, Source: models.EventSource},
	}
	appended, err := st.ApplyStatusChange(ctx, upd)
	require.NoError(t, err)
	require.True(t, appended)
	appended, err = st.ApplyStatusChange(ctx, upd)
	require.NoError(t, err)
	require.False(t, appended)

	o, err = st.GetOrder(ctx, "DN-1")
	require.NoError(t, err)
	require.Equal(t, "Delivered", o.LastTrackingStatus)
	require.NotNil(t, o.DeliveredOn)

	pending, err := st.ListUndeliveredSnapshots(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)

	deleted, err := st.DeleteDeliveredSnapshotsBefore(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)
	deleted, err = st.DeleteEventsBefore(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)
}
