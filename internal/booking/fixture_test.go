package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierbridge/internal/booking"
	"github.com/tournevent/courierbridge/internal/clock"
	"github.com/tournevent/courierbridge/internal/models"
	"github.com/tournevent/courierbridge/internal/storage/sqlitestore"
	"github.com/tournevent/courierbridge/pkg/shipper/mock"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

var testSettings = booking.Settings{
	DefaultOriginCity:  "Lahore",
	DefaultPaymentMode: "COD",
	DefaultPieces:      1,
	ShipperName:        "Acme Traders",
	ShipperPhone:       "042-111-222",
	ShipperAddress:     "Warehouse 5, Lahore",
}

type fixture struct {
	store   *sqlitestore.Storage
	courier *mock.Client
	clock   *clock.FakeClock
	coord   *booking.Coordinator
	locker  *booking.LocalLocker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	st, err := sqlitestore.New(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(st.Close)

	require.NoError(t, st.SaveCustomer(ctx, &models.Customer{ID: "CUST-1", Name: "Ali Raza", MobileNo: " 0300-1234567 "}))
	require.NoError(t, st.SaveAddress(ctx, &models.Address{
		ID: "ADDR-1", CustomerID: "CUST-1", Title: "Ali Home",
		Line1: "House 12", Line2: "Block B", City: "Karachi", Country: "Pakistan",
	}))
	require.NoError(t, st.SaveOrder(ctx, &models.Order{
		Name: "DN-1", Submitted: true, CustomerID: "CUST-1", Company: "Acme",
		ShippingAddressID: "ADDR-1", TotalNetWeight: 500, GrandTotal: 1500,
		Items: []models.OrderItem{{ItemName: "Kurta", Qty: 2, WeightPerUnit: 250}},
	}))
	_, err = st.UpsertServiceAreas(ctx, []models.ServiceArea{
		{ID: "789", Name: "Lahore", AllowAsOrigin: true, AllowAsDestination: true, IsActive: true},
		{ID: "475", Name: "Karachi", AllowAsDestination: true, IsActive: true},
		{ID: "348", Name: "Islamabad", AllowAsOrigin: true, IsActive: true},
	})
	require.NoError(t, err)

	f := &fixture{
		store:   st,
		courier: mock.New("leopards"),
		clock:   clock.Fake(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)),
		locker:  booking.NewLocalLocker(),
	}
	f.coord = booking.NewCoordinator(booking.CoordinatorConfig{
		Courier:  f.courier,
		Store:    st,
		Areas:    st,
		Settings: testSettings,
		Locker:   f.locker,
		Clock:    f.clock,
		Logger:   otelzap.New(zap.NewNop()),
	})
	return f
}

func (f *fixture) saveOrder(t *testing.T, o *models.Order) {
	t.Helper()
	require.NoError(t, f.store.SaveOrder(context.Background(), o))
}

func (f *fixture) shipment(t *testing.T, order string) *models.Shipment {
	t.Helper()
	sh, err := f.store.GetShipmentByOrder(context.Background(), order)
	require.NoError(t, err)
	return sh
}
