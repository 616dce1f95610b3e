package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierbridge/internal/booking"
	"github.com/tournevent/courierbridge/internal/bulk"
	"github.com/tournevent/courierbridge/internal/cities"
	"github.com/tournevent/courierbridge/internal/clock"
	"github.com/tournevent/courierbridge/internal/models"
	"github.com/tournevent/courierbridge/internal/server"
	"github.com/tournevent/courierbridge/internal/slips"
	"github.com/tournevent/courierbridge/internal/storage/sqlitestore"
	"github.com/tournevent/courierbridge/internal/tracking"
	"github.com/tournevent/courierbridge/pkg/shipper"
	"github.com/tournevent/courierbridge/pkg/shipper/mock"
)

type testEnv struct {
	store   *sqlitestore.Storage
	courier *mock.Client
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	st, err := sqlitestore.New(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(st.Close)

	require.NoError(t, st.SaveCustomer(ctx, &models.Customer{ID: "CUST-1", Name: "Ali Raza", MobileNo: "03001234567"}))
	require.NoError(t, st.SaveAddress(ctx, &models.Address{ID: "ADDR-1", CustomerID: "CUST-1", Line1: "House 12", City: "Karachi"}))
	require.NoError(t, st.SaveOrder(ctx, &models.Order{
		Name: "DN-1", Submitted: true, CustomerID: "CUST-1", ShippingAddressID: "ADDR-1", TotalNetWeight: 500, GrandTotal: 1500,
	}))
	_, err = st.UpsertServiceAreas(ctx, []models.ServiceArea{
		{ID: "789", Name: "Lahore", AllowAsOrigin: true, AllowAsDestination: true, IsActive: true},
		{ID: "475", Name: "Karachi", AllowAsDestination: true, IsActive: true},
	})
	require.NoError(t, err)

	clk := clock.Fake(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	courier := mock.New("leopards")
	coord := booking.NewCoordinator(booking.CoordinatorConfig{
		Courier: courier, Store: st, Areas: st, Clock: clk,
		Settings: booking.Settings{DefaultOriginCity: "789", DefaultPaymentMode: "COD", DefaultPieces: 1},
	})

	srv := server.New(server.Config{Port: 0}, server.Deps{
		Booker:     coord,
		Bulk:       bulk.NewService(bulk.NewLocalQueue(4), clk),
		Slips:      slips.NewService(courier, st, t.TempDir(), clk, nil),
		Cities:     cities.NewSyncer(courier, st, nil, nil),
		Poller:     tracking.NewPoller(courier, st, clk, nil),
		Backfiller: tracking.NewBackfiller(courier, st, clk, nil),
		Cleaner:    tracking.NewCleaner(st, clk, nil),
		Ready:      st.Ping,
	}, nil)

	return &testEnv{store: st, courier: courier, handler: srv.Handler()}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestServer_Health(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, body = env.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])

	rec, _ = env.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_ReadyFailing(t *testing.T) {
	srv := server.New(server.Config{}, server.Deps{
		Ready: func(ctx context.Context) error { return errors.New("database down") },
	}, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "database down")
}

func TestServer_Book(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/bookings/DN-1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Booked", body["status"])
	assert.Equal(t, "MOCK000001", body["cn_number"])
	assert.Equal(t, "https://slips.example/MOCK000001", body["slip_link"])
	assert.NotEmpty(t, body["shipment"])

	rec, body = env.do(t, http.MethodPost, "/bookings/DN-1", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "validation", body["kind"])
	assert.Contains(t, body["error"], "Already booked")

	rec, body = env.do(t, http.MethodGet, "/orders/DN-1/slip", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://slips.example/MOCK000001", body["slip_link"])

	rec, body = env.do(t, http.MethodPost, "/labels", `{"delivery_notes":["DN-1"]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"https://slips.example/MOCK000001"}, body["urls"])

	sh, err := env.store.GetShipmentByOrder(context.Background(), "DN-1")
	require.NoError(t, err)
	rec, body = env.do(t, http.MethodPost, "/shipments/"+sh.ID+"/packing-slip", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "url", body["type"])
}

func TestServer_Book_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "configuration", err: shipper.NewConfigurationError("leopards", "disabled"), want: http.StatusServiceUnavailable},
		{name: "api", err: shipper.NewAPIError("leopards", "BOOKING_FAILED", "rejected"), want: http.StatusBadGateway},
		{name: "transport", err: shipper.NewTransportError("leopards", "request failed", errors.New("refused")), want: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.courier.OnBook = func(ctx context.Context, req *shipper.BookingRequest) (*shipper.BookingResult, error) {
				return nil, tt.err
			}
			rec, body := env.do(t, http.MethodPost, "/bookings/DN-1", "")
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, string(shipper.KindOf(tt.err)), body["kind"])
		})
	}
}

func TestServer_BulkBook(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/bookings/bulk", `{"delivery_notes":["DN-1","DN-2"]}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "queued", body["status"])
	assert.EqualValues(t, 2, body["count"])

	rec, body = env.do(t, http.MethodPost, "/bookings/bulk", `{"delivery_notes":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "No Delivery Notes selected", body["error"])

	rec, _ = env.do(t, http.MethodPost, "/bookings/bulk", `{not json`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestServer_PackingSlipNotFound(t *testing.T) {
	env := newTestEnv(t)
	rec, _ := env.do(t, http.MethodPost, "/shipments/SH-404/packing-slip", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestServer_CitiesAndTracking(t *testing.T) {
	env := newTestEnv(t)
	env.courier.OnListServiceAreas = func(ctx context.Context) ([]shipper.ServiceAreaRecord, error) {
		return []shipper.ServiceAreaRecord{{"id": "348", "name": "Islamabad", "allow_as_origin": "1"}}, nil
	}

	rec, body := env.do(t, http.MethodPost, "/cities/sync", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["upserted"])

	rec, _ = env.do(t, http.MethodPost, "/bookings/DN-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = env.do(t, http.MethodPost, "/tracking/backfill?limit=10", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["created"])
	assert.EqualValues(t, 1, body["total_seen"])

	env.courier.SetStatus("MOCK000001", "Delivered")
	rec, body = env.do(t, http.MethodPost, "/tracking/sync", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["seen"])
	assert.EqualValues(t, 1, body["delivered"])

	rec, _ = env.do(t, http.MethodPost, "/tracking/sync?limit=abc", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, body = env.do(t, http.MethodPost, "/tracking/cleanup", `{"snapshot_days":30}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["snapshots_deleted"])

	rec, body = env.do(t, http.MethodGet, "/stats", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["totalRuns"])

	rec, body = env.do(t, http.MethodPost, "/trigger", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, true, body["triggered"])
}

func TestServer_NotWired(t *testing.T) {
	srv := server.New(server.Config{}, server.Deps{}, nil)
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/bookings/DN-1"},
		{http.MethodPost, "/bookings/bulk"},
		{http.MethodGet, "/stats"},
		{http.MethodPost, "/cities/sync"},
		{http.MethodPost, "/tracking/cleanup"},
	} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, tc.path)
	}
}
