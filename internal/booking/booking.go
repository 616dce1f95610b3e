// Package booking turns a submitted order into a courier booking: it builds
// the Draft shipment, assembles the provider payload and drives the
// Draft -> Booked / Failed lifecycle.
package booking

import (
	"context"
	"unicode/utf8"

	"github.com/tournevent/courierbridge/internal/models"
)

// Settings are the integration defaults applied to every booking.
type Settings struct {
	DefaultOriginCity  string
	DefaultPaymentMode string
	DefaultPieces      int
	DefaultServiceType string
	DefaultProductType string
	ShipmentMode       string
	ShipperName        string
	ShipperPhone       string
	ShipperAddress     string
}

// OrderReader loads the host records a shipment is built from.
type OrderReader interface {
	GetOrder(ctx context.Context, name string) (*models.Order, error)
	GetCustomer(ctx context.Context, id string) (*models.Customer, error)
	GetAddress(ctx context.Context, id string) (*models.Address, error)
	FirstCustomerAddress(ctx context.Context, customerID string) (*models.Address, error)
}

// ShipmentRepository persists shipments.
type ShipmentRepository interface {
	GetShipmentByOrder(ctx context.Context, orderName string) (*models.Shipment, error)
	InsertShipment(ctx context.Context, s *models.Shipment) error
	UpdateShipment(ctx context.Context, s *models.Shipment) error
}

// AreaLookup resolves service areas by id or active name.
type AreaLookup interface {
	GetServiceArea(ctx context.Context, id string) (*models.ServiceArea, error)
	FindActiveServiceArea(ctx context.Context, name string) (*models.ServiceArea, error)
}

// Store is everything the coordinator reads and writes.
type Store interface {
	OrderReader
	ShipmentRepository
	// SaveBooking persists the Booked shipment and the order mirror together.
	SaveBooking(ctx context.Context, s *models.Shipment, m models.BookingMirror) error
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
