// Package storage declares the persistence contract shared by the PostgreSQL
// and SQLite backends.
package storage

import (
	"context"
	"time"

	"github.com/tournevent/courierbridge/internal/models"
)

// Store is implemented by pgstore.Storage and sqlitestore.Storage.
// Lookups that find nothing return models.ErrNotFound.
type Store interface {
	OrderStore
	ShipmentStore
	ServiceAreaStore
	TrackingStore
	Close()
}

// OrderStore reads host fulfillment records and writes the booking mirror.
type OrderStore interface {
	GetOrder(ctx context.Context, name string) (*models.Order, error)
	SaveOrder(ctx context.Context, o *models.Order) error
	GetCustomer(ctx context.Context, id string) (*models.Customer, error)
	SaveCustomer(ctx context.Context, c *models.Customer) error
	GetAddress(ctx context.Context, id string) (*models.Address, error)
	FirstCustomerAddress(ctx context.Context, customerID string) (*models.Address, error)
	SaveAddress(ctx context.Context, a *models.Address) error
	ListBookedOrders(ctx context.Context, limit int) ([]models.BookedOrder, error)
}

// ShipmentStore persists shipments, one per order.
type ShipmentStore interface {
	GetShipment(ctx context.Context, id string) (*models.Shipment, error)
	GetShipmentByOrder(ctx context.Context, orderName string) (*models.Shipment, error)
	InsertShipment(ctx context.Context, s *models.Shipment) error
	UpdateShipment(ctx context.Context, s *models.Shipment) error
	// SaveBooking updates the shipment and mirrors m onto its order in one
	// transaction.
	SaveBooking(ctx context.Context, s *models.Shipment, m models.BookingMirror) error
}

// ServiceAreaStore persists the provider city list.
type ServiceAreaStore interface {
	GetServiceArea(ctx context.Context, id string) (*models.ServiceArea, error)
	FindActiveServiceArea(ctx context.Context, name string) (*models.ServiceArea, error)
	UpsertServiceAreas(ctx context.Context, areas []models.ServiceArea) (int, error)
}

// TrackingStore persists snapshots and the event history.
type TrackingStore interface {
	ListUndeliveredSnapshots(ctx context.Context, limit int) ([]models.TrackingSnapshot, error)
	HasSnapshot(ctx context.Context, orderName string) (bool, error)
	InsertSnapshot(ctx context.Context, s *models.TrackingSnapshot) error
	// ApplyStatusChange updates the snapshot, appends the event when its
	// status differs from the order's latest event, and mirrors the status onto
	// the order, all in one transaction. It reports whether an event was appended.
	ApplyStatusChange(ctx context.Context, upd models.SnapshotUpdate) (bool, error)
	ListEvents(ctx context.Context, orderName string) ([]models.TrackingEvent, error)
	DeleteDeliveredSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
