package models

import (
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = errors.New("not found")

// Order is the host fulfillment record (delivery note) a shipment is booked for.
type Order struct {
	Name              string
	Submitted         bool
	CustomerID        string
	CustomerName      string
	Company           string
	ShippingAddressID string
	CustomerAddressID string
	TotalNetWeight    float64 // grams
	GrandTotal        float64
	RemarksOverride   string
	Items             []OrderItem

	// Mirrored courier fields.
	ConsignmentNumber  string
	SlipLink           string
	BookingStatus      string
	LastTrackingStatus string
	DeliveredOn        *time.Time
}

// OrderItem is one order line.
type OrderItem struct {
	ItemName      string
	Qty           float64
	WeightPerUnit float64 // grams
}

// Customer is the order's customer master record.
type Customer struct {
	ID       string
	Name     string
	MobileNo string
}

// Address is a postal address linked to a customer.
type Address struct {
	ID         string
	CustomerID string
	Title      string
	Line1      string
	Line2      string
	City       string
	State      string
	Pincode    string
	Country    string
	Phone      string
}

// BookingMirror is written onto the order after a successful booking.
type BookingMirror struct {
	ConsignmentNumber  string
	SlipLink           string
	BookingStatus      string
	LastTrackingStatus string
}

// BookedOrder is the minimal view used by tracking backfill.
type BookedOrder struct {
	Name              string
	ConsignmentNumber string
}
