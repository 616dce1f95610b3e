package models

import "time"

// ShipmentStatus is the booking lifecycle state.
type ShipmentStatus string

const (
	ShipmentDraft  ShipmentStatus = "Draft"
	ShipmentBooked ShipmentStatus = "Booked"
	ShipmentFailed ShipmentStatus = "Failed"
)

// MaxLastErrorLen bounds the stored failure message.
const MaxLastErrorLen = 240

// Shipment is the courier booking for exactly one order.
//
// TrackingNumber is non-empty if and only if Status is ShipmentBooked, and
// never changes once set.
type Shipment struct {
	ID        string
	OrderName string
	Customer  string
	Company   string

	ConsigneeName string
	Phone         string
	Address       string
	City          string

	PaymentMode   string
	DeclaredValue float64
	CODAmount     float64

	WeightGrams int
	Pieces      int

	ServiceType  string
	ProductType  string
	ShipmentMode string

	Status         ShipmentStatus
	TrackingNumber string
	LabelLink      string
	LastError      string

	PackingSlip   string
	SlipGenerated bool

	RequestPayload  string
	ResponsePayload string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanTransition reports whether the lifecycle allows moving from s.Status to next.
func (s *Shipment) CanTransition(next ShipmentStatus) bool {
	switch s.Status {
	case ShipmentDraft:
		return next == ShipmentBooked || next == ShipmentFailed
	case ShipmentFailed:
		return next == ShipmentBooked || next == ShipmentDraft
	default:
		return false
	}
}

// ServiceArea is a provider-recognized city code with eligibility flags.
type ServiceArea struct {
	ID                 string
	Name               string
	AllowAsOrigin      bool
	AllowAsDestination bool
	IsActive           bool
}
