package shipper

import "encoding/json"

// PaymentMode is the order payment method sent to the courier.
type PaymentMode string

const (
	PaymentCOD     PaymentMode = "COD"
	PaymentPrepaid PaymentMode = "Prepaid"
)

// Booking defaults applied when neither the shipment nor the settings carry a value.
const (
	DefaultShipmentType = "Overnight"
	DefaultProductType  = "Parcel"
	DefaultShipmentMode = "Domestic"
)

// PendingStatus is the tracking status reported whenever the provider cannot answer.
const PendingStatus = "Pending"

// BookingRequest is the canonical bookPacket payload.
// Credentials are attached by the courier client, never by callers.
type BookingRequest struct {
	OrderID             string `json:"booked_packet_order_id"`
	WeightGrams         int    `json:"booked_packet_weight"`
	Pieces              int    `json:"booked_packet_no_piece"`
	CollectAmount       int    `json:"booked_packet_collect_amount"`
	OriginCity          string `json:"origin_city"`
	DestinationCity     string `json:"destination_city"`
	ShipmentType        string `json:"shipment_type"`
	ProductType         string `json:"product_type"`
	ShipmentMode        string `json:"shipment_mode"`
	PaymentMethod       string `json:"order_payment_method"`
	ShipperName         string `json:"shipment_name_eng"`
	ShipperPhone        string `json:"shipment_phone"`
	ShipperAddress      string `json:"shipment_address"`
	ConsigneeName       string `json:"consignment_name_eng"`
	ConsigneePhone      string `json:"consignment_phone"`
	ConsigneeAddress    string `json:"consignment_address"`
	SpecialInstructions string `json:"special_instructions"`
}

// BookingResult is the outcome of a successful bookPacket call.
type BookingResult struct {
	TrackingNumber string
	SlipLink       string
	Raw            json.RawMessage
}

// ServiceAreaRecord is one row of the provider's city list, before normalization.
type ServiceAreaRecord map[string]any

// PrintArtifact is the polymorphic printCN result: exactly one of URL or HTML is set.
type PrintArtifact struct {
	URL  string
	HTML string
}
