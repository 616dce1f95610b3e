package leopards

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/tournevent/courierbridge/pkg/shipper"
)

// APIClient defines the interface for Leopards merchant API operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// BookPacket books a packet. The request is sent form-encoded.
	BookPacket(ctx context.Context, req *BookPacketRequest) (*BookPacketResponse, error)

	// GetAllCities lists the provider's service areas.
	GetAllCities(ctx context.Context, req *Credentials) (*CitiesResponse, error)

	// PrintCN fetches the printable consignment note.
	PrintCN(ctx context.Context, req *PrintCNRequest) (*PrintCNResponse, error)

	// TrackBookedPacket fetches tracking records for one or more consignment numbers.
	TrackBookedPacket(ctx context.Context, req *TrackRequest) (*TrackResponse, error)
}

// ============================================================================
// API Request/Response Types (match the Leopards merchant API v1 structure)
// ============================================================================

// Credentials are attached to every request.
type Credentials struct {
	APIKey      string `json:"api_key"`
	APIPassword string `json:"api_password"`
}

// BookPacketRequest is posted to /api/bookPacket/format/json/.
type BookPacketRequest struct {
	Credentials
	Booking shipper.BookingRequest
}

// Form encodes the request as the form fields bookPacket expects.
func (r *BookPacketRequest) Form() url.Values {
	b := r.Booking
	form := url.Values{}
	form.Set("booked_packet_order_id", b.OrderID)
	form.Set("booked_packet_weight", strconv.Itoa(b.WeightGrams))
	form.Set("booked_packet_no_piece", strconv.Itoa(b.Pieces))
	form.Set("booked_packet_collect_amount", strconv.Itoa(b.CollectAmount))
	form.Set("origin_city", b.OriginCity)
	form.Set("destination_city", b.DestinationCity)
	form.Set("shipment_type", b.ShipmentType)
	form.Set("product_type", b.ProductType)
	form.Set("shipment_mode", b.ShipmentMode)
	form.Set("order_payment_method", b.PaymentMethod)
	form.Set("shipment_name_eng", b.ShipperName)
	form.Set("shipment_phone", b.ShipperPhone)
	form.Set("shipment_address", b.ShipperAddress)
	form.Set("consignment_name_eng", b.ConsigneeName)
	form.Set("consignment_phone", b.ConsigneePhone)
	form.Set("consignment_address", b.ConsigneeAddress)
	form.Set("special_instructions", b.SpecialInstructions)
	form.Set("api_key", r.APIKey)
	form.Set("api_password", r.APIPassword)
	return form
}

// BookPacketResponse is the decoded bookPacket answer.
type BookPacketResponse struct {
	Status      string
	TrackNumber string
	SlipLink    string
	Raw         json.RawMessage
}

// CitiesResponse is the decoded getAllCities answer. Cities holds whichever of
// city_list or data was a JSON array.
type CitiesResponse struct {
	Status string
	Cities []shipper.ServiceAreaRecord
}

// PrintCNRequest is posted to /api/printCN/format/json/.
type PrintCNRequest struct {
	Credentials
	CNNumbers string `json:"cn_numbers"`
}

// PrintCNResponse is the decoded printCN answer.
type PrintCNResponse struct {
	Status   string
	PrintURL string
	HTML     string
}

// TrackRequest is posted to /api/trackBookedPacket/format/json/.
type TrackRequest struct {
	Credentials
	TrackNumbers []string `json:"track_numbers"`
}

// TrackResponse is the decoded trackBookedPacket answer.
type TrackResponse struct {
	Status  string
	Packets []Packet
}

// Packet is one tracking record from packet_list.
type Packet struct {
	CurrentStatus string
	Status        string
}
