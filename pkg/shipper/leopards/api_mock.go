package leopards

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/courierbridge/pkg/shipper"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnBookPacket        func(ctx context.Context, req *BookPacketRequest) (*BookPacketResponse, error)
	OnGetAllCities      func(ctx context.Context, req *Credentials) (*CitiesResponse, error)
	OnPrintCN           func(ctx context.Context, req *PrintCNRequest) (*PrintCNResponse, error)
	OnTrackBookedPacket func(ctx context.Context, req *TrackRequest) (*TrackResponse, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

func (m *MockAPIClient) simulate() error {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}
	if m.SimulateErrors {
		return shipper.NewAPIError(carrierName, "MOCK_ERROR", "Simulated API error")
	}
	return nil
}

// BookPacket returns a mock booking.
func (m *MockAPIClient) BookPacket(ctx context.Context, req *BookPacketRequest) (*BookPacketResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}

	if m.OnBookPacket != nil {
		return m.OnBookPacket(ctx, req)
	}

	trackNumber := fmt.Sprintf("LE%d", 100000000+time.Now().UnixNano()%900000000)
	slipLink := fmt.Sprintf("https://merchantapistaging.leopardscourier.com/slip/%s", uuid.New().String()[:8])
	raw, _ := json.Marshal(map[string]any{
		"status":       1,
		"error":        0,
		"track_number": trackNumber,
		"slip_link":    slipLink,
	})

	return &BookPacketResponse{
		Status:      "1",
		TrackNumber: trackNumber,
		SlipLink:    slipLink,
		Raw:         raw,
	}, nil
}

// GetAllCities returns a small fixed city list.
func (m *MockAPIClient) GetAllCities(ctx context.Context, req *Credentials) (*CitiesResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}

	if m.OnGetAllCities != nil {
		return m.OnGetAllCities(ctx, req)
	}

	return &CitiesResponse{
		Status: "1",
		Cities: []shipper.ServiceAreaRecord{
			{"id": "789", "name": "Lahore", "allow_as_origin": "1", "allow_as_destination": "1"},
			{"id": "475", "name": "Karachi", "allow_as_origin": "1", "allow_as_destination": "1"},
			{"id": "348", "name": "Islamabad", "allow_as_origin": "0", "allow_as_destination": "1"},
		},
	}, nil
}

// PrintCN returns a mock print URL.
func (m *MockAPIClient) PrintCN(ctx context.Context, req *PrintCNRequest) (*PrintCNResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}

	if m.OnPrintCN != nil {
		return m.OnPrintCN(ctx, req)
	}

	return &PrintCNResponse{
		Status:   "1",
		PrintURL: fmt.Sprintf("https://merchantapistaging.leopardscourier.com/print/%s.pdf", req.CNNumbers),
	}, nil
}

// TrackBookedPacket returns an in-transit record for every requested number.
func (m *MockAPIClient) TrackBookedPacket(ctx context.Context, req *TrackRequest) (*TrackResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}

	if m.OnTrackBookedPacket != nil {
		return m.OnTrackBookedPacket(ctx, req)
	}

	packets := make([]Packet, 0, len(req.TrackNumbers))
	for range req.TrackNumbers {
		packets = append(packets, Packet{CurrentStatus: "Shipment in transit"})
	}
	return &TrackResponse{Status: "1", Packets: packets}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
