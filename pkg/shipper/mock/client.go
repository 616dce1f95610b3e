// Package mock provides a scripted in-memory shipper.Courier for tests and dry runs.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/tournevent/courierbridge/pkg/shipper"
)

// Client is a scripted courier. Zero-valued hooks fall back to deterministic
// defaults: sequential tracking numbers, an empty city list, a print URL and
// the PendingStatus for tracking.
type Client struct {
	name string

	PreflightErr error

	OnBook               func(ctx context.Context, req *shipper.BookingRequest) (*shipper.BookingResult, error)
	OnListServiceAreas   func(ctx context.Context) ([]shipper.ServiceAreaRecord, error)
	OnFetchPrintArtifact func(ctx context.Context, trackingNumber string) (*shipper.PrintArtifact, error)
	OnTrackPacket        func(ctx context.Context, trackingNumber string) (string, error)

	mu       sync.Mutex
	seq      int
	bookings []shipper.BookingRequest
	tracked  []string
	statuses map[string]string
}

var _ shipper.Courier = (*Client)(nil)

// New creates a new mock courier.
func New(name string) *Client {
	return &Client{name: name, statuses: map[string]string{}}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return c.name
}

func (c *Client) Preflight(ctx context.Context) error {
	return c.PreflightErr
}

// Book records the request and returns the scripted or a sequential result.
func (c *Client) Book(ctx context.Context, req *shipper.BookingRequest) (*shipper.BookingResult, error) {
	c.mu.Lock()
	c.bookings = append(c.bookings, *req)
	c.seq++
	n := c.seq
	c.mu.Unlock()

	if c.OnBook != nil {
		return c.OnBook(ctx, req)
	}
	tn := fmt.Sprintf("MOCK%06d", n)
	return &shipper.BookingResult{
		TrackingNumber: tn,
		SlipLink:       "https://slips.example/" + tn,
		Raw:            []byte(fmt.Sprintf(`{"status":1,"track_number":%q}`, tn)),
	}, nil
}

func (c *Client) ListServiceAreas(ctx context.Context) ([]shipper.ServiceAreaRecord, error) {
	if c.OnListServiceAreas != nil {
		return c.OnListServiceAreas(ctx)
	}
	return []shipper.ServiceAreaRecord{}, nil
}

func (c *Client) FetchPrintArtifact(ctx context.Context, trackingNumber string) (*shipper.PrintArtifact, error) {
	if c.OnFetchPrintArtifact != nil {
		return c.OnFetchPrintArtifact(ctx, trackingNumber)
	}
	return &shipper.PrintArtifact{URL: "https://print.example/" + trackingNumber}, nil
}

// TrackPacket returns the hook result, a status set with SetStatus, or PendingStatus.
func (c *Client) TrackPacket(ctx context.Context, trackingNumber string) (string, error) {
	c.mu.Lock()
	c.tracked = append(c.tracked, trackingNumber)
	status, ok := c.statuses[trackingNumber]
	c.mu.Unlock()

	if c.OnTrackPacket != nil {
		return c.OnTrackPacket(ctx, trackingNumber)
	}
	if ok {
		return status, nil
	}
	return shipper.PendingStatus, nil
}

// SetStatus scripts the tracking status for a tracking number.
func (c *Client) SetStatus(trackingNumber, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[trackingNumber] = status
}

// Bookings returns every booking request received so far.
func (c *Client) Bookings() []shipper.BookingRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]shipper.BookingRequest, len(c.bookings))
	copy(out, c.bookings)
	return out
}

// Tracked returns every tracking number polled so far.
func (c *Client) Tracked() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.tracked))
	copy(out, c.tracked)
	return out
}
