// Package shipper defines the courier-facing contract used by the booking and tracking engine.
package shipper

import (
	"context"
)

// Courier is the single provider the engine books with and tracks against.
type Courier interface {
	// Name returns the carrier identifier (e.g., "leopards").
	Name() string

	// Preflight fails with a configuration error when the integration is disabled
	// or its credential cannot be resolved.
	Preflight(ctx context.Context) error

	// Book submits a packet booking.
	Book(ctx context.Context, req *BookingRequest) (*BookingResult, error)

	// ListServiceAreas returns the provider's raw city list. An empty slice is a valid result.
	ListServiceAreas(ctx context.Context) ([]ServiceAreaRecord, error)

	// FetchPrintArtifact returns the printable slip for a tracking number.
	FetchPrintArtifact(ctx context.Context, trackingNumber string) (*PrintArtifact, error)

	// TrackPacket returns the current status text, PendingStatus when the provider
	// cannot answer. Only configuration errors are returned.
	TrackPacket(ctx context.Context, trackingNumber string) (string, error)
}
