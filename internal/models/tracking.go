package models

import "time"

// EventSource labels events recorded from provider polling.
const EventSource = "Leopards API"

// TrackingSnapshot is the latest known status of one booked order.
// IsDelivered is monotonic.
type TrackingSnapshot struct {
	ID             int64
	OrderName      string
	TrackingNumber string
	CurrentStatus  string
	IsDelivered    bool
	LastUpdated    time.Time
}

// TrackingEvent is an append-only status-change record.
type TrackingEvent struct {
	ID             int64
	OrderName      string
	TrackingNumber string
	StatusText     string
	EventTime      time.Time
	Source         string
}

// SnapshotUpdate is applied atomically when a poll observes a new status:
// the snapshot row, the optional event and the order mirror.
type SnapshotUpdate struct {
	SnapshotID     int64
	OrderName      string
	TrackingNumber string
	Status         string
	Delivered      bool
	At             time.Time
	Event          *TrackingEvent
}
