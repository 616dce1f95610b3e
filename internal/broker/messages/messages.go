// Package messages defines the JSON payloads exchanged over Kafka.
package messages

import "time"

// TrackingUpdated is published whenever a poll applies a status change.
type TrackingUpdated struct {
	OrderName      string    `json:"order_name"`
	TrackingNumber string    `json:"tracking_number"`
	Status         string    `json:"status"`
	Delivered      bool      `json:"delivered"`
	CheckedAt      time.Time `json:"checked_at"`
}

// BulkBookingRequested carries one queued bulk booking job.
type BulkBookingRequested struct {
	JobID       string    `json:"job_id"`
	Orders      []string  `json:"orders"`
	RequestedAt time.Time `json:"requested_at"`
}

// BulkBookingDone is the single completion notification for a job.
type BulkBookingDone struct {
	JobID      string         `json:"job_id"`
	Booked     []BookedOrder  `json:"booked"`
	Skipped    []SkippedOrder `json:"skipped"`
	Failed     []FailedOrder  `json:"failed"`
	FinishedAt time.Time      `json:"finished_at"`
}

type BookedOrder struct {
	Order             string `json:"dn"`
	ConsignmentNumber string `json:"cn"`
}

type SkippedOrder struct {
	Order  string `json:"dn"`
	Reason string `json:"reason"`
}

type FailedOrder struct {
	Order string `json:"dn"`
	Error string `json:"error"`
}
