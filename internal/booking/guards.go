package booking

import (
	"github.com/tournevent/courierbridge/internal/models"
)

// Skip reasons reported for orders that are not eligible for booking.
const (
	ReasonNotSubmitted  = "Not submitted"
	ReasonAlreadyBooked = "Already booked"
)

// SkipReason reports why an order must not be booked, or "" when it may be.
func SkipReason(o *models.Order) string {
	if !o.Submitted {
		return ReasonNotSubmitted
	}
	if o.BookingStatus == string(models.ShipmentBooked) {
		return ReasonAlreadyBooked
	}
	return ""
}
