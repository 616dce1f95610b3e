package booking

import (
	"fmt"
	"strings"

	"github.com/tournevent/courierbridge/internal/models"
)

// MaxRemarksLen bounds the special instructions sent with a booking.
const MaxRemarksLen = 250

// BuildRemarks renders the special instructions for an order: the manual
// override when set, otherwise "item xQTY" entries followed by the order name.
func BuildRemarks(o *models.Order) string {
	if override := strings.TrimSpace(o.RemarksOverride); override != "" {
		return truncate(override, MaxRemarksLen)
	}

	parts := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		if it.ItemName == "" {
			continue
		}
		qty := 1
		if it.Qty != 0 {
			qty = int(it.Qty)
		}
		parts = append(parts, fmt.Sprintf("%s x%d", it.ItemName, qty))
	}

	remarks := strings.Join(parts, ", ")
	if o.Name != "" {
		if remarks != "" {
			remarks = remarks + " | DN: " + o.Name
		} else {
			remarks = "DN: " + o.Name
		}
	}

	if remarks == "" {
		return "N/A"
	}
	return truncate(remarks, MaxRemarksLen)
}
