package booking_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tournevent/courierbridge/internal/booking"
	"github.com/tournevent/courierbridge/internal/models"
)

func TestBuildRemarks(t *testing.T) {
	tests := []struct {
		name  string
		order models.Order
		want  string
	}{
		{
			name:  "override wins",
			order: models.Order{Name: "DN-1", RemarksOverride: "  Fragile  ", Items: []models.OrderItem{{ItemName: "Kurta", Qty: 2}}},
			want:  "Fragile",
		},
		{
			name: "items and order name",
			order: models.Order{Name: "DN-1", Items: []models.OrderItem{
				{ItemName: "Kurta", Qty: 2}, {ItemName: "Scarf"}, {ItemName: ""},
			}},
			want: "Kurta x2, Scarf x1 | DN: DN-1",
		},
		{
			name:  "order name only",
			order: models.Order{Name: "DN-9"},
			want:  "DN: DN-9",
		},
		{
			name:  "fractional quantity truncated",
			order: models.Order{Items: []models.OrderItem{{ItemName: "Rice", Qty: 2.7}}},
			want:  "Rice x2",
		},
		{
			name:  "empty",
			order: models.Order{},
			want:  "N/A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, booking.BuildRemarks(&tt.order))
		})
	}
}

func TestBuildRemarks_Truncated(t *testing.T) {
	o := &models.Order{RemarksOverride: strings.Repeat("é", 400)}
	got := booking.BuildRemarks(o)
	assert.Equal(t, booking.MaxRemarksLen, len([]rune(got)))
}
