package booking

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tournevent/courierbridge/internal/models"
	"github.com/tournevent/courierbridge/pkg/shipper"
)

// Payload assembles the bookPacket request for a Draft shipment and stores it
// on the shipment as indented JSON.
func (b *Builder) Payload(ctx context.Context, sh *models.Shipment, order *models.Order) (*shipper.BookingRequest, error) {
	if b.settings.DefaultOriginCity == "" {
		return nil, shipper.NewValidationError("Default Origin City is required in Leopards Settings")
	}

	origin, err := b.cities.Resolve(ctx, b.settings.DefaultOriginCity, true)
	if err != nil {
		return nil, err
	}
	destination, err := b.cities.Resolve(ctx, sh.City, false)
	if err != nil {
		return nil, err
	}

	if sh.WeightGrams < MinWeightGrams || sh.WeightGrams > MaxWeightGrams {
		return nil, shipper.NewValidationError(fmt.Sprintf(
			"Invalid weight %dg. Leopards allows %d–%d grams.", sh.WeightGrams, MinWeightGrams, MaxWeightGrams))
	}

	req := &shipper.BookingRequest{
		OrderID:         sh.OrderName,
		WeightGrams:     sh.WeightGrams,
		Pieces:          sh.Pieces,
		CollectAmount:   int(sh.CODAmount),
		OriginCity:      origin,
		DestinationCity: destination,
		ShipmentType:    firstNonEmpty(sh.ServiceType, b.settings.DefaultServiceType, shipper.DefaultShipmentType),
		ProductType:     firstNonEmpty(sh.ProductType, b.settings.DefaultProductType, shipper.DefaultProductType),
		ShipmentMode:    firstNonEmpty(sh.ShipmentMode, b.settings.ShipmentMode, shipper.DefaultShipmentMode),
		PaymentMethod:   sh.PaymentMode,

		ShipperName:    firstNonEmpty(b.settings.ShipperName, sh.Company),
		ShipperPhone:   b.settings.ShipperPhone,
		ShipperAddress: b.settings.ShipperAddress,

		ConsigneeName:    sh.ConsigneeName,
		ConsigneePhone:   sh.Phone,
		ConsigneeAddress: sh.Address,

		SpecialInstructions: BuildRemarks(order),
	}

	raw, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding request payload: %w", err)
	}
	sh.RequestPayload = string(raw)
	sh.UpdatedAt = b.clock.Now()
	if err := b.store.UpdateShipment(ctx, sh); err != nil {
		return nil, fmt.Errorf("saving request payload: %w", err)
	}

	return req, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
