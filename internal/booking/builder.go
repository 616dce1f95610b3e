package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/tournevent/courierbridge/internal/clock"
	"github.com/tournevent/courierbridge/internal/models"
	"github.com/tournevent/courierbridge/pkg/shipper"
)

// Weight bounds accepted by the provider, in grams.
const (
	MinWeightGrams = 1
	MaxWeightGrams = 100000
)

// Builder creates Draft shipments from orders.
type Builder struct {
	store    Store
	cities   *CityResolver
	settings Settings
	clock    clock.Clock
	newID    func() string
}

func NewBuilder(store Store, areas AreaLookup, settings Settings, clk clock.Clock) *Builder {
	if clk == nil {
		clk = clock.Real()
	}
	return &Builder{
		store:    store,
		cities:   NewCityResolver(areas),
		settings: settings,
		clock:    clk,
		newID:    uuid.NewString,
	}
}

// Build validates the order and persists a Draft shipment for it. A Draft or
// Failed shipment already recorded for the order is rebuilt in place so each
// order keeps exactly one shipment.
func (b *Builder) Build(ctx context.Context, orderName string) (*models.Shipment, *models.Order, error) {
	order, err := b.loadOrder(ctx, orderName)
	if err != nil {
		return nil, nil, err
	}
	if !order.Submitted {
		return nil, order, shipper.NewValidationError("Delivery Note must be submitted")
	}

	sh, err := b.compose(ctx, order)
	if err != nil {
		return nil, order, err
	}

	now := b.clock.Now()
	existing, err := b.store.GetShipmentByOrder(ctx, order.Name)
	switch {
	case errors.Is(err, models.ErrNotFound):
		sh.ID = b.newID()
		sh.CreatedAt = now
		sh.UpdatedAt = now
		if err := b.store.InsertShipment(ctx, sh); err != nil {
			return nil, order, fmt.Errorf("saving draft shipment: %w", err)
		}
	case err != nil:
		return nil, order, fmt.Errorf("loading shipment: %w", err)
	case existing.Status == models.ShipmentBooked:
		return nil, order, shipper.NewValidationError("Already booked")
	default:
		sh.ID = existing.ID
		sh.CreatedAt = existing.CreatedAt
		sh.ServiceType = existing.ServiceType
		sh.ProductType = existing.ProductType
		sh.ShipmentMode = existing.ShipmentMode
		sh.UpdatedAt = now
		if err := b.store.UpdateShipment(ctx, sh); err != nil {
			return nil, order, fmt.Errorf("saving draft shipment: %w", err)
		}
	}

	return sh, order, nil
}

func (b *Builder) loadOrder(ctx context.Context, name string) (*models.Order, error) {
	order, err := b.store.GetOrder(ctx, name)
	if errors.Is(err, models.ErrNotFound) {
		return nil, shipper.NewValidationError(fmt.Sprintf("Delivery Note %s not found", name))
	}
	if err != nil {
		return nil, fmt.Errorf("loading order: %w", err)
	}
	return order, nil
}

// compose derives every shipment field from the order without persisting.
func (b *Builder) compose(ctx context.Context, order *models.Order) (*models.Shipment, error) {
	addr, err := b.shippingAddress(ctx, order)
	if err != nil {
		return nil, err
	}

	customer, err := b.customer(ctx, order.CustomerID)
	if err != nil {
		return nil, err
	}

	sh := &models.Shipment{
		OrderName:     order.Name,
		Customer:      order.CustomerID,
		Company:       order.Company,
		ConsigneeName: consigneeName(order, customer, addr),
		City:          addr.City,
		Address:       ComposeAddress(addr),
		Phone:         consigneePhone(addr, customer),
		Status:        models.ShipmentDraft,
	}

	if sh.City == "" {
		return nil, shipper.NewValidationError("Destination city missing in Shipping Address")
	}
	if sh.Phone == "" {
		return nil, shipper.NewValidationError("Consignee phone number missing")
	}
	if sh.Address == "" {
		return nil, shipper.NewValidationError("Consignee address missing")
	}

	sh.PaymentMode = b.settings.DefaultPaymentMode
	if sh.PaymentMode == "" {
		sh.PaymentMode = string(shipper.PaymentCOD)
	}
	sh.Pieces = b.settings.DefaultPieces
	if sh.Pieces <= 0 {
		sh.Pieces = 1
	}

	weight, err := ResolveWeightGrams(order)
	if err != nil {
		return nil, err
	}
	sh.WeightGrams = weight

	sh.DeclaredValue = order.GrandTotal
	if sh.PaymentMode == string(shipper.PaymentCOD) {
		sh.CODAmount = sh.DeclaredValue
	}
	return sh, nil
}

// shippingAddress resolves: order shipping address, order customer address,
// then the first address linked to the customer.
func (b *Builder) shippingAddress(ctx context.Context, order *models.Order) (*models.Address, error) {
	for _, id := range []string{order.ShippingAddressID, order.CustomerAddressID} {
		if id == "" {
			continue
		}
		addr, err := b.store.GetAddress(ctx, id)
		if err == nil {
			return addr, nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("loading address: %w", err)
		}
	}

	if order.CustomerID != "" {
		addr, err := b.store.FirstCustomerAddress(ctx, order.CustomerID)
		if err == nil {
			return addr, nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("loading customer address: %w", err)
		}
	}

	return nil, shipper.NewValidationError(
		"Shipping Address not found. Set Shipping Address on Delivery Note or Customer.")
}

func (b *Builder) customer(ctx context.Context, id string) (*models.Customer, error) {
	if id == "" {
		return &models.Customer{}, nil
	}
	c, err := b.store.GetCustomer(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return &models.Customer{ID: id}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading customer: %w", err)
	}
	return c, nil
}

func consigneeName(order *models.Order, customer *models.Customer, addr *models.Address) string {
	for _, candidate := range []string{order.CustomerName, customer.Name, addr.Title, order.CustomerID} {
		if name := strings.TrimSpace(candidate); name != "" {
			return name
		}
	}
	return ""
}

func consigneePhone(addr *models.Address, customer *models.Customer) string {
	if phone := strings.TrimSpace(addr.Phone); phone != "" {
		return phone
	}
	return strings.TrimSpace(customer.MobileNo)
}

// ComposeAddress joins the non-empty address parts with ", ".
func ComposeAddress(a *models.Address) string {
	parts := make([]string, 0, 6)
	for _, p := range []string{a.Line1, a.Line2, a.City, a.State, a.Pincode, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// ResolveWeightGrams returns the order weight in grams without unit
// conversion: the order total when positive, otherwise the item sum.
func ResolveWeightGrams(o *models.Order) (int, error) {
	if o.TotalNetWeight > 0 {
		if w := int(math.RoundToEven(o.TotalNetWeight)); w > 0 {
			return w, nil
		}
	}

	var total float64
	for _, it := range o.Items {
		total += it.WeightPerUnit * it.Qty
	}
	if w := int(math.RoundToEven(total)); w > 0 {
		return w, nil
	}

	return 0, shipper.NewValidationError("Shipment weight is missing.\n" +
		"Set Delivery Note Total Net Weight (grams) or Item Weight Per Unit (grams).")
}
