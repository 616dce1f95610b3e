package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/tournevent/courierbridge/internal/models"
)

func (s *Storage) GetOrder(ctx context.Context, name string) (*models.Order, error) {
	var o models.Order
	err := s.db.QueryRow(ctx, `
SELECT
  name, submitted, customer_id, customer_name, company,
  shipping_address_id, customer_address_id, total_net_weight, grand_total, remarks_override,
  consignment_number, slip_link, booking_status, last_tracking_status, delivered_on
FROM orders
WHERE name = $1
`, name).Scan(
		&o.Name, &o.Submitted, &o.CustomerID, &o.CustomerName, &o.Company,
		&o.ShippingAddressID, &o.CustomerAddressID, &o.TotalNetWeight, &o.GrandTotal, &o.RemarksOverride,
		&o.ConsignmentNumber, &o.SlipLink, &o.BookingStatus, &o.LastTrackingStatus, &o.DeliveredOn,
	)
	if err != nil {
		return nil, notFound(err, "select order")
	}

	rows, err := s.db.Query(ctx, `
SELECT item_name, qty, weight_per_unit
FROM order_items
WHERE order_name = $1
ORDER BY idx
`, name)
	if err != nil {
		return nil, errors.Wrap(err, "select order items")
	}
	defer rows.Close()

	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ItemName, &it.Qty, &it.WeightPerUnit); err != nil {
			return nil, errors.Wrap(err, "scan order item")
		}
		o.Items = append(o.Items, it)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return &o, nil
}

// SaveOrder upserts the order header and replaces its items.
func (s *Storage) SaveOrder(ctx context.Context, o *models.Order) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
INSERT INTO orders (
  name, submitted, customer_id, customer_name, company,
  shipping_address_id, customer_address_id, total_net_weight, grand_total, remarks_override,
  consignment_number, slip_link, booking_status, last_tracking_status, delivered_on
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (name) DO UPDATE SET
  submitted = EXCLUDED.submitted,
  customer_id = EXCLUDED.customer_id,
  customer_name = EXCLUDED.customer_name,
  company = EXCLUDED.company,
  shipping_address_id = EXCLUDED.shipping_address_id,
  customer_address_id = EXCLUDED.customer_address_id,
  total_net_weight = EXCLUDED.total_net_weight,
  grand_total = EXCLUDED.grand_total,
  remarks_override = EXCLUDED.remarks_override,
  consignment_number = EXCLUDED.consignment_number,
  slip_link = EXCLUDED.slip_link,
  booking_status = EXCLUDED.booking_status,
  last_tracking_status = EXCLUDED.last_tracking_status,
  delivered_on = EXCLUDED.delivered_on
`, o.Name, o.Submitted, o.CustomerID, o.CustomerName, o.Company,
		o.ShippingAddressID, o.CustomerAddressID, o.TotalNetWeight, o.GrandTotal, o.RemarksOverride,
		o.ConsignmentNumber, o.SlipLink, o.BookingStatus, o.LastTrackingStatus, o.DeliveredOn)
	if err != nil {
		return errors.Wrap(err, "upsert order")
	}

	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_name = $1`, o.Name); err != nil {
		return errors.Wrap(err, "delete order items")
	}
	for i, it := range o.Items {
		_, err := tx.Exec(ctx, `
INSERT INTO order_items (order_name, idx, item_name, qty, weight_per_unit)
VALUES ($1,$2,$3,$4,$5)
`, o.Name, i, it.ItemName, it.Qty, it.WeightPerUnit)
		if err != nil {
			return errors.Wrap(err, "insert order item")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

func (s *Storage) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	var c models.Customer
	err := s.db.QueryRow(ctx, `SELECT id, name, mobile_no FROM customers WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.MobileNo)
	if err != nil {
		return nil, notFound(err, "select customer")
	}
	return &c, nil
}

func (s *Storage) SaveCustomer(ctx context.Context, c *models.Customer) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO customers (id, name, mobile_no) VALUES ($1,$2,$3)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, mobile_no = EXCLUDED.mobile_no
`, c.ID, c.Name, c.MobileNo)
	if err != nil {
		return errors.Wrap(err, "upsert customer")
	}
	return nil
}

const addressColumns = `id, customer_id, title, line1, line2, city, state, pincode, country, phone`

func scanAddress(row pgx.Row) (*models.Address, error) {
	var a models.Address
	err := row.Scan(&a.ID, &a.CustomerID, &a.Title, &a.Line1, &a.Line2,
		&a.City, &a.State, &a.Pincode, &a.Country, &a.Phone)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Storage) GetAddress(ctx context.Context, id string) (*models.Address, error) {
	a, err := scanAddress(s.db.QueryRow(ctx, `SELECT `+addressColumns+` FROM addresses WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "select address")
	}
	return a, nil
}

// FirstCustomerAddress returns the earliest address linked to the customer.
func (s *Storage) FirstCustomerAddress(ctx context.Context, customerID string) (*models.Address, error) {
	a, err := scanAddress(s.db.QueryRow(ctx, `
SELECT `+addressColumns+`
FROM addresses
WHERE customer_id = $1
ORDER BY created_at, id
LIMIT 1
`, customerID))
	if err != nil {
		return nil, notFound(err, "select customer address")
	}
	return a, nil
}

func (s *Storage) SaveAddress(ctx context.Context, a *models.Address) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO addresses (`+addressColumns+`, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, now())
ON CONFLICT (id) DO UPDATE SET
  customer_id = EXCLUDED.customer_id,
  title = EXCLUDED.title,
  line1 = EXCLUDED.line1,
  line2 = EXCLUDED.line2,
  city = EXCLUDED.city,
  state = EXCLUDED.state,
  pincode = EXCLUDED.pincode,
  country = EXCLUDED.country,
  phone = EXCLUDED.phone
`, a.ID, a.CustomerID, a.Title, a.Line1, a.Line2, a.City, a.State, a.Pincode, a.Country, a.Phone)
	if err != nil {
		return errors.Wrap(err, "upsert address")
	}
	return nil
}

func mirrorBooking(ctx context.Context, db execer, orderName string, m models.BookingMirror) error {
	tag, err := db.Exec(ctx, `
UPDATE orders
SET consignment_number = $2, slip_link = $3, booking_status = $4, last_tracking_status = $5
WHERE name = $1
`, orderName, m.ConsignmentNumber, m.SlipLink, m.BookingStatus, m.LastTrackingStatus)
	if err != nil {
		return errors.Wrap(err, "update order booking")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(models.ErrNotFound, "update order booking")
	}
	return nil
}

// ListBookedOrders returns booked orders carrying a consignment number.
func (s *Storage) ListBookedOrders(ctx context.Context, limit int) ([]models.BookedOrder, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.Query(ctx, `
SELECT name, consignment_number
FROM orders
WHERE booking_status = 'Booked' AND consignment_number <> ''
ORDER BY name
LIMIT $1
`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select booked orders")
	}
	defer rows.Close()

	var out []models.BookedOrder
	for rows.Next() {
		var b models.BookedOrder
		if err := rows.Scan(&b.Name, &b.ConsignmentNumber); err != nil {
			return nil, errors.Wrap(err, "scan booked order")
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
