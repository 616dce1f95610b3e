package sqlitestore

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/tournevent/courierbridge/internal/models"
)

func (s *Storage) GetOrder(ctx context.Context, name string) (*models.Order, error) {
	var (
		o           models.Order
		deliveredOn sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
SELECT
  name, submitted, customer_id, customer_name, company,
  shipping_address_id, customer_address_id, total_net_weight, grand_total, remarks_override,
  consignment_number, slip_link, booking_status, last_tracking_status, delivered_on
FROM orders
WHERE name = ?
`, name).Scan(
		&o.Name, &o.Submitted, &o.CustomerID, &o.CustomerName, &o.Company,
		&o.ShippingAddressID, &o.CustomerAddressID, &o.TotalNetWeight, &o.GrandTotal, &o.RemarksOverride,
		&o.ConsignmentNumber, &o.SlipLink, &o.BookingStatus, &o.LastTrackingStatus, &deliveredOn,
	)
	if err != nil {
		return nil, notFound(err, "select order")
	}
	if deliveredOn.Valid {
		t := deliveredOn.Time.UTC()
		o.DeliveredOn = &t
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT item_name, qty, weight_per_unit
FROM order_items
WHERE order_name = ?
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
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows")
	}
	return &o, nil
}

// SaveOrder upserts the order header and replaces its items.
func (s *Storage) SaveOrder(ctx context.Context, o *models.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	var deliveredOn sql.NullTime
	if o.DeliveredOn != nil {
		deliveredOn = sql.NullTime{Time: o.DeliveredOn.UTC(), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO orders (
  name, submitted, customer_id, customer_name, company,
  shipping_address_id, customer_address_id, total_net_weight, grand_total, remarks_override,
  consignment_number, slip_link, booking_status, last_tracking_status, delivered_on
)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT (name) DO UPDATE SET
  submitted = excluded.submitted,
  customer_id = excluded.customer_id,
  customer_name = excluded.customer_name,
  company = excluded.company,
  shipping_address_id = excluded.shipping_address_id,
  customer_address_id = excluded.customer_address_id,
  total_net_weight = excluded.total_net_weight,
  grand_total = excluded.grand_total,
  remarks_override = excluded.remarks_override,
  consignment_number = excluded.consignment_number,
  slip_link = excluded.slip_link,
  booking_status = excluded.booking_status,
  last_tracking_status = excluded.last_tracking_status,
  delivered_on = excluded.delivered_on
`, o.Name, o.Submitted, o.CustomerID, o.CustomerName, o.Company,
		o.ShippingAddressID, o.CustomerAddressID, o.TotalNetWeight, o.GrandTotal, o.RemarksOverride,
		o.ConsignmentNumber, o.SlipLink, o.BookingStatus, o.LastTrackingStatus, deliveredOn)
	if err != nil {
		return errors.Wrap(err, "upsert order")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_name = ?`, o.Name); err != nil {
		return errors.Wrap(err, "delete order items")
	}
	for i, it := range o.Items {
		_, err := tx.ExecContext(ctx, `
INSERT INTO order_items (order_name, idx, item_name, qty, weight_per_unit)
VALUES (?,?,?,?,?)
`, o.Name, i, it.ItemName, it.Qty, it.WeightPerUnit)
		if err != nil {
			return errors.Wrap(err, "insert order item")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

func (s *Storage) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	var c models.Customer
	err := s.db.QueryRowContext(ctx, `SELECT id, name, mobile_no FROM customers WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.MobileNo)
	if err != nil {
		return nil, notFound(err, "select customer")
	}
	return &c, nil
}

func (s *Storage) SaveCustomer(ctx context.Context, c *models.Customer) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO customers (id, name, mobile_no) VALUES (?,?,?)
ON CONFLICT (id) DO UPDATE SET name = excluded.name, mobile_no = excluded.mobile_no
`, c.ID, c.Name, c.MobileNo)
	if err != nil {
		return errors.Wrap(err, "upsert customer")
	}
	return nil
}

const addressColumns = `id, customer_id, title, line1, line2, city, state, pincode, country, phone`

func scanAddress(row *sql.Row) (*models.Address, error) {
	var a models.Address
	err := row.Scan(&a.ID, &a.CustomerID, &a.Title, &a.Line1, &a.Line2,
		&a.City, &a.State, &a.Pincode, &a.Country, &a.Phone)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Storage) GetAddress(ctx context.Context, id string) (*models.Address, error) {
	a, err := scanAddress(s.db.QueryRowContext(ctx, `SELECT `+addressColumns+` FROM addresses WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "select address")
	}
	return a, nil
}

// FirstCustomerAddress returns the earliest saved address linked to the customer.
func (s *Storage) FirstCustomerAddress(ctx context.Context, customerID string) (*models.Address, error) {
	a, err := scanAddress(s.db.QueryRowContext(ctx, `
SELECT `+addressColumns+`
FROM addresses
WHERE customer_id = ?
ORDER BY seq, id
LIMIT 1
`, customerID))
	if err != nil {
		return nil, notFound(err, "select customer address")
	}
	return a, nil
}

func (s *Storage) SaveAddress(ctx context.Context, a *models.Address) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO addresses (`+addressColumns+`, seq)
VALUES (?,?,?,?,?,?,?,?,?,?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM addresses))
ON CONFLICT (id) DO UPDATE SET
  customer_id = excluded.customer_id,
  title = excluded.title,
  line1 = excluded.line1,
  line2 = excluded.line2,
  city = excluded.city,
  state = excluded.state,
  pincode = excluded.pincode,
  country = excluded.country,
  phone = excluded.phone
`, a.ID, a.CustomerID, a.Title, a.Line1, a.Line2, a.City, a.State, a.Pincode, a.Country, a.Phone)
	if err != nil {
		return errors.Wrap(err, "upsert address")
	}
	return nil
}

func mirrorBooking(ctx context.Context, db execer, orderName string, m models.BookingMirror) error {
	res, err := db.ExecContext(ctx, `
UPDATE orders
SET consignment_number = ?, slip_link = ?, booking_status = ?, last_tracking_status = ?
WHERE name = ?
`, m.ConsignmentNumber, m.SlipLink, m.BookingStatus, m.LastTrackingStatus, orderName)
	if err != nil {
		return errors.Wrap(err, "update order booking")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrap(models.ErrNotFound, "update order booking")
	}
	return nil
}

// ListBookedOrders returns booked orders carrying a consignment number.
func (s *Storage) ListBookedOrders(ctx context.Context, limit int) ([]models.BookedOrder, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT name, consignment_number
FROM orders
WHERE booking_status = 'Booked' AND consignment_number <> ''
ORDER BY name
LIMIT ?
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
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows")
	}
	return out, nil
}
