package pgstore

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS customers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  mobile_no TEXT NOT NULL DEFAULT ''
)`,
		`
CREATE TABLE IF NOT EXISTS addresses (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL DEFAULT '',
  title TEXT NOT NULL DEFAULT '',
  line1 TEXT NOT NULL DEFAULT '',
  line2 TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL DEFAULT '',
  state TEXT NOT NULL DEFAULT '',
  pincode TEXT NOT NULL DEFAULT '',
  country TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE INDEX IF NOT EXISTS idx_addresses_customer_id ON addresses(customer_id, created_at)`,
		`
CREATE TABLE IF NOT EXISTS orders (
  name TEXT PRIMARY KEY,
  submitted BOOLEAN NOT NULL DEFAULT false,
  customer_id TEXT NOT NULL DEFAULT '',
  customer_name TEXT NOT NULL DEFAULT '',
  company TEXT NOT NULL DEFAULT '',
  shipping_address_id TEXT NOT NULL DEFAULT '',
  customer_address_id TEXT NOT NULL DEFAULT '',
  total_net_weight DOUBLE PRECISION NOT NULL DEFAULT 0,
  grand_total DOUBLE PRECISION NOT NULL DEFAULT 0,
  remarks_override TEXT NOT NULL DEFAULT '',
  consignment_number TEXT NOT NULL DEFAULT '',
  slip_link TEXT NOT NULL DEFAULT '',
  booking_status TEXT NOT NULL DEFAULT '',
  last_tracking_status TEXT NOT NULL DEFAULT '',
  delivered_on TIMESTAMPTZ NULL
)`,
		`
CREATE TABLE IF NOT EXISTS order_items (
  order_name TEXT NOT NULL REFERENCES orders(name) ON DELETE CASCADE,
  idx INT NOT NULL,
  item_name TEXT NOT NULL DEFAULT '',
  qty DOUBLE PRECISION NOT NULL DEFAULT 0,
  weight_per_unit DOUBLE PRECISION NOT NULL DEFAULT 0,
  PRIMARY KEY (order_name, idx)
)`,
		`
CREATE TABLE IF NOT EXISTS shipments (
  id TEXT PRIMARY KEY,
  order_name TEXT NOT NULL UNIQUE,
  customer TEXT NOT NULL DEFAULT '',
  company TEXT NOT NULL DEFAULT '',
  consignee_name TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  address TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL DEFAULT '',
  payment_mode TEXT NOT NULL DEFAULT '',
  declared_value DOUBLE PRECISION NOT NULL DEFAULT 0,
  cod_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
  weight_grams INT NOT NULL DEFAULT 0,
  pieces INT NOT NULL DEFAULT 1,
  service_type TEXT NOT NULL DEFAULT '',
  product_type TEXT NOT NULL DEFAULT '',
  shipment_mode TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  tracking_number TEXT NOT NULL DEFAULT '',
  label_link TEXT NOT NULL DEFAULT '',
  last_error TEXT NOT NULL DEFAULT '',
  packing_slip TEXT NOT NULL DEFAULT '',
  slip_generated BOOLEAN NOT NULL DEFAULT false,
  request_payload TEXT NOT NULL DEFAULT '',
  response_payload TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`
CREATE TABLE IF NOT EXISTS service_areas (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  allow_as_origin BOOLEAN NOT NULL DEFAULT false,
  allow_as_destination BOOLEAN NOT NULL DEFAULT false,
  is_active BOOLEAN NOT NULL DEFAULT true
)`,
		`CREATE INDEX IF NOT EXISTS idx_service_areas_name ON service_areas(name)`,
		`
CREATE TABLE IF NOT EXISTS tracking_snapshots (
  id BIGSERIAL PRIMARY KEY,
  order_name TEXT NOT NULL UNIQUE,
  tracking_number TEXT NOT NULL,
  current_status TEXT NOT NULL DEFAULT '',
  is_delivered BOOLEAN NOT NULL DEFAULT false,
  last_updated TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_tracking_snapshots_undelivered ON tracking_snapshots(is_delivered, last_updated)`,
		`
CREATE TABLE IF NOT EXISTS tracking_events (
  id BIGSERIAL PRIMARY KEY,
  order_name TEXT NOT NULL,
  tracking_number TEXT NOT NULL,
  status_text TEXT NOT NULL,
  event_time TIMESTAMPTZ NOT NULL,
  source TEXT NOT NULL DEFAULT ''
)`,
		`CREATE INDEX IF NOT EXISTS idx_tracking_events_order_time ON tracking_events(order_name, event_time DESC, id DESC)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
