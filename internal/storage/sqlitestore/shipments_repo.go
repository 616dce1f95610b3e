package sqlitestore

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/tournevent/courierbridge/internal/models"
)

const shipmentColumns = `
  id, order_name, customer, company, consignee_name, phone, address, city,
  payment_mode, declared_value, cod_amount, weight_grams, pieces,
  service_type, product_type, shipment_mode, status, tracking_number, label_link, last_error,
  packing_slip, slip_generated, request_payload, response_payload, created_at, updated_at`

func scanShipment(row *sql.Row) (*models.Shipment, error) {
	var sh models.Shipment
	var status string
	err := row.Scan(
		&sh.ID, &sh.OrderName, &sh.Customer, &sh.Company, &sh.ConsigneeName, &sh.Phone, &sh.Address, &sh.City,
		&sh.PaymentMode, &sh.DeclaredValue, &sh.CODAmount, &sh.WeightGrams, &sh.Pieces,
		&sh.ServiceType, &sh.ProductType, &sh.ShipmentMode, &status, &sh.TrackingNumber, &sh.LabelLink, &sh.LastError,
		&sh.PackingSlip, &sh.SlipGenerated, &sh.RequestPayload, &sh.ResponsePayload, &sh.CreatedAt, &sh.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sh.Status = models.ShipmentStatus(status)
	return &sh, nil
}

func (s *Storage) GetShipment(ctx context.Context, id string) (*models.Shipment, error) {
	sh, err := scanShipment(s.db.QueryRowContext(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "select shipment")
	}
	return sh, nil
}

func (s *Storage) GetShipmentByOrder(ctx context.Context, orderName string) (*models.Shipment, error) {
	sh, err := scanShipment(s.db.QueryRowContext(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE order_name = ?`, orderName))
	if err != nil {
		return nil, notFound(err, "select shipment by order")
	}
	return sh, nil
}

func (s *Storage) InsertShipment(ctx context.Context, sh *models.Shipment) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO shipments (`+shipmentColumns+`)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
`, sh.ID, sh.OrderName, sh.Customer, sh.Company, sh.ConsigneeName, sh.Phone, sh.Address, sh.City,
		sh.PaymentMode, sh.DeclaredValue, sh.CODAmount, sh.WeightGrams, sh.Pieces,
		sh.ServiceType, sh.ProductType, sh.ShipmentMode, string(sh.Status), sh.TrackingNumber, sh.LabelLink, sh.LastError,
		sh.PackingSlip, sh.SlipGenerated, sh.RequestPayload, sh.ResponsePayload, sh.CreatedAt.UTC(), sh.UpdatedAt.UTC())
	if err != nil {
		return errors.Wrap(err, "insert shipment")
	}
	return nil
}

// UpdateShipment rewrites every mutable column. A stored tracking number is
// never replaced.
func (s *Storage) UpdateShipment(ctx context.Context, sh *models.Shipment) error {
	return updateShipment(ctx, s.db, sh)
}

// SaveBooking persists a Booked shipment and mirrors the booking onto its
// order in one transaction.
func (s *Storage) SaveBooking(ctx context.Context, sh *models.Shipment, m models.BookingMirror) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	if err := updateShipment(ctx, tx, sh); err != nil {
		return err
	}
	if err := mirrorBooking(ctx, tx, sh.OrderName, m); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit tx")
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func updateShipment(ctx context.Context, db execer, sh *models.Shipment) error {
	res, err := db.ExecContext(ctx, `
UPDATE shipments
SET
  customer = ?, company = ?, consignee_name = ?, phone = ?, address = ?, city = ?,
  payment_mode = ?, declared_value = ?, cod_amount = ?, weight_grams = ?, pieces = ?,
  service_type = ?, product_type = ?, shipment_mode = ?, status = ?,
  tracking_number = CASE WHEN tracking_number = '' THEN ? ELSE tracking_number END,
  label_link = ?, last_error = ?, packing_slip = ?, slip_generated = ?,
  request_payload = ?, response_payload = ?, updated_at = ?
WHERE id = ?
`, sh.Customer, sh.Company, sh.ConsigneeName, sh.Phone, sh.Address, sh.City,
		sh.PaymentMode, sh.DeclaredValue, sh.CODAmount, sh.WeightGrams, sh.Pieces,
		sh.ServiceType, sh.ProductType, sh.ShipmentMode, string(sh.Status),
		sh.TrackingNumber, sh.LabelLink, sh.LastError, sh.PackingSlip, sh.SlipGenerated,
		sh.RequestPayload, sh.ResponsePayload, sh.UpdatedAt.UTC(), sh.ID)
	if err != nil {
		return errors.Wrap(err, "update shipment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrap(models.ErrNotFound, "update shipment")
	}
	return nil
}
