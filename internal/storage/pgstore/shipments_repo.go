package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/tournevent/courierbridge/internal/models"
)

const shipmentColumns = `
  id, order_name, customer, company, consignee_name, phone, address, city,
  payment_mode, declared_value, cod_amount, weight_grams, pieces,
  service_type, product_type, shipment_mode, status, tracking_number, label_link, last_error,
  packing_slip, slip_generated, request_payload, response_payload, created_at, updated_at`

func scanShipment(row pgx.Row) (*models.Shipment, error) {
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
	sh, err := scanShipment(s.db.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "select shipment")
	}
	return sh, nil
}

func (s *Storage) GetShipmentByOrder(ctx context.Context, orderName string) (*models.Shipment, error) {
	sh, err := scanShipment(s.db.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE order_name = $1`, orderName))
	if err != nil {
		return nil, notFound(err, "select shipment by order")
	}
	return sh, nil
}

func (s *Storage) InsertShipment(ctx context.Context, sh *models.Shipment) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO shipments (`+shipmentColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26)
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
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := updateShipment(ctx, tx, sh); err != nil {
		return err
	}
	if err := mirrorBooking(ctx, tx, sh.OrderName, m); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(ctx), "commit tx")
}

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func updateShipment(ctx context.Context, db execer, sh *models.Shipment) error {
	tag, err := db.Exec(ctx, `
UPDATE shipments
SET
  customer = $2, company = $3, consignee_name = $4, phone = $5, address = $6, city = $7,
  payment_mode = $8, declared_value = $9, cod_amount = $10, weight_grams = $11, pieces = $12,
  service_type = $13, product_type = $14, shipment_mode = $15, status = $16,
  tracking_number = CASE WHEN tracking_number = '' THEN $17 ELSE tracking_number END,
  label_link = $18, last_error = $19, packing_slip = $20, slip_generated = $21,
  request_payload = $22, response_payload = $23, updated_at = $24
WHERE id = $1
`, sh.ID, sh.Customer, sh.Company, sh.ConsigneeName, sh.Phone, sh.Address, sh.City,
		sh.PaymentMode, sh.DeclaredValue, sh.CODAmount, sh.WeightGrams, sh.Pieces,
		sh.ServiceType, sh.ProductType, sh.ShipmentMode, string(sh.Status),
		sh.TrackingNumber, sh.LabelLink, sh.LastError, sh.PackingSlip, sh.SlipGenerated,
		sh.RequestPayload, sh.ResponsePayload, sh.UpdatedAt.UTC())
	if err != nil {
		return errors.Wrap(err, "update shipment")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(models.ErrNotFound, "update shipment")
	}
	return nil
}
