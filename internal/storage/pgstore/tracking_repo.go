package pgstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/tournevent/courierbridge/internal/models"
)

// ListUndeliveredSnapshots returns the least recently updated undelivered snapshots.
func (s *Storage) ListUndeliveredSnapshots(ctx context.Context, limit int) ([]models.TrackingSnapshot, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(ctx, `
SELECT id, order_name, tracking_number, current_status, is_delivered, last_updated
FROM tracking_snapshots
WHERE NOT is_delivered
ORDER BY last_updated, id
LIMIT $1
`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select snapshots")
	}
	defer rows.Close()

	var out []models.TrackingSnapshot
	for rows.Next() {
		var sn models.TrackingSnapshot
		if err := rows.Scan(&sn.ID, &sn.OrderName, &sn.TrackingNumber, &sn.CurrentStatus, &sn.IsDelivered, &sn.LastUpdated); err != nil {
			return nil, errors.Wrap(err, "scan snapshot")
		}
		out = append(out, sn)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) HasSnapshot(ctx context.Context, orderName string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tracking_snapshots WHERE order_name = $1)`, orderName).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "select snapshot exists")
	}
	return exists, nil
}

func (s *Storage) InsertSnapshot(ctx context.Context, sn *models.TrackingSnapshot) error {
	err := s.db.QueryRow(ctx, `
INSERT INTO tracking_snapshots (order_name, tracking_number, current_status, is_delivered, last_updated)
VALUES ($1,$2,$3,$4,$5)
RETURNING id
`, sn.OrderName, sn.TrackingNumber, sn.CurrentStatus, sn.IsDelivered, sn.LastUpdated.UTC()).Scan(&sn.ID)
	if err != nil {
		return errors.Wrap(err, "insert snapshot")
	}
	return nil
}

func (s *Storage) ApplyStatusChange(ctx context.Context, upd models.SnapshotUpdate) (bool, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
UPDATE tracking_snapshots
SET current_status = $2, last_updated = $3, is_delivered = is_delivered OR $4
WHERE id = $1
`, upd.SnapshotID, upd.Status, upd.At.UTC(), upd.Delivered)
	if err != nil {
		return false, errors.Wrap(err, "update snapshot")
	}

	appended := false
	if upd.Event != nil {
		var last string
		err := tx.QueryRow(ctx, `
SELECT status_text
FROM tracking_events
WHERE order_name = $1
ORDER BY event_time DESC, id DESC
LIMIT 1
`, upd.OrderName).Scan(&last)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return false, errors.Wrap(err, "select last event")
		}

		if last != upd.Event.StatusText {
			_, err := tx.Exec(ctx, `
INSERT INTO tracking_events (order_name, tracking_number, status_text, event_time, source)
VALUES ($1,$2,$3,$4,$5)
`, upd.OrderName, upd.TrackingNumber, upd.Event.StatusText, upd.Event.EventTime.UTC(), upd.Event.Source)
			if err != nil {
				return false, errors.Wrap(err, "insert tracking event")
			}
			appended = true
		}
	}

	var deliveredOn *time.Time
	if upd.Delivered {
		at := upd.At.UTC()
		deliveredOn = &at
	}
	_, err = tx.Exec(ctx, `
UPDATE orders SET last_tracking_status = $2, delivered_on = $3 WHERE name = $1
`, upd.OrderName, upd.Status, deliveredOn)
	if err != nil {
		return false, errors.Wrap(err, "update order tracking")
	}

	if err := tx.Commit(ctx); err != nil {
		return false, errors.Wrap(err, "commit tx")
	}
	return appended, nil
}

func (s *Storage) ListEvents(ctx context.Context, orderName string) ([]models.TrackingEvent, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, order_name, tracking_number, status_text, event_time, source
FROM tracking_events
WHERE order_name = $1
ORDER BY event_time, id
`, orderName)
	if err != nil {
		return nil, errors.Wrap(err, "select events")
	}
	defer rows.Close()

	var out []models.TrackingEvent
	for rows.Next() {
		var e models.TrackingEvent
		if err := rows.Scan(&e.ID, &e.OrderName, &e.TrackingNumber, &e.StatusText, &e.EventTime, &e.Source); err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		out = append(out, e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) DeleteDeliveredSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM tracking_snapshots WHERE is_delivered AND last_updated < $1`, cutoff.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "delete snapshots")
	}
	return tag.RowsAffected(), nil
}

func (s *Storage) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM tracking_events WHERE event_time < $1`, cutoff.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "delete events")
	}
	return tag.RowsAffected(), nil
}
