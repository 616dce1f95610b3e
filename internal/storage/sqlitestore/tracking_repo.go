package sqlitestore

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/tournevent/courierbridge/internal/models"
)

// ListUndeliveredSnapshots returns the least recently updated undelivered snapshots.
func (s *Storage) ListUndeliveredSnapshots(ctx context.Context, limit int) ([]models.TrackingSnapshot, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, order_name, tracking_number, current_status, is_delivered, last_updated
FROM tracking_snapshots
WHERE is_delivered = 0
ORDER BY last_updated, id
LIMIT ?
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
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows")
	}
	return out, nil
}

func (s *Storage) HasSnapshot(ctx context.Context, orderName string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM tracking_snapshots WHERE order_name = ?)`, orderName).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "select snapshot exists")
	}
	return exists, nil
}

func (s *Storage) InsertSnapshot(ctx context.Context, sn *models.TrackingSnapshot) error {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO tracking_snapshots (order_name, tracking_number, current_status, is_delivered, last_updated)
VALUES (?,?,?,?,?)
`, sn.OrderName, sn.TrackingNumber, sn.CurrentStatus, sn.IsDelivered, sn.LastUpdated.UTC())
	if err != nil {
		return errors.Wrap(err, "insert snapshot")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "snapshot id")
	}
	sn.ID = id
	return nil
}

func (s *Storage) ApplyStatusChange(ctx context.Context, upd models.SnapshotUpdate) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
UPDATE tracking_snapshots
SET current_status = ?, last_updated = ?, is_delivered = MAX(is_delivered, ?)
WHERE id = ?
`, upd.Status, upd.At.UTC(), upd.Delivered, upd.SnapshotID)
	if err != nil {
		return false, errors.Wrap(err, "update snapshot")
	}

	appended := false
	if upd.Event != nil {
		var last string
		err := tx.QueryRowContext(ctx, `
SELECT status_text
FROM tracking_events
WHERE order_name = ?
ORDER BY event_time DESC, id DESC
LIMIT 1
`, upd.OrderName).Scan(&last)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return false, errors.Wrap(err, "select last event")
		}

		if last != upd.Event.StatusText {
			_, err := tx.ExecContext(ctx, `
INSERT INTO tracking_events (order_name, tracking_number, status_text, event_time, source)
VALUES (?,?,?,?,?)
`, upd.OrderName, upd.TrackingNumber, upd.Event.StatusText, upd.Event.EventTime.UTC(), upd.Event.Source)
			if err != nil {
				return false, errors.Wrap(err, "insert tracking event")
			}
			appended = true
		}
	}

	var deliveredOn sql.NullTime
	if upd.Delivered {
		deliveredOn = sql.NullTime{Time: upd.At.UTC(), Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
UPDATE orders SET last_tracking_status = ?, delivered_on = ? WHERE name = ?
`, upd.Status, deliveredOn, upd.OrderName)
	if err != nil {
		return false, errors.Wrap(err, "update order tracking")
	}

	if err := tx.Commit(); err != nil {
		return false, errors.Wrap(err, "commit tx")
	}
	return appended, nil
}

func (s *Storage) ListEvents(ctx context.Context, orderName string) ([]models.TrackingEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, order_name, tracking_number, status_text, event_time, source
FROM tracking_events
WHERE order_name = ?
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
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows")
	}
	return out, nil
}

func (s *Storage) DeleteDeliveredSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tracking_snapshots WHERE is_delivered = 1 AND last_updated < ?`, cutoff.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "delete snapshots")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Storage) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tracking_events WHERE event_time < ?`, cutoff.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "delete events")
	}
	n, _ := res.RowsAffected()
	return n, nil
}
