package sqlitestore

import (
	"context"

	"github.com/pkg/errors"
	"github.com/tournevent/courierbridge/internal/models"
)

func (s *Storage) GetServiceArea(ctx context.Context, id string) (*models.ServiceArea, error) {
	var a models.ServiceArea
	err := s.db.QueryRowContext(ctx, `
SELECT id, name, allow_as_origin, allow_as_destination, is_active
FROM service_areas
WHERE id = ?
`, id).Scan(&a.ID, &a.Name, &a.AllowAsOrigin, &a.AllowAsDestination, &a.IsActive)
	if err != nil {
		return nil, notFound(err, "select service area")
	}
	return &a, nil
}

func (s *Storage) FindActiveServiceArea(ctx context.Context, name string) (*models.ServiceArea, error) {
	var a models.ServiceArea
	err := s.db.QueryRowContext(ctx, `
SELECT id, name, allow_as_origin, allow_as_destination, is_active
FROM service_areas
WHERE name = ? AND is_active = 1
ORDER BY id
LIMIT 1
`, name).Scan(&a.ID, &a.Name, &a.AllowAsOrigin, &a.AllowAsDestination, &a.IsActive)
	if err != nil {
		return nil, notFound(err, "select service area by name")
	}
	return &a, nil
}

// UpsertServiceAreas inserts or updates each area in one transaction.
func (s *Storage) UpsertServiceAreas(ctx context.Context, areas []models.ServiceArea) (int, error) {
	if len(areas) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO service_areas (id, name, allow_as_origin, allow_as_destination, is_active)
VALUES (?,?,?,?,?)
ON CONFLICT (id) DO UPDATE SET
  name = excluded.name,
  allow_as_origin = excluded.allow_as_origin,
  allow_as_destination = excluded.allow_as_destination,
  is_active = excluded.is_active
`)
	if err != nil {
		return 0, errors.Wrap(err, "prepare upsert service area")
	}
	defer stmt.Close()

	for _, a := range areas {
		if _, err := stmt.ExecContext(ctx, a.ID, a.Name, a.AllowAsOrigin, a.AllowAsDestination, a.IsActive); err != nil {
			return 0, errors.Wrap(err, "upsert service area")
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit tx")
	}
	return len(areas), nil
}
