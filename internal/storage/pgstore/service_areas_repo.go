package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/tournevent/courierbridge/internal/models"
)

func (s *Storage) GetServiceArea(ctx context.Context, id string) (*models.ServiceArea, error) {
	var a models.ServiceArea
	err := s.db.QueryRow(ctx, `
SELECT id, name, allow_as_origin, allow_as_destination, is_active
FROM service_areas
WHERE id = $1
`, id).Scan(&a.ID, &a.Name, &a.AllowAsOrigin, &a.AllowAsDestination, &a.IsActive)
	if err != nil {
		return nil, notFound(err, "select service area")
	}
	return &a, nil
}

func (s *Storage) FindActiveServiceArea(ctx context.Context, name string) (*models.ServiceArea, error) {
	var a models.ServiceArea
	err := s.db.QueryRow(ctx, `
SELECT id, name, allow_as_origin, allow_as_destination, is_active
FROM service_areas
WHERE name = $1 AND is_active
ORDER BY id
LIMIT 1
`, name).Scan(&a.ID, &a.Name, &a.AllowAsOrigin, &a.AllowAsDestination, &a.IsActive)
	if err != nil {
		return nil, notFound(err, "select service area by name")
	}
	return &a, nil
}

// UpsertServiceAreas inserts or updates each area in one batch.
func (s *Storage) UpsertServiceAreas(ctx context.Context, areas []models.ServiceArea) (int, error) {
	if len(areas) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, a := range areas {
		batch.Queue(`
INSERT INTO service_areas (id, name, allow_as_origin, allow_as_destination, is_active)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  allow_as_origin = EXCLUDED.allow_as_origin,
  allow_as_destination = EXCLUDED.allow_as_destination,
  is_active = EXCLUDED.is_active
`, a.ID, a.Name, a.AllowAsOrigin, a.AllowAsDestination, a.IsActive)
	}

	br := s.db.SendBatch(ctx, batch)
	defer br.Close()

	for range areas {
		if _, err := br.Exec(); err != nil {
			return 0, errors.Wrap(err, "upsert service area")
		}
	}
	return len(areas), nil
}
