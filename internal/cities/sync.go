// Package cities keeps the local service-area table in step with the
// provider city list and serves cached lookups from it.
package cities

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tournevent/courierbridge/internal/models"
	"github.com/tournevent/courierbridge/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// EmptyListMessage is reported when the provider answers with no cities.
const EmptyListMessage = "City API reachable but returned empty list."

// Store persists normalized service areas.
type Store interface {
	UpsertServiceAreas(ctx context.Context, areas []models.ServiceArea) (int, error)
}

// Invalidator drops cached lookups after a sync.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Result summarizes one sync run.
type Result struct {
	Status       string `json:"status"`
	Upserted     int    `json:"upserted"`
	TotalFromAPI int    `json:"total_from_api"`
	Message      string `json:"message,omitempty"`
}

type Syncer struct {
	courier shipper.Courier
	store   Store
	cache   Invalidator
	logger  *otelzap.Logger
}

// NewSyncer creates a Syncer. cache may be nil.
func NewSyncer(courier shipper.Courier, store Store, cache Invalidator, logger *otelzap.Logger) *Syncer {
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	return &Syncer{courier: courier, store: store, cache: cache, logger: logger}
}

// Sync fetches the provider city list and upserts every usable row as active.
func (s *Syncer) Sync(ctx context.Context) (*Result, error) {
	records, err := s.courier.ListServiceAreas(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching city list: %w", err)
	}
	if len(records) == 0 {
		return &Result{Status: "success", Message: EmptyListMessage}, nil
	}

	areas := make([]models.ServiceArea, 0, len(records))
	for _, rec := range records {
		if area, ok := Normalize(rec); ok {
			areas = append(areas, area)
		}
	}

	upserted, err := s.store.UpsertServiceAreas(ctx, areas)
	if err != nil {
		return nil, fmt.Errorf("saving service areas: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Ctx(ctx).Warn("Failed to invalidate service area cache", zap.Error(err))
		}
	}

	s.logger.Ctx(ctx).Info("Synced service areas",
		zap.Int("upserted", upserted),
		zap.Int("total_from_api", len(records)),
	)
	return &Result{Status: "success", Upserted: upserted, TotalFromAPI: len(records)}, nil
}

// Normalize maps one provider row onto a ServiceArea. Rows without an id or
// a name are rejected.
func Normalize(rec shipper.ServiceAreaRecord) (models.ServiceArea, bool) {
	id := firstField(rec, "id", "city_id")
	name := firstField(rec, "name", "city_name")
	if id == "" || name == "" {
		return models.ServiceArea{}, false
	}
	return models.ServiceArea{
		ID:                 id,
		Name:               name,
		AllowAsOrigin:      truthy(rec["allow_as_origin"]),
		AllowAsDestination: truthy(rec["allow_as_destination"]),
		IsActive:           true,
	}, true
}

func firstField(rec shipper.ServiceAreaRecord, keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(stringify(rec[k])); s != "" {
			return s
		}
	}
	return ""
}

func truthy(v any) bool {
	switch stringify(v) {
	case "1", "true", "True":
		return true
	}
	return false
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
