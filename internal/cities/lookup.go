package cities

import (
	"context"

	"github.com/tournevent/courierbridge/internal/models"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Source is the authoritative service-area lookup, normally the database.
type Source interface {
	GetServiceArea(ctx context.Context, id string) (*models.ServiceArea, error)
	FindActiveServiceArea(ctx context.Context, name string) (*models.ServiceArea, error)
}

// AreaCache stores service areas by key.
type AreaCache interface {
	Get(ctx context.Context, key string) (*models.ServiceArea, bool, error)
	Set(ctx context.Context, key string, area *models.ServiceArea) error
}

// CachedLookup is a read-through cache in front of a Source. Misses and
// cache failures fall through to the source; not-found results are not cached.
type CachedLookup struct {
	source Source
	cache  AreaCache
	logger *otelzap.Logger
}

func NewCachedLookup(source Source, cache AreaCache, logger *otelzap.Logger) *CachedLookup {
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	return &CachedLookup{source: source, cache: cache, logger: logger}
}

func (l *CachedLookup) GetServiceArea(ctx context.Context, id string) (*models.ServiceArea, error) {
	return l.lookup(ctx, "id:"+id, func() (*models.ServiceArea, error) {
		return l.source.GetServiceArea(ctx, id)
	})
}

func (l *CachedLookup) FindActiveServiceArea(ctx context.Context, name string) (*models.ServiceArea, error) {
	return l.lookup(ctx, "name:"+name, func() (*models.ServiceArea, error) {
		return l.source.FindActiveServiceArea(ctx, name)
	})
}

func (l *CachedLookup) lookup(ctx context.Context, key string, load func() (*models.ServiceArea, error)) (*models.ServiceArea, error) {
	area, ok, err := l.cache.Get(ctx, key)
	if err != nil {
		l.logger.Ctx(ctx).Warn("Service area cache read failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		return area, nil
	}

	area, err = load()
	if err != nil {
		return nil, err
	}
	if err := l.cache.Set(ctx, key, area); err != nil {
		l.logger.Ctx(ctx).Warn("Service area cache write failed", zap.String("key", key), zap.Error(err))
	}
	return area, nil
}
